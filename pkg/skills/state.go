package skills

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/ingest"
	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/reddit"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
	"github.com/jingkaihe/skillz/pkg/web"
)

var _ skilltypes.State = &BasicState{}

// BasicState holds the collaborators and open directory cursors of one session.
type BasicState struct {
	mu            sync.Mutex
	sessionID     string
	fileIgnore    *ignore.FileIgnore
	redditFactory reddit.ClientFactory
	fetcher       web.PageFetcher
	searcher      web.Searcher
	ingestOptions []ingest.Option
	directories   map[string]*ingest.Directory
}

// BasicStateOption configures a BasicState.
type BasicStateOption func(ctx context.Context, s *BasicState) error

// WithFileIgnore shares fi across the session.
func WithFileIgnore(fi *ignore.FileIgnore) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.fileIgnore = fi
		return nil
	}
}

// WithRedditFactory sets how Reddit clients are built.
func WithRedditFactory(factory reddit.ClientFactory) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.redditFactory = factory
		return nil
	}
}

// WithFetcher sets the page fetcher.
func WithFetcher(fetcher web.PageFetcher) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.fetcher = fetcher
		return nil
	}
}

// WithSearcher sets the web searcher.
func WithSearcher(searcher web.Searcher) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.searcher = searcher
		return nil
	}
}

// WithIngestOptions sets the default options for directory walks.
func WithIngestOptions(opts ...ingest.Option) BasicStateOption {
	return func(_ context.Context, s *BasicState) error {
		s.ingestOptions = opts
		return nil
	}
}

// NewBasicState creates a session. Anything not configured falls back to an
// in-memory ignore list, unconfigured Reddit credentials and default web clients.
func NewBasicState(ctx context.Context, opts ...BasicStateOption) *BasicState {
	state := &BasicState{
		sessionID:   uuid.New().String(),
		directories: make(map[string]*ingest.Directory),
	}

	for _, opt := range opts {
		if err := opt(ctx, state); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to apply state option")
		}
	}

	if state.fileIgnore == nil {
		state.fileIgnore = ignore.New(ctx, ignore.NewMemoryStore(ignore.Patterns{}))
	}
	if state.redditFactory == nil {
		state.redditFactory = reddit.NewClientFactory(reddit.Config{})
	}
	if state.fetcher == nil {
		state.fetcher = web.NewFetcher(web.Config{})
	}
	if state.searcher == nil {
		state.searcher = web.NewDuckDuckGo(web.Config{})
	}

	return state
}

func (s *BasicState) SessionID() string                   { return s.sessionID }
func (s *BasicState) FileIgnore() *ignore.FileIgnore      { return s.fileIgnore }
func (s *BasicState) RedditFactory() reddit.ClientFactory { return s.redditFactory }
func (s *BasicState) Fetcher() web.PageFetcher            { return s.fetcher }
func (s *BasicState) Searcher() web.Searcher              { return s.searcher }

// OpenDirectory ingests root and replaces the cursor stored for it.
func (s *BasicState) OpenDirectory(ctx context.Context, root string, opts ...ingest.Option) (*ingest.Directory, error) {
	key, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", root)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ctx, key, opts...)
}

func (s *BasicState) openLocked(ctx context.Context, key string, opts ...ingest.Option) (*ingest.Directory, error) {
	allOpts := append(append([]ingest.Option{}, s.ingestOptions...), opts...)
	d, err := ingest.NewDirectory(ctx, key, s.fileIgnore, allOpts...)
	if err != nil {
		return nil, err
	}
	s.directories[key] = d
	return d, nil
}

// WithDirectory runs fn against the cursor for root, ingesting root first if
// no cursor is open yet.
func (s *BasicState) WithDirectory(ctx context.Context, root string, fn func(*ingest.Directory) error) error {
	key, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", root)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.directories[key]
	if !ok {
		if d, err = s.openLocked(ctx, key); err != nil {
			return err
		}
	}
	return fn(d)
}
