package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillz/pkg/ingest"
	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/presenter"
	"github.com/jingkaihe/skillz/pkg/skills"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
)

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Ingest directories and iterate their files",
	Long: `Walk a directory applying the persisted ignore and except patterns.

Only files matching an except pattern are ingested. Files that cannot be read
as text teach the ignore list a new pattern unless --no-learn is given.`,
}

var dirIngestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Walk a directory and print its files and folders",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		delimiter, _ := cmd.Flags().GetString("delimiter")
		runSkill(cmd, "directory_ingest", skills.DirectoryIngestInput{Path: args[0], ChunkDelimiter: delimiter})
	},
}

var dirNextCmd = &cobra.Command{
	Use:   "next <path>",
	Short: "Print the next files (or folders) of a freshly ingested directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		count, _ := cmd.Flags().GetInt("count")
		folders, _ := cmd.Flags().GetBool("folders")

		name := "directory_next_file"
		if folders {
			name = "directory_next_folder"
		}

		state := mustState(ctx)
		results := make([]skilltypes.StructuredSkillResult, 0, count)
		for i := 0; count <= 0 || i < count; i++ {
			result := callSkill(ctx, state, name, skills.DirectoryCursorInput{Path: args[0]})
			if result.IsError() {
				renderResult(result)
				exit(ctx, 1)
			}
			if result.Status() == skilltypes.StatusEmpty {
				if i == 0 {
					renderResult(result)
					return
				}
				break
			}
			if textOutput() {
				presenter.Text(result.AssistantFacing())
				continue
			}
			results = append(results, result.StructuredData())
		}

		if !textOutput() {
			if err := presenter.JSON(results); err != nil {
				presenter.Error(err, "failed to write output")
				exit(ctx, 1)
			}
		}
	},
}

var dirWatchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Re-ingest a directory whenever it changes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		delimiter, _ := cmd.Flags().GetString("delimiter")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		noLearn, _ := cmd.Flags().GetBool("no-learn")

		ingestConfig, err := ingest.ConfigFromViper(viper.GetViper())
		if err != nil {
			presenter.Error(err, "failed to load configuration")
			exit(ctx, 1)
		}
		opts := ingestConfig.Options()
		if noLearn {
			opts = append(opts, ingest.WithLearnIgnores(false))
		}
		if delimiter != "" {
			opts = append(opts, ingest.WithChunkDelimiter(delimiter))
		}

		watcher := ingest.NewWatcher(args[0], newFileIgnore(ctx), debounce, opts...)
		presenter.Info(fmt.Sprintf("Watching %s, press Ctrl+C to stop", args[0]))

		err = watcher.Run(ctx, func(di *ingest.DirectoryIngestor) {
			printIngestSummary(di)
		})
		if err != nil {
			logger.G(ctx).WithError(err).Error("watch failed")
			presenter.Error(err, "watch failed")
			exit(ctx, 1)
		}
	},
}

type ingestSummary struct {
	Path    string   `json:"path"`
	Files   []string `json:"files"`
	Folders []string `json:"folders"`
	Errors  []string `json:"errors,omitempty"`
	Time    string   `json:"time"`
}

func printIngestSummary(di *ingest.DirectoryIngestor) {
	summary := ingestSummary{
		Path:    di.Path,
		Files:   make([]string, 0, len(di.Files)),
		Folders: di.Folders,
		Time:    time.Now().Format(time.RFC3339),
	}
	for _, f := range di.Files {
		summary.Files = append(summary.Files, f.Path)
	}
	if di.Errors != nil {
		for _, err := range di.Errors.Errors {
			summary.Errors = append(summary.Errors, err.Error())
		}
	}

	if !textOutput() {
		if err := presenter.JSON(summary); err != nil {
			presenter.Error(err, "failed to write output")
		}
		return
	}

	presenter.Section(fmt.Sprintf("%s (%s)", summary.Path, summary.Time))
	presenter.Text(fmt.Sprintf("%d files, %d folders", len(summary.Files), len(summary.Folders)))
	if len(summary.Files) > 0 {
		presenter.Text(strings.Join(summary.Files, "\n"))
	}
	for _, e := range summary.Errors {
		presenter.Warning(e)
	}
}

func init() {
	dirCmd.PersistentFlags().Int64("max-file-size", ingest.DefaultMaxFileSize, "Skip files larger than this many bytes, 0 for no limit")
	viper.BindPFlag("ingest.max_file_size", dirCmd.PersistentFlags().Lookup("max-file-size"))

	dirIngestCmd.Flags().String("delimiter", "", "Chunk delimiter (default: blank line)")

	dirNextCmd.Flags().Int("count", 1, "Number of entries to print, 0 for all")
	dirNextCmd.Flags().Bool("folders", false, "Iterate folders instead of files")

	dirWatchCmd.Flags().String("delimiter", "", "Chunk delimiter (default: blank line)")
	dirWatchCmd.Flags().Duration("debounce", ingest.DefaultDebounce, "Quiet period before re-ingesting")
	dirWatchCmd.Flags().Bool("no-learn", false, "Do not add ignore patterns for unreadable files")

	dirCmd.AddCommand(dirIngestCmd)
	dirCmd.AddCommand(dirNextCmd)
	dirCmd.AddCommand(dirWatchCmd)
}
