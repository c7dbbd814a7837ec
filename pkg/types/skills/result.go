package skills

import "time"

// BaseResult is the SkillResult used by every skill.
type BaseResult struct {
	skill    string
	result   string
	err      string
	status   Status
	reason   Reason
	metadata SkillMetadata
}

// NewResult returns an ok result.
func NewResult(skill, result string, metadata SkillMetadata) *BaseResult {
	return &BaseResult{skill: skill, result: result, status: StatusOK, metadata: metadata}
}

// NewEmptyResult returns a successful result that carries no data. reason
// may be ReasonNone or ReasonExhausted.
func NewEmptyResult(skill, result string, reason Reason, metadata SkillMetadata) *BaseResult {
	return &BaseResult{skill: skill, result: result, status: StatusEmpty, reason: reason, metadata: metadata}
}

// NewFailedResult returns a failed result carrying reason and err.
func NewFailedResult(skill string, reason Reason, err string, metadata SkillMetadata) *BaseResult {
	return &BaseResult{skill: skill, err: err, status: StatusFailed, reason: reason, metadata: metadata}
}

func (r *BaseResult) GetResult() string { return r.result }
func (r *BaseResult) GetError() string  { return r.err }
func (r *BaseResult) IsError() bool     { return r.status == StatusFailed }
func (r *BaseResult) Status() Status    { return r.status }
func (r *BaseResult) Reason() Reason    { return r.reason }

// AssistantFacing returns the text handed to the model.
func (r *BaseResult) AssistantFacing() string {
	return StringifyResult(r.result, r.err)
}

// StructuredData returns the JSON envelope for the result.
func (r *BaseResult) StructuredData() StructuredSkillResult {
	return StructuredSkillResult{
		SkillName: r.skill,
		Status:    r.status,
		Reason:    r.reason,
		Error:     r.err,
		Metadata:  r.metadata,
		Timestamp: time.Now(),
	}
}
