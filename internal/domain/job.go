package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImage         JobKind = "image"
	JobKindVideo         JobKind = "video"
	JobKindSpeech        JobKind = "speech"
	JobKindLipsync       JobKind = "lipsync"
	JobKindTranscription JobKind = "transcription"
	JobKindOther         JobKind = "other"
)

// ValidKind reports whether k is one of the supported job kinds.
func ValidKind(k JobKind) bool {
	switch k {
	case JobKindImage, JobKindVideo, JobKindSpeech, JobKindLipsync, JobKindTranscription, JobKindOther:
		return true
	}
	return false
}

// JobStatus enumerates the canonical job lifecycle states. Every
// provider-native status vocabulary is normalized onto these five values.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether the status admits no further transition.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// GenerationJob is one asynchronous unit of work submitted to an external
// generative provider. Records are created once, mutated only by the poller
// (status is monotonic: terminal states never transition again), and never
// deleted.
type GenerationJob struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner,omitempty"`
	Kind      JobKind        `json:"kind"`
	Provider  string         `json:"provider"`
	ModelRef  string         `json:"model_ref,omitempty"`
	InputRefs map[string]any `json:"input_refs,omitempty"`
	Status    JobStatus      `json:"status"`
	OutputURL string         `json:"output_url,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// JobPatch carries the fields an update may change. Nil pointers leave the
// stored value untouched. The record id is never patchable.
type JobPatch struct {
	Status    *JobStatus
	OutputURL *string
	Error     *string
}

// Empty reports whether the patch would not change anything.
func (p JobPatch) Empty() bool {
	return p.Status == nil && p.OutputURL == nil && p.Error == nil
}

// JobFilter narrows job listings. Zero values match everything.
type JobFilter struct {
	Owner string
	Kind  JobKind
}
