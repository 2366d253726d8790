// Package hdock defines core types shared across subsystems.
package hdock

import (
	"errors"
	"time"
)

// LigandKind distinguishes the two upload mechanisms the service accepts.
type LigandKind string

// Ligand variants resolved once by the classifier.
const (
	LigandSequence LigandKind = "sequence"
	LigandFilePath LigandKind = "file_path"
)

// Ligand is a tagged union: exactly one of Sequence or Path is populated,
// selected by Kind.
type Ligand struct {
	Kind     LigandKind
	Sequence string
	Path     string
}

// JobSpec is one validated docking job. It is immutable once constructed;
// workers never mutate it.
type JobSpec struct {
	RowIndex     int
	JobName      string
	ReceptorPath string
	Ligand       Ligand
	SiteResidues []int
	Email        string
}

// JobState tracks a submission through the worker state machine.
type JobState string

// Submission states. ResultCaptured and Failed are terminal.
const (
	StateIdle           JobState = "idle"
	StateNavigated      JobState = "navigated"
	StateFormFilled     JobState = "form_filled"
	StateUploaded       JobState = "uploaded"
	StateSubmitted      JobState = "submitted"
	StateResultCaptured JobState = "result_captured"
	StateFailed         JobState = "failed"
)

// Failure reasons recorded in the run log when a job cannot reach
// ResultCaptured.
const (
	ReasonNavigationFailed  = "navigation_failed"
	ReasonFormFillFailed    = "form_fill_failed"
	ReasonAttachmentFailed  = "attachment_failed"
	ReasonSubmissionTimeout = "submission_timeout"
)

// JobResult is the one outcome record produced per JobSpec, success or not.
type JobResult struct {
	RowIndex  int
	JobName   string
	Timestamp time.Time
	Token     string
	ResultURL string
	OK        bool
	Error     string
}

// ErrQueueClosed is returned by Dequeue once the queue is closed and drained.
var ErrQueueClosed = errors.New("queue closed")
