package schedule

import (
	"fmt"
	"image"
	"time"
)

// Scheduling priorities used by the CLI producer. Fragments outrank loose
// images so queued pages of a document are not starved by bulk image
// submissions.
const (
	PriorityImage = 2
	PriorityPage  = 3
)

// Task is one unit of detection work. It is a sealed sum type: the only
// implementations are SingleImage and PageFragment, and consumers dispatch
// with an exhaustive type switch.
type Task interface {
	// Key returns the correlation key the consumer uses to reassemble
	// results regardless of completion order.
	Key() string

	isTask()
}

// SingleImage is a standalone raster image submitted as raw encoded bytes.
// Decoding is deferred to processing time so an unreadable file surfaces as
// an error result for this task instead of failing the producer.
type SingleImage struct {
	SourceID string
	Data     []byte
}

func (t SingleImage) Key() string { return t.SourceID }
func (SingleImage) isTask()       {}

// PageFragment is one rendered page of a multi-page document. TotalPages is
// declared once per file, on every fragment, before any fragment is
// processed; the scheduler uses it for progress reporting.
type PageFragment struct {
	FileID     string
	Page       int // 1-based page number
	TotalPages int
	Buffer     *image.NRGBA
}

func (t PageFragment) Key() string { return fmt.Sprintf("%s#%d", t.FileID, t.Page) }
func (PageFragment) isTask()       {}

// Status classifies a task outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusNoCode  Status = "no_code_found"
	StatusError   Status = "error"
)

// Result is the per-task outcome delivered to the Observer. For page
// fragments FileID, Page, and TotalPages identify the page so the consumer
// can reassemble a document from results arriving in any order.
type Result struct {
	Key        string        `json:"key"`
	FileID     string        `json:"file_id,omitempty"`
	Page       int           `json:"page,omitempty"`
	TotalPages int           `json:"total_pages,omitempty"`
	Status     Status        `json:"status"`
	Payloads   []string      `json:"payloads,omitempty"`
	Err        string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Observer receives scheduler events. Implementations must tolerate being
// called from the scheduler's run goroutine; the scheduler never calls them
// concurrently with each other.
type Observer interface {
	// OnResult is called once per task, after it completes or fails.
	OnResult(res Result)

	// OnProgress is called after each page-fragment result with the
	// per-file processed count, the declared page total, and the page
	// just finished.
	OnProgress(fileID string, processed, expected, currentPage int)

	// OnAllDone is called exactly once, after the producer has signaled
	// completion and the queue has drained.
	OnAllDone(totalProcessed int)
}
