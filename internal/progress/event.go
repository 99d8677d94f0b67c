// Package progress defines the event stream emitted by the batch scheduler.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags the milestone an Event reports.
type Kind string

// Supported progress event kinds.
const (
	KindBatchStart     Kind = "batch_start"
	KindBatchCrawled   Kind = "batch_crawled"
	KindExtraction     Kind = "extraction_progress"
	KindBatchComplete  Kind = "batch_complete"
	KindBatchTimeout   Kind = "batch_timeout"
	KindBatchError     Kind = "batch_error"
	KindSourceComplete Kind = "source_complete"
)

// Event is one progress milestone. The pipeline functions identically when
// nothing consumes these; emission must never block the batch loop.
type Event struct {
	Kind       Kind          `json:"kind"`
	TS         time.Time     `json:"ts"`
	RunID      string        `json:"run_id"`
	SourceName string        `json:"source_name"`
	Batch      int           `json:"batch,omitempty"`
	Pages      int           `json:"pages,omitempty"`
	Records    int           `json:"records,omitempty"`
	Dur        time.Duration `json:"duration,omitempty"`
	Note       string        `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.SourceName == "" {
		return errors.New("source name is required")
	}
	switch e.Kind {
	case KindBatchStart, KindBatchCrawled, KindExtraction,
		KindBatchComplete, KindBatchTimeout, KindBatchError,
		KindSourceComplete:
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// Emitter publishes individual events. The Hub satisfies this; NopEmitter
// serves callers that want no progress stream at all.
type Emitter interface {
	Emit(evt Event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(Event) {}
