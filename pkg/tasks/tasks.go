// Package tasks defines the report analysis task and how it is dispatched.
package tasks

import (
	"context"
	"sync"
	"time"

	"dira-go/pkg/log"
)

// ReportTask asks the pipeline to analyse one report.
type ReportTask struct {
	ReportID    string    `json:"report_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Processor runs the analysis for a task.
type Processor interface {
	Process(ctx context.Context, task ReportTask) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, task ReportTask) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, task ReportTask) error {
	return f(ctx, task)
}

// Dispatcher hands a task to whatever runs the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, task ReportTask) error
}

// InlineDispatcher runs tasks in background goroutines of this process.
// It is used when Kafka is disabled.
type InlineDispatcher struct {
	processor Processor
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewInlineDispatcher creates an InlineDispatcher. Each task gets its own timeout.
func NewInlineDispatcher(processor Processor, timeout time.Duration) *InlineDispatcher {
	return &InlineDispatcher{processor: processor, timeout: timeout}
}

// Dispatch implements Dispatcher. The caller's context only bounds the hand-off, not the work.
func (d *InlineDispatcher) Dispatch(_ context.Context, task ReportTask) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.processor.Process(ctx, task); err != nil {
			log.Errorf("[Tasks] report task failed: report_id=%s, error: %v", task.ReportID, err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched task has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
