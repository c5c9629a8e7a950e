package operations

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report is the outcome of one execution. Err is set when the handler failed.
type Report[IN, OUT any] struct {
	ID        string       `json:"id" yaml:"id"`
	Def       Definition   `json:"definition" yaml:"definition"`
	Input     IN           `json:"input" yaml:"input"`
	Output    OUT          `json:"output" yaml:"output"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Err       *ReportError `json:"error,omitempty" yaml:"error,omitempty"`
	// Children are the ids of the operation reports of a sequence, in execution order.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

func newReport[IN, OUT any](def Definition, input IN, output OUT, err error, children []string) Report[IN, OUT] {
	r := Report[IN, OUT]{
		ID:        uuid.NewString(),
		Def:       def,
		Input:     input,
		Output:    output,
		Timestamp: time.Now().UTC(),
		Children:  children,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// Generic drops the type parameters so reports of different steps fit one list.
func (r Report[IN, OUT]) Generic() Report[any, any] {
	return Report[any, any]{
		ID:        r.ID,
		Def:       r.Def,
		Input:     r.Input,
		Output:    r.Output,
		Timestamp: r.Timestamp,
		Err:       r.Err,
		Children:  r.Children,
	}
}

// ReportError is the message of a failed execution.
type ReportError struct {
	Message string `json:"message" yaml:"message"`
}

func (e ReportError) Error() string { return e.Message }

// Reporter receives every report of a run.
type Reporter interface {
	Add(report Report[any, any]) error
}

// MemoryReporter keeps reports in memory.
type MemoryReporter struct {
	mu      sync.Mutex
	reports []Report[any, any]
}

func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{}
}

func (m *MemoryReporter) Add(report Report[any, any]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, report)

	return nil
}

// Reports returns a copy of the reports in the order they were added.
func (m *MemoryReporter) Reports() []Report[any, any] {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Report[any, any](nil), m.reports...)
}
