package operations

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"

	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// Definition names a versioned step.
type Definition struct {
	ID          string          `json:"id" yaml:"id"`
	Version     *semver.Version `json:"version" yaml:"version"`
	Description string          `json:"description" yaml:"description"`
}

// String renders "<id>@<version>".
func (d Definition) String() string {
	if d.Version == nil {
		return d.ID
	}

	return d.ID + "@" + d.Version.String()
}

// Handler runs a step. Sequence handlers call ExecuteOperation with the Bundle they receive.
type Handler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (OUT, error)

// Operation is a step with at most one onchain side effect.
type Operation[IN, OUT, DEP any] struct {
	Definition
	handler Handler[IN, OUT, DEP]
}

// NewOperation defines an operation.
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler Handler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		Definition: Definition{ID: id, Version: version, Description: description},
		handler:    handler,
	}
}

// Sequence runs operations in order. The operation reports become its children.
type Sequence[IN, OUT, DEP any] struct {
	Definition
	handler Handler[IN, OUT, DEP]
}

// NewSequence defines a sequence.
func NewSequence[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler Handler[IN, OUT, DEP],
) *Sequence[IN, OUT, DEP] {
	return &Sequence[IN, OUT, DEP]{
		Definition: Definition{ID: id, Version: version, Description: description},
		handler:    handler,
	}
}

// Bundle is passed to every handler of a run.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context

	reporter Reporter
	// children collects the report ids recorded while a sequence handler runs.
	children *[]string
}

// NewBundle returns the Bundle of a run.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter) Bundle {
	return Bundle{Logger: lggr, GetContext: getContext, reporter: reporter}
}

var errNilReporter = errors.New("bundle has no reporter")

func (b Bundle) record(r Report[any, any]) error {
	if err := b.reporter.Add(r); err != nil {
		return err
	}
	if b.children != nil {
		*b.children = append(*b.children, r.ID)
	}

	return nil
}
