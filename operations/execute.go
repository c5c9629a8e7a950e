package operations

import (
	"errors"
	"fmt"
)

// ExecuteOperation runs op once and records its report, also when the handler fails. The
// handler error is returned unchanged.
//
// Input and output must pass IsSerializable.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle, op *Operation[IN, OUT, DEP], deps DEP, input IN,
) (Report[IN, OUT], error) {
	if b.reporter == nil {
		return Report[IN, OUT]{}, errNilReporter
	}
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", op.ID, ErrNotSerializable)
	}

	b.Logger.Debugw("Executing operation", "operation", op.Definition.String(), "description", op.Description)
	output, err := op.handler(b, deps, input)
	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", op.ID, ErrNotSerializable)
	}

	report := newReport(op.Definition, input, output, err, nil)
	if rerr := b.record(report.Generic()); rerr != nil {
		return Report[IN, OUT]{}, fmt.Errorf("failed to record report of %s: %w", op.ID, rerr)
	}

	return report, err
}

// ExecuteSequence runs seq and records its report after the reports of its operations. A
// failed sequence is reported with the operations that ran before the failure.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, seq *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (Report[IN, OUT], error) {
	if b.reporter == nil {
		return Report[IN, OUT]{}, errNilReporter
	}
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("sequence %s input: %w", seq.ID, ErrNotSerializable)
	}

	b.Logger.Debugw("Executing sequence", "sequence", seq.Definition.String(), "description", seq.Description)

	var children []string
	inner := b
	inner.children = &children

	output, err := seq.handler(inner, deps, input)
	if errors.Is(err, ErrNotSerializable) {
		return Report[IN, OUT]{}, err
	}
	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("sequence %s output: %w", seq.ID, ErrNotSerializable)
	}

	report := newReport(seq.Definition, input, output, err, children)
	if rerr := b.record(report.Generic()); rerr != nil {
		return Report[IN, OUT]{}, fmt.Errorf("failed to record report of %s: %w", seq.ID, rerr)
	}

	return report, err
}
