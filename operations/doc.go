/*
Package operations runs a deployment as versioned steps and keeps a report of each one.

An Operation has at most one onchain side effect. A Sequence calls ExecuteOperation for its
operations in order, and its report lists theirs as children. Steps are neither retried nor
skipped: re-running is safe because the deployment steps check the chain before sending.

	reporter := operations.NewMemoryReporter()
	b := operations.NewBundle(func() context.Context { return ctx }, lggr, reporter)
	report, err := operations.ExecuteOperation(b, op, deps, input)
*/
package operations
