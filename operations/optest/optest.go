// Package optest builds operation bundles for tests.
package optest

import (
	"testing"

	"github.com/singletonlabs/singleton-deployer/operations"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// NewBundle returns a bundle logging to t and the reporter collecting its reports.
func NewBundle(t *testing.T) (operations.Bundle, *operations.MemoryReporter) {
	t.Helper()

	reporter := operations.NewMemoryReporter()

	return operations.NewBundle(t.Context, logger.Test(t), reporter), reporter
}
