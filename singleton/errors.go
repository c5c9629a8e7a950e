package singleton

import "errors"

var (
	// ErrUnsupportedChain is returned in deterministic replay mode when no factory info is
	// registered for the chain id.
	ErrUnsupportedChain = errors.New("singleton factory not supported on chain")
	// ErrDeploymentMismatch is returned when a deployment transaction was mined but the expected
	// address holds no code.
	ErrDeploymentMismatch = errors.New("no code at expected address after deployment")
	// ErrInvalidTarget rejects a target without a name, with a duplicate name or with empty init
	// code.
	ErrInvalidTarget = errors.New("invalid deployment target")
	// ErrUnknownMode is returned for a Mode other than ModeDeterministicReplay and ModeDirect.
	ErrUnknownMode = errors.New("unknown factory bootstrap mode")
)
