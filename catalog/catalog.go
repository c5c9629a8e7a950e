// Package catalog loads the ordered list of singleton contracts to deploy.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Target is a singleton contract to deploy: a name and its creation bytecode.
type Target struct {
	Name     string        `json:"name" yaml:"name"`
	InitCode hexutil.Bytes `json:"initCode" yaml:"initCode"`
}

// entry maps a key of the Safe v1.3.0 artifact file to a target name.
type entry struct {
	key  string
	name string
}

// safeV130 is the deployment order of the Safe v1.3.0 singletons.
var safeV130 = []entry{
	{key: "safe_L2", name: "safe_l2"},
	{key: "proxy_factory", name: "proxy_factory"},
	{key: "multisend", name: "multisend"},
	{key: "multisend_call_only", name: "multisend_call_only"},
	{key: "fallback_handler", name: "fallback_handler"},
	{key: "sign_message_lib", name: "sign_message_lib"},
	{key: "create_call", name: "create_call"},
	{key: "simulate_tx_accessor", name: "simulate_tx_accessor"},
}

var (
	ErrMissingArtifact = errors.New("artifact missing from catalog")
	ErrEmptyBytecode   = errors.New("artifact has empty bytecode")
)

// Names returns the Safe v1.3.0 target names in deployment order.
func Names() []string {
	names := make([]string, 0, len(safeV130))
	for _, e := range safeV130 {
		names = append(names, e.name)
	}

	return names
}

// Parse decodes a Safe v1.3.0 artifact file, a JSON object of hex encoded creation bytecodes
// keyed by contract, into targets in deployment order. Unknown keys are ignored.
func Parse(data []byte) ([]Target, error) {
	var artifacts map[string]hexutil.Bytes
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts: %w", err)
	}

	targets := make([]Target, 0, len(safeV130))
	for _, e := range safeV130 {
		code, ok := artifacts[e.key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, e.key)
		}
		if len(code) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyBytecode, e.key)
		}

		targets = append(targets, Target{Name: e.name, InitCode: code})
	}

	return targets, nil
}

// LoadFile reads and parses the artifact file at path.
func LoadFile(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifacts file %s: %w", path, err)
	}

	targets, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifacts file %s: %w", path, err)
	}

	return targets, nil
}
