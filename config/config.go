// Package config loads the deployer configuration from a file and the environment.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/viper"

	"github.com/singletonlabs/singleton-deployer/chain/evm/provider/rpcclient"
	"github.com/singletonlabs/singleton-deployer/singleton"
)

// DefaultConfirmTimeout is used when deployment.confirm_timeout is not set.
const DefaultConfirmTimeout = 5 * time.Minute

// RPCConfig is a single RPC endpoint of the target chain.
type RPCConfig struct {
	Name               string `mapstructure:"name" yaml:"name"`
	HTTPURL            string `mapstructure:"http_url" yaml:"http_url"`
	WSURL              string `mapstructure:"ws_url" yaml:"ws_url,omitempty"`
	PreferredURLScheme string `mapstructure:"preferred_url_scheme" yaml:"preferred_url_scheme,omitempty"` // "http" or "ws"
}

// NetworkConfig identifies the target chain and how to reach it.
type NetworkConfig struct {
	ChainSelector uint64      `mapstructure:"chain_selector" yaml:"chain_selector,omitempty"`
	ChainID       uint64      `mapstructure:"chain_id" yaml:"chain_id,omitempty"` // Alternative to chain_selector
	RPCs          []RPCConfig `mapstructure:"rpcs" yaml:"rpcs,omitempty"`
	// RPCPort adds a local node RPC at http://127.0.0.1:<port> after the configured RPCs.
	RPCPort int `mapstructure:"rpc_port" yaml:"rpc_port,omitempty"`
}

// KMSConfig is the configuration for a deployer key held in AWS KMS.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type KMSConfig struct {
	KeyID      string `mapstructure:"key_id" yaml:"key_id"`                     // Secret: AWS KMS Key ID
	KeyRegion  string `mapstructure:"key_region" yaml:"key_region"`             // Secret: AWS KMS Key Region (e.g. us-west-1)
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile,omitempty"` // The AWS shared config profile
}

// DeployerConfig is the deployer account. Exactly one key source must be set.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type DeployerConfig struct {
	PrivateKey string    `mapstructure:"private_key" yaml:"private_key,omitempty"` // Secret: hex private key. Prefer KMS keys instead.
	Mnemonic   string    `mapstructure:"mnemonic" yaml:"mnemonic,omitempty"`       // Secret: BIP39 mnemonic, account m/44'/60'/0'/0/0
	KMS        KMSConfig `mapstructure:"kms" yaml:"kms"`
}

// DeploymentConfig controls what is deployed and where the results go.
type DeploymentConfig struct {
	// Mode is "deterministic" or "direct".
	Mode string `mapstructure:"mode" yaml:"mode,omitempty"`
	// Deterministic selects the mode when Mode is not set.
	Deterministic *bool `mapstructure:"deterministic" yaml:"deterministic,omitempty"`
	// ArtifactsPath is the Safe v1.3.0 artifact file.
	ArtifactsPath string `mapstructure:"artifacts_path" yaml:"artifacts_path"`
	// FactoryArtifactsDir holds <chainId>/deployment.json files of the singleton factory. When
	// empty the artifacts built into the binary are used.
	FactoryArtifactsDir string        `mapstructure:"factory_artifacts_dir" yaml:"factory_artifacts_dir,omitempty"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
	// OutputPath is the address book file. The format follows the extension.
	OutputPath string `mapstructure:"output_path" yaml:"output_path,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level,omitempty"`
	// JSON writes JSON lines instead of console output.
	JSON bool `mapstructure:"json" yaml:"json,omitempty"`
}

// Config wraps the entire configuration of the deployer.
type Config struct {
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	Deployer   DeployerConfig   `mapstructure:"deployer" yaml:"deployer"`
	Deployment DeploymentConfig `mapstructure:"deployment" yaml:"deployment"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	// If the config file exists, we continue to read it, otherwise we fallback to using
	// environment variables
	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := newViper()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadFile loads the config from a file.
func LoadFile(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("deployment.confirm_timeout", DefaultConfirmTimeout)

	return v
}

var (
	// envBindings maps config keys to the environment variables that can provide their value.
	// The first name is preferred, the second (if present) is the legacy name used by the local
	// network scripts.
	envBindings = map[string][]string{
		"network.chain_selector":           {"NETWORK_CHAIN_SELECTOR"},
		"network.chain_id":                 {"NETWORK_CHAIN_ID", "CHAIN_ID"},
		"network.rpc_port":                 {"NETWORK_RPC_PORT", "RPC_PORT"},
		"deployer.private_key":             {"DEPLOYER_PRIVATE_KEY"},
		"deployer.mnemonic":                {"DEPLOYER_MNEMONIC", "MNEMONIC"},
		"deployer.kms.key_id":              {"DEPLOYER_KMS_KEY_ID", "KMS_DEPLOYER_KEY_ID"},
		"deployer.kms.key_region":          {"DEPLOYER_KMS_KEY_REGION", "KMS_DEPLOYER_KEY_REGION"},
		"deployer.kms.aws_profile":         {"DEPLOYER_KMS_AWS_PROFILE"},
		"deployment.mode":                  {"DEPLOYMENT_MODE"},
		"deployment.deterministic":         {"DEPLOYMENT_DETERMINISTIC", "DETERMINISTIC_DEPLOYMENT"},
		"deployment.artifacts_path":        {"DEPLOYMENT_ARTIFACTS_PATH"},
		"deployment.factory_artifacts_dir": {"DEPLOYMENT_FACTORY_ARTIFACTS_DIR"},
		"deployment.confirm_timeout":       {"DEPLOYMENT_CONFIRM_TIMEOUT"},
		"deployment.output_path":           {"DEPLOYMENT_OUTPUT_PATH"},
		"log.level":                        {"LOG_LEVEL"},
		"log.json":                         {"LOG_JSON"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the env key to the start of the arguments
		inputs := slices.Insert(envs, 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks that the config is complete enough to run a deployment.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := c.Network.Chain(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Network.Nodes(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Deployer.validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Deployment.ResolveMode(); err != nil {
		errs = append(errs, err)
	}
	if c.Deployment.ArtifactsPath == "" {
		errs = append(errs, errors.New("deployment.artifacts_path is required"))
	}

	return errors.Join(errs...)
}

// Chain returns the chain selector and the chain id. A chain id without a chain-selectors entry,
// such as a local devnet, resolves to selector 0.
func (c NetworkConfig) Chain() (selector uint64, chainID uint64, err error) {
	if c.ChainSelector == 0 && c.ChainID == 0 {
		return 0, 0, errors.New("network.chain_selector or network.chain_id is required")
	}

	if c.ChainSelector == 0 {
		selector, err = chainsel.SelectorFromChainId(c.ChainID)
		if err != nil {
			return 0, c.ChainID, nil
		}

		return selector, c.ChainID, nil
	}

	chain, ok := chainsel.ChainBySelector(c.ChainSelector)
	if !ok {
		return 0, 0, fmt.Errorf("unknown chain selector %d", c.ChainSelector)
	}
	if c.ChainID != 0 && c.ChainID != chain.EvmChainID {
		return 0, 0, fmt.Errorf("chain selector %d is chain id %d and does not match chain id %d",
			c.ChainSelector, chain.EvmChainID, c.ChainID)
	}

	return c.ChainSelector, chain.EvmChainID, nil
}

// Nodes returns the RPC nodes in dial order, the local RPC from RPCPort last. Each RPC
// contributes the URL of its preferred scheme, falling back to the other one.
func (c NetworkConfig) Nodes() ([]rpcclient.Node, error) {
	nodes := make([]rpcclient.Node, 0, len(c.RPCs)+1)
	for i, r := range c.RPCs {
		if r.HTTPURL == "" && r.WSURL == "" {
			return nil, fmt.Errorf("network.rpcs[%d]: http_url or ws_url is required", i)
		}

		var url string
		switch r.PreferredURLScheme {
		case "", "http":
			url = cmp.Or(r.HTTPURL, r.WSURL)
		case "ws":
			url = cmp.Or(r.WSURL, r.HTTPURL)
		default:
			return nil, fmt.Errorf("network.rpcs[%d]: invalid preferred_url_scheme %q, want http or ws",
				i, r.PreferredURLScheme)
		}

		name := r.Name
		if name == "" {
			name = "rpc-" + strconv.Itoa(i)
		}

		nodes = append(nodes, rpcclient.Node{Name: name, URL: url})
	}

	if c.RPCPort != 0 {
		nodes = append(nodes, rpcclient.Node{Name: "local", URL: fmt.Sprintf("http://127.0.0.1:%d", c.RPCPort)})
	}

	if len(nodes) == 0 {
		return nil, errors.New("network.rpcs or network.rpc_port is required")
	}

	return nodes, nil
}

func (c DeployerConfig) validate() error {
	sources := 0
	for _, set := range []bool{c.PrivateKey != "", c.Mnemonic != "", c.KMS.KeyID != ""} {
		if set {
			sources++
		}
	}

	switch {
	case sources == 0:
		return errors.New("one of deployer.private_key, deployer.mnemonic or deployer.kms.key_id is required")
	case sources > 1:
		return errors.New("only one of deployer.private_key, deployer.mnemonic or deployer.kms.key_id can be set")
	case c.KMS.KeyID != "" && c.KMS.KeyRegion == "":
		return errors.New("deployer.kms.key_region is required")
	}

	return nil
}

// ResolveMode returns the factory bootstrap mode. Mode takes precedence over Deterministic. The
// factory is deployed directly unless deterministic deployment is requested.
func (c DeploymentConfig) ResolveMode() (singleton.Mode, error) {
	if c.Mode != "" {
		return singleton.ParseMode(c.Mode)
	}

	if c.Deterministic != nil && *c.Deterministic {
		return singleton.ModeDeterministicReplay, nil
	}

	return singleton.ModeDirect, nil
}
