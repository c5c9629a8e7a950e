package singleton

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/singletonlabs/singleton-deployer/catalog"
	"github.com/singletonlabs/singleton-deployer/chain/evm"
	"github.com/singletonlabs/singleton-deployer/factory"
	"github.com/singletonlabs/singleton-deployer/operations"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// Result is the address book of a run.
type Result struct {
	// ChainSelector is 0 for chains without a chain-selectors entry.
	ChainSelector uint64                    `json:"chainSelector" yaml:"chainSelector"`
	ChainID       uint64                    `json:"chainId" yaml:"chainId"`
	Mode          Mode                      `json:"mode" yaml:"mode"`
	Factory       common.Address            `json:"factory" yaml:"factory"`
	Addresses     map[string]common.Address `json:"addresses" yaml:"addresses"`
	// Order is the deployment order of the names in Addresses.
	Order []string `json:"order" yaml:"order"`
}

// Deps are the dependencies of the deployment operations.
type Deps struct {
	Chain    evm.Chain
	Registry *factory.Registry
}

// BootstrapFactoryInput is the input of BootstrapFactoryOp.
type BootstrapFactoryInput struct {
	ChainSelector uint64 `json:"chainSelector"`
	ChainID       uint64 `json:"chainId"`
	Mode          Mode   `json:"mode"`
}

// BootstrapFactoryOutput is the output of BootstrapFactoryOp.
type BootstrapFactoryOutput struct {
	Factory common.Address `json:"factory"`
}

// DeploySingletonInput is the input of DeploySingletonOp.
type DeploySingletonInput struct {
	ChainSelector uint64         `json:"chainSelector"`
	ChainID       uint64         `json:"chainId"`
	Factory       common.Address `json:"factory"`
	Name          string         `json:"name"`
	InitCode      hexutil.Bytes  `json:"initCode"`
}

// DeploySingletonsInput is the input of DeploySingletonsSeq.
type DeploySingletonsInput struct {
	ChainSelector uint64           `json:"chainSelector"`
	ChainID       uint64           `json:"chainId"`
	Mode          Mode             `json:"mode"`
	Targets       []catalog.Target `json:"targets"`
}

var (
	BootstrapFactoryOp = operations.NewOperation(
		"bootstrap-factory",
		semver.MustParse("1.0.0"),
		"Ensure the CREATE2 singleton factory is deployed",
		func(b operations.Bundle, deps Deps, in BootstrapFactoryInput) (BootstrapFactoryOutput, error) {
			addr, err := BootstrapFactory(b.GetContext(), deps.Chain, in.Mode, deps.Registry)
			if err != nil {
				return BootstrapFactoryOutput{}, err
			}
			b.Logger.Infow("Singleton factory ready", "factory", addr.Hex(), "mode", in.Mode)

			return BootstrapFactoryOutput{Factory: addr}, nil
		},
	)

	DeploySingletonOp = operations.NewOperation(
		"deploy-singleton",
		semver.MustParse("1.0.0"),
		"Deploy a singleton through the CREATE2 factory",
		func(b operations.Bundle, deps Deps, in DeploySingletonInput) (Deployment, error) {
			d, err := DeploySingleton(b.GetContext(), deps.Chain, in.Factory, in.InitCode)
			if err != nil {
				return Deployment{}, fmt.Errorf("failed to deploy %s: %w", in.Name, err)
			}

			if d.Existing {
				b.Logger.Infow("Singleton already deployed", "name", in.Name, "address", d.Address.Hex())
			} else {
				b.Logger.Infow("Singleton deployed",
					"name", in.Name, "address", d.Address.Hex(), "txHash", d.TxHash.Hex())
			}

			return d, nil
		},
	)

	DeploySingletonsSeq = operations.NewSequence(
		"deploy-singletons",
		semver.MustParse("1.0.0"),
		"Bootstrap the factory and deploy every singleton in order",
		func(b operations.Bundle, deps Deps, in DeploySingletonsInput) (Result, error) {
			bootstrap, err := operations.ExecuteOperation(b, BootstrapFactoryOp, deps, BootstrapFactoryInput{
				ChainSelector: in.ChainSelector,
				ChainID:       in.ChainID,
				Mode:          in.Mode,
			})
			if err != nil {
				return Result{}, err
			}

			result := Result{
				ChainSelector: in.ChainSelector,
				ChainID:       in.ChainID,
				Mode:          in.Mode,
				Factory:       bootstrap.Output.Factory,
				Addresses:     make(map[string]common.Address, len(in.Targets)),
				Order:         make([]string, 0, len(in.Targets)),
			}

			for _, target := range in.Targets {
				report, err := operations.ExecuteOperation(b, DeploySingletonOp, deps, DeploySingletonInput{
					ChainSelector: in.ChainSelector,
					ChainID:       in.ChainID,
					Factory:       result.Factory,
					Name:          target.Name,
					InitCode:      target.InitCode,
				})
				if err != nil {
					return Result{}, err
				}

				result.Addresses[target.Name] = report.Output.Address
				result.Order = append(result.Order, target.Name)
			}

			return result, nil
		},
	)
)

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Mode Mode
	// Registry holds the presigned factory transactions. Only used in ModeDeterministicReplay.
	Registry *factory.Registry
	// Targets are deployed in order.
	Targets []catalog.Target
}

// Validate checks the mode and the targets. Target names must be unique and non-empty.
func (c OrchestratorConfig) Validate() error {
	if c.Mode != ModeDeterministicReplay && c.Mode != ModeDirect {
		return fmt.Errorf("%w: %s", ErrUnknownMode, c.Mode)
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for i, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("%w: target %d has no name", ErrInvalidTarget, i)
		}
		if _, ok := seen[target.Name]; ok {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidTarget, target.Name)
		}
		if len(target.InitCode) == 0 {
			return fmt.Errorf("%w: %q has empty init code", ErrInvalidTarget, target.Name)
		}
		seen[target.Name] = struct{}{}
	}

	return nil
}

// Orchestrator deploys the factory and the targets on one chain, one step at a time. The first
// failing step aborts the run.
type Orchestrator struct {
	lggr     logger.Logger
	cfg      OrchestratorConfig
	reporter *operations.MemoryReporter
}

// NewOrchestrator returns an Orchestrator for cfg.
func NewOrchestrator(lggr logger.Logger, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		lggr: lggr.Named("orchestrator"),
		cfg:  cfg,
	}
}

// Run bootstraps the factory and deploys every target on chain. Targets which already hold code
// are skipped, so running again against the same chain sends no transactions.
func (o *Orchestrator) Run(ctx context.Context, chain evm.Chain) (Result, error) {
	if err := o.cfg.Validate(); err != nil {
		return Result{}, err
	}
	if chain.Client == nil {
		return Result{}, errors.New("chain has no client")
	}
	chainID, err := chain.ChainID()
	if err != nil {
		return Result{}, err
	}

	o.lggr.Infow("Deploying singletons",
		"chain", chain.String(), "chainID", chainID, "mode", o.cfg.Mode, "targets", len(o.cfg.Targets))

	reporter := operations.NewMemoryReporter()
	o.reporter = reporter
	b := operations.NewBundle(func() context.Context { return ctx }, o.lggr, reporter)

	report, err := operations.ExecuteSequence(b, DeploySingletonsSeq, Deps{
		Chain:    chain,
		Registry: o.cfg.Registry,
	}, DeploySingletonsInput{
		ChainSelector: chain.Selector,
		ChainID:       chainID,
		Mode:          o.cfg.Mode,
		Targets:       o.cfg.Targets,
	})
	if err != nil {
		o.lggr.Errorw("Deployment failed", "chain", chain.String(), "error", err)
		return Result{}, err
	}

	o.lggr.Infow("Deployment finished",
		"chain", chain.String(), "factory", report.Output.Factory.Hex(), "singletons", len(report.Output.Order))

	return report.Output, nil
}

// Reports returns the operation reports of the last run.
func (o *Orchestrator) Reports() []operations.Report[any, any] {
	if o.reporter == nil {
		return nil
	}

	return o.reporter.Reports()
}
