package factory

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"sync"

	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// deploymentFile is the file name of an artifact inside its chain id directory.
const deploymentFile = "deployment.json"

// artifacts are the factory deployments compiled into the binary, in the <chainId>/deployment.json
// layout of the safe-singleton-factory package.
//
//go:embed artifacts
var artifacts embed.FS

// Registry maps EVM chain ids to factory Info. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	infos map[uint64]Info
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{infos: make(map[uint64]Info)}
}

// Register adds or replaces the Info for chainID.
func (r *Registry) Register(chainID uint64, info Info) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("invalid factory info for chain %d: %w", chainID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.infos[chainID] = info

	return nil
}

// Lookup returns the Info for chainID.
func (r *Registry) Lookup(chainID uint64) (Info, bool) {
	if r == nil {
		return Info{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.infos[chainID]

	return info, ok
}

// ChainIDs returns the registered chain ids in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.infos))
	for id := range r.infos {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// Default returns the registry of the embedded artifacts.
func Default(lggr logger.Logger) (*Registry, error) {
	sub, err := fs.Sub(artifacts, "artifacts")
	if err != nil {
		return nil, err
	}

	return Load(lggr, sub)
}

// LoadDir returns the registry of an artifacts directory on disk.
func LoadDir(lggr logger.Logger, dir string) (*Registry, error) {
	r, err := Load(lggr, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("factory artifacts dir %s: %w", dir, err)
	}

	return r, nil
}

// Load registers every <chainId>/deployment.json of fsys. Other entries are ignored. An
// artifact which cannot be decoded or fails Verify is logged and skipped, so one broken chain
// does not hide the others. Load fails only when no artifact is usable.
func Load(lggr logger.Logger, fsys fs.FS) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	var skipped []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		chainID, perr := strconv.ParseUint(e.Name(), 10, 64)
		if perr != nil {
			continue
		}

		file := path.Join(e.Name(), deploymentFile)
		info, lerr := readDeployment(fsys, file)
		if errors.Is(lerr, fs.ErrNotExist) {
			continue
		}
		if lerr == nil {
			lerr = r.Register(chainID, info)
		}
		if lerr == nil {
			_, lerr = info.Verify()
		}
		if lerr != nil {
			r.remove(chainID)
			lggr.Warnw("Skipping factory artifact", "chainID", chainID, "file", file, "error", lerr)
			skipped = append(skipped, fmt.Errorf("chain %d: %w", chainID, lerr))
		}
	}

	if len(r.infos) == 0 {
		if len(skipped) > 0 {
			return nil, fmt.Errorf("no usable factory artifacts: %w", errors.Join(skipped...))
		}

		return nil, errors.New("no factory artifacts found")
	}

	return r, nil
}

func (r *Registry) remove(chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.infos, chainID)
}

func readDeployment(fsys fs.FS, file string) (Info, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("failed to decode %s: %w", file, err)
	}

	return info, nil
}
