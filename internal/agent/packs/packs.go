// Package packs manages installable agent packs and their dependency graph.
package packs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

var (
	// ErrMissingDependency is matched by every MissingDependencyError.
	ErrMissingDependency = errors.New("missing pack dependency")
	// ErrDependencyCycle is returned when a pack would close a dependency cycle.
	ErrDependencyCycle = errors.New("pack dependency cycle")
	// ErrInvalidPack is returned when a pack descriptor fails validation.
	ErrInvalidPack = errors.New("invalid pack")
)

// MissingDependencyError lists the dependencies that must be installed first.
type MissingDependencyError struct {
	PackID  string
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("pack %q requires %s to be installed first", e.PackID, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is match ErrMissingDependency.
func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}

// Manager holds registered packs and the installed set.
type Manager struct {
	packs     map[string]*v1.Pack
	order     []string
	installed map[string]bool
	mu        sync.RWMutex
	logger    *logger.Logger
}

// NewManager creates an empty pack manager
func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		packs:     make(map[string]*v1.Pack),
		installed: make(map[string]bool),
		logger:    log.WithFields(zap.String("component", "pack-manager")),
	}
}

// RegisterPack adds or replaces a pack descriptor. Agents referenced by the
// pack need not be registered. The Installed flag of the descriptor is
// ignored; use InstallPack. Registering a pack that would close a dependency
// cycle is rejected and leaves the manager unchanged.
func (m *Manager) RegisterPack(pack v1.Pack) error {
	if pack.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPack)
	}
	if !pack.Category.Valid() {
		return fmt.Errorf("%w: pack %q has unknown category %q", ErrInvalidPack, pack.ID, pack.Category)
	}
	pack = clonePack(pack)
	pack.Installed = false

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dep := range pack.Dependencies {
		if dep == pack.ID || m.reachesLocked(dep, pack.ID, map[string]bool{}) {
			return apperrors.UnsupportedConfiguration(
				fmt.Sprintf("pack %q cannot depend on %q", pack.ID, dep),
				fmt.Errorf("%w: %s -> %s", ErrDependencyCycle, pack.ID, dep))
		}
	}

	if _, exists := m.packs[pack.ID]; !exists {
		m.order = append(m.order, pack.ID)
	}
	m.packs[pack.ID] = &pack
	m.logger.Debug("registered pack", zap.String("pack_id", pack.ID))
	return nil
}

// reachesLocked reports whether target is reachable from start along dependency edges.
func (m *Manager) reachesLocked(start, target string, seen map[string]bool) bool {
	if start == target {
		return true
	}
	if seen[start] {
		return false
	}
	seen[start] = true
	p, ok := m.packs[start]
	if !ok {
		return false
	}
	for _, dep := range p.Dependencies {
		if m.reachesLocked(dep, target, seen) {
			return true
		}
	}
	return false
}

// InstallPack marks a pack installed. It fails without mutating the
// installed set when any dependency is not installed. Installing an
// installed pack is a no-op.
func (m *Manager) InstallPack(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pack, ok := m.packs[id]
	if !ok {
		return false, apperrors.NotFound("pack", id)
	}
	if m.installed[id] {
		return true, nil
	}

	var missing []string
	for _, dep := range pack.Dependencies {
		if !m.installed[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		err := &MissingDependencyError{PackID: id, Missing: missing}
		return false, apperrors.UnsupportedConfiguration(err.Error(), err)
	}

	m.installed[id] = true
	m.logger.Info("installed pack", zap.String("pack_id", id))
	return true, nil
}

// InstallAll installs the given packs, resolving their order among
// themselves. Packs whose dependencies cannot be satisfied are left
// uninstalled and reported in the returned error.
func (m *Manager) InstallAll(ids []string) error {
	pending := append([]string(nil), ids...)
	for len(pending) > 0 {
		var next []string
		var lastErr error
		for _, id := range pending {
			if _, err := m.InstallPack(id); err != nil {
				if apperrors.IsNotFound(err) {
					return err
				}
				next = append(next, id)
				lastErr = err
			}
		}
		if len(next) == len(pending) {
			return lastErr
		}
		pending = next
	}
	return nil
}

// UninstallPack removes a pack from the installed set. It fails when an
// installed pack depends on it.
func (m *Manager) UninstallPack(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packs[id]; !ok {
		return apperrors.NotFound("pack", id)
	}
	if !m.installed[id] {
		return nil
	}

	var dependents []string
	for _, other := range m.order {
		if !m.installed[other] {
			continue
		}
		for _, dep := range m.packs[other].Dependencies {
			if dep == id {
				dependents = append(dependents, other)
			}
		}
	}
	if len(dependents) > 0 {
		return apperrors.Conflict(fmt.Sprintf("pack %q is required by installed packs: %s", id, strings.Join(dependents, ", ")))
	}

	delete(m.installed, id)
	m.logger.Info("uninstalled pack", zap.String("pack_id", id))
	return nil
}

// GetPack returns a copy of a registered pack
func (m *Manager) GetPack(id string) (*v1.Pack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.packs[id]
	if !ok {
		return nil, apperrors.NotFound("pack", id)
	}
	c := m.snapshotLocked(p)
	return &c, nil
}

// IsInstalled reports whether a pack is installed
func (m *Manager) IsInstalled(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.installed[id]
}

// ListPacks returns all packs in registration order
func (m *Manager) ListPacks() []v1.Pack {
	return m.filter(func(string) bool { return true })
}

// InstalledPacks returns the installed packs in registration order
func (m *Manager) InstalledPacks() []v1.Pack {
	return m.filter(func(id string) bool { return m.installed[id] })
}

func (m *Manager) filter(keep func(string) bool) []v1.Pack {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]v1.Pack, 0, len(m.order))
	for _, id := range m.order {
		if keep(id) {
			out = append(out, m.snapshotLocked(m.packs[id]))
		}
	}
	return out
}

func (m *Manager) snapshotLocked(p *v1.Pack) v1.Pack {
	c := clonePack(*p)
	c.Installed = m.installed[p.ID]
	return c
}

func clonePack(p v1.Pack) v1.Pack {
	p.AgentIDs = append([]string(nil), p.AgentIDs...)
	p.Capabilities = append([]string(nil), p.Capabilities...)
	p.Dependencies = append([]string(nil), p.Dependencies...)
	return p
}
