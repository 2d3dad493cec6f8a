// Package catalog loads the agent and pack catalog read at startup.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/robinstudios/dot/internal/agent/packs"
	"github.com/robinstudios/dot/internal/agent/registry"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Affinities maps agent id to per-task relevance bonuses.
type Affinities map[string]map[v1.TaskType]float64

// Bonus returns the relevance bonus of an agent for a task type, 0 if absent.
func (a Affinities) Bonus(agentID string, taskType v1.TaskType) float64 {
	return a[agentID][taskType]
}

// Catalog is the on-disk description of agents, packs and routing tables.
type Catalog struct {
	Version    string                   `yaml:"version"`
	Agents     []v1.Agent               `yaml:"agents"`
	Packs      []v1.Pack                `yaml:"packs"`
	TaskAgents map[v1.TaskType][]string `yaml:"task_agents"`
	Affinities Affinities               `yaml:"affinities"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Affinities == nil {
		c.Affinities = Affinities{}
	}
	return &c, nil
}

// InstalledPackIDs returns the ids of packs flagged installed in the catalog
// followed by the extra ids, without duplicates.
func (c *Catalog) InstalledPackIDs(extra ...string) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range c.Packs {
		if p.Installed {
			add(p.ID)
		}
	}
	for _, id := range extra {
		add(id)
	}
	return ids
}

// Apply registers the catalog's agents, packs and task mapping, then
// installs the catalog's installed packs plus extraInstalled.
func (c *Catalog) Apply(reg *registry.Registry, pm *packs.Manager, log *logger.Logger, extraInstalled ...string) error {
	for _, a := range c.Agents {
		if err := reg.RegisterAgent(a); err != nil {
			return fmt.Errorf("register agent %q: %w", a.ID, err)
		}
	}
	for taskType, ids := range c.TaskAgents {
		reg.SetTaskAgents(taskType, ids)
	}
	for _, p := range c.Packs {
		if err := pm.RegisterPack(p); err != nil {
			return fmt.Errorf("register pack %q: %w", p.ID, err)
		}
	}
	if err := pm.InstallAll(c.InstalledPackIDs(extraInstalled...)); err != nil {
		return fmt.Errorf("install packs: %w", err)
	}

	log.Info("catalog loaded",
		zap.Int("agents", len(c.Agents)),
		zap.Int("packs", len(c.Packs)),
		zap.Int("installed_packs", len(pm.InstalledPacks())))
	return nil
}
