// Package registry manages the catalog of agents and the task→agent mapping.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// ErrInvalidAgent is returned when an agent descriptor fails validation.
var ErrInvalidAgent = errors.New("invalid agent")

// taskTags lists the specialty tags each task type requires. Used when no
// explicit agent list is mapped for a task.
var taskTags = map[v1.TaskType][]string{
	v1.TaskDesignGeneration: {"ui-design", "layout", "visual-design"},
	v1.TaskAssetCreation:    {"image-generation", "illustration", "assets"},
	v1.TaskCodeExport:       {"code-generation", "frontend"},
	v1.TaskCopywriting:      {"copywriting", "content", "ux-writing"},
	v1.TaskBulkExport:       {"automation", "batch"},
}

// TaskTags returns the specialty tags required by a task type.
// Unknown task types have no tags.
func TaskTags(taskType v1.TaskType) []string {
	return append([]string(nil), taskTags[taskType]...)
}

type entry struct {
	agent v1.Agent
	order int
}

// Registry holds registered agents. Reads run concurrently; writes are serialized.
type Registry struct {
	agents     map[string]*entry
	taskAgents map[v1.TaskType][]string
	nextOrder  int
	mu         sync.RWMutex
	logger     *logger.Logger
}

// NewRegistry creates an empty agent registry
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		agents:     make(map[string]*entry),
		taskAgents: make(map[v1.TaskType][]string),
		logger:     log.WithFields(zap.String("component", "agent-registry")),
	}
}

// RegisterAgent upserts an agent by id. The first registration fixes the
// agent's registration order; later upserts replace the descriptor only.
func (r *Registry) RegisterAgent(agent v1.Agent) error {
	if err := ValidateAgent(&agent); err != nil {
		return err
	}
	agent = cloneAgent(agent)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.agents[agent.ID]; ok {
		existing.agent = agent
		r.logger.Debug("updated agent", zap.String("agent_id", agent.ID))
		return nil
	}

	r.agents[agent.ID] = &entry{agent: agent, order: r.nextOrder}
	r.nextOrder++
	r.logger.Info("registered agent",
		zap.String("agent_id", agent.ID),
		zap.String("provider", string(agent.Provider)),
		zap.String("model", agent.Model))
	return nil
}

// GetAgent returns a copy of a registered agent
func (r *Registry) GetAgent(id string) (*v1.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.agents[id]
	if !ok {
		return nil, apperrors.NotFound("agent", id)
	}
	a := cloneAgent(e.agent)
	return &a, nil
}

// Order returns the registration order of an agent
func (r *Registry) Order(id string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[id]
	if !ok {
		return 0, false
	}
	return e.order, true
}

// ListAgents returns all agents in registration order
func (r *Registry) ListAgents() []v1.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(*entry) bool { return true })
}

// SetTaskAgents sets the explicit agent list for a task type.
func (r *Registry) SetTaskAgents(taskType v1.TaskType, agentIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskAgents[taskType] = append([]string(nil), agentIDs...)
}

// GetAgentsForTask returns the ids of agents serving a task type, in
// registration order. Registered agents from the explicit mapping win;
// otherwise any agent whose specialties intersect the task's tags is used.
func (r *Registry) GetAgentsForTask(taskType v1.TaskType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mapped := make(map[string]bool)
	for _, id := range r.taskAgents[taskType] {
		mapped[id] = true
	}
	agents := r.sortedLocked(func(e *entry) bool { return mapped[e.agent.ID] })

	if len(agents) == 0 {
		tags := taskTags[taskType]
		agents = r.sortedLocked(func(e *entry) bool {
			for _, tag := range tags {
				if e.agent.HasSpecialty(tag) {
					return true
				}
			}
			return false
		})
	}

	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	return ids
}

func (r *Registry) sortedLocked(keep func(*entry) bool) []v1.Agent {
	entries := make([]*entry, 0, len(r.agents))
	for _, e := range r.agents {
		if keep(e) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	out := make([]v1.Agent, len(entries))
	for i, e := range entries {
		out[i] = cloneAgent(e.agent)
	}
	return out
}

func cloneAgent(a v1.Agent) v1.Agent {
	a.Specialties = append([]string(nil), a.Specialties...)
	return a
}

// ValidateAgent validates an agent descriptor
func ValidateAgent(agent *v1.Agent) error {
	if agent.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAgent)
	}
	if agent.Name == "" {
		return fmt.Errorf("%w: agent %q has no name", ErrInvalidAgent, agent.ID)
	}
	if !agent.CapabilityType.Valid() {
		return fmt.Errorf("%w: agent %q has unknown capability type %q", ErrInvalidAgent, agent.ID, agent.CapabilityType)
	}
	switch agent.Provider {
	case v1.ProviderOpenAI, v1.ProviderAnthropic:
	default:
		return fmt.Errorf("%w: agent %q has unknown provider %q", ErrInvalidAgent, agent.ID, agent.Provider)
	}
	return nil
}
