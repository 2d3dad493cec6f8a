// Package selector ranks candidate agents for a task.
package selector

import (
	"sort"

	"go.uber.org/zap"

	"github.com/robinstudios/dot/internal/agent/catalog"
	"github.com/robinstudios/dot/internal/agent/packs"
	"github.com/robinstudios/dot/internal/agent/registry"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const (
	// MaxResults is the maximum number of agents Select returns.
	MaxResults = 3
	// DefaultPerformance is used for agents without a performance metric.
	DefaultPerformance = 50.0
	// PreferenceBonus is added for agents the user prefers.
	PreferenceBonus = 20.0
)

// UserPreferences carries the user's explicit agent preferences.
type UserPreferences struct {
	PreferredAgents []string `json:"preferred_agents,omitempty"`
}

// SelectionContext is the caller's view of preferences and history.
type SelectionContext struct {
	UserPreferences    UserPreferences    `json:"user_preferences"`
	ProjectHistory     []string           `json:"project_history,omitempty"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics,omitempty"`
}

// ScoredAgent is a ranked candidate.
type ScoredAgent struct {
	Agent v1.Agent `json:"agent"`
	Score float64  `json:"score"`
	Packs []string `json:"packs"`
}

// Selector scores agents drawn from the installed packs relevant to a task.
type Selector struct {
	registry   *registry.Registry
	packs      *packs.Manager
	affinities catalog.Affinities
	logger     *logger.Logger
}

// New creates a selector over the given registry and pack manager.
func New(reg *registry.Registry, pm *packs.Manager, affinities catalog.Affinities, log *logger.Logger) *Selector {
	if affinities == nil {
		affinities = catalog.Affinities{}
	}
	return &Selector{
		registry:   reg,
		packs:      pm,
		affinities: affinities,
		logger:     log.WithFields(zap.String("component", "agent-selector")),
	}
}

// Select returns at most three agents for the task, best first. Ties are
// broken by registration order. Unknown task types draw from the workflow
// pool; Select never fails.
func (s *Selector) Select(task v1.GenerationTask, sc SelectionContext) []ScoredAgent {
	preferred := make(map[string]bool, len(sc.UserPreferences.PreferredAgents))
	for _, id := range sc.UserPreferences.PreferredAgents {
		preferred[id] = true
	}

	type candidate struct {
		scored ScoredAgent
		order  int
	}
	var candidates []*candidate
	byID := make(map[string]*candidate)

	for _, p := range s.relevantPacks(task.Type) {
		for _, id := range p.AgentIDs {
			if c, ok := byID[id]; ok {
				c.scored.Packs = appendUnique(c.scored.Packs, p.ID)
				continue
			}
			agent, err := s.registry.GetAgent(id)
			if err != nil {
				continue
			}
			order, _ := s.registry.Order(id)

			score := DefaultPerformance
			if perf, ok := sc.PerformanceMetrics[id]; ok {
				score = perf
			}
			if preferred[id] {
				score += PreferenceBonus
			}
			score += s.affinities.Bonus(id, task.Type)

			c := &candidate{
				scored: ScoredAgent{Agent: *agent, Score: score, Packs: []string{p.ID}},
				order:  order,
			}
			byID[id] = c
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].scored.Score != candidates[j].scored.Score {
			return candidates[i].scored.Score > candidates[j].scored.Score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > MaxResults {
		candidates = candidates[:MaxResults]
	}
	out := make([]ScoredAgent, len(candidates))
	for i, c := range candidates {
		out[i] = c.scored
	}

	s.logger.Debug("selected agents",
		zap.String("task_type", string(task.Type)),
		zap.Int("candidates", len(byID)),
		zap.Int("returned", len(out)))
	return out
}

// Best returns the highest ranked agent accepted by keep.
func (s *Selector) Best(taskType v1.TaskType, sc SelectionContext, keep func(v1.Agent) bool) (*v1.Agent, bool) {
	for _, c := range s.Select(v1.GenerationTask{Type: taskType}, sc) {
		if keep == nil || keep(c.Agent) {
			a := c.Agent
			return &a, true
		}
	}
	return nil, false
}

// relevantPacks returns installed packs whose category serves the task type
// or that advertise one of its tags.
func (s *Selector) relevantPacks(taskType v1.TaskType) []v1.Pack {
	category := taskType.Category()
	tags := registry.TaskTags(taskType)

	var out []v1.Pack
	for _, p := range s.packs.InstalledPacks() {
		if p.Category == category || p.HasCapability(string(taskType)) || hasAny(&p, tags) {
			out = append(out, p)
		}
	}
	return out
}

func hasAny(p *v1.Pack, tags []string) bool {
	for _, t := range tags {
		if p.HasCapability(t) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
