package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/robinstudios/dot/internal/common/errors"
	"github.com/robinstudios/dot/internal/common/logger"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

func newTestLogger() *logger.Logger {
	log, _ := logger.NewLogger(logger.LoggingConfig{
		Level:  "error",
		Format: "json",
	})
	return log
}

func testAgent(id string, specialties ...string) v1.Agent {
	return v1.Agent{
		ID:             id,
		Name:           "Agent " + id,
		Provider:       v1.ProviderOpenAI,
		Model:          "gpt-4o",
		CapabilityType: v1.CapabilityText,
		Specialties:    specialties,
	}
}

func TestRegistry_RegisterAgentIsIdempotentUpsert(t *testing.T) {
	reg := NewRegistry(newTestLogger())

	require.NoError(t, reg.RegisterAgent(testAgent("a")))
	require.NoError(t, reg.RegisterAgent(testAgent("b")))

	updated := testAgent("a")
	updated.Name = "Renamed"
	require.NoError(t, reg.RegisterAgent(updated))

	agents := reg.ListAgents()
	require.Len(t, agents, 2)
	assert.Equal(t, "a", agents[0].ID)
	assert.Equal(t, "Renamed", agents[0].Name)
	assert.Equal(t, "b", agents[1].ID)

	order, ok := reg.Order("a")
	assert.True(t, ok)
	assert.Equal(t, 0, order)
}

func TestRegistry_RegisterAgentValidation(t *testing.T) {
	reg := NewRegistry(newTestLogger())

	tests := []struct {
		name  string
		agent v1.Agent
	}{
		{"missing id", v1.Agent{Name: "x", Provider: v1.ProviderOpenAI, CapabilityType: v1.CapabilityText}},
		{"missing name", v1.Agent{ID: "x", Provider: v1.ProviderOpenAI, CapabilityType: v1.CapabilityText}},
		{"bad capability", v1.Agent{ID: "x", Name: "x", Provider: v1.ProviderOpenAI, CapabilityType: "audio"}},
		{"bad provider", v1.Agent{ID: "x", Name: "x", Provider: "acme", CapabilityType: v1.CapabilityText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.RegisterAgent(tt.agent)
			assert.True(t, errors.Is(err, ErrInvalidAgent))
		})
	}
	assert.Empty(t, reg.ListAgents())
}

func TestRegistry_GetAgent(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	require.NoError(t, reg.RegisterAgent(testAgent("a", "layout")))

	agent, err := reg.GetAgent("a")
	require.NoError(t, err)
	agent.Specialties[0] = "mutated"

	again, err := reg.GetAgent("a")
	require.NoError(t, err)
	assert.Equal(t, "layout", again.Specialties[0])

	_, err = reg.GetAgent("missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRegistry_GetAgentsForTask(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	require.NoError(t, reg.RegisterAgent(testAgent("coder", "code-generation")))
	require.NoError(t, reg.RegisterAgent(testAgent("designer", "ui-design")))
	require.NoError(t, reg.RegisterAgent(testAgent("writer", "copywriting")))
	require.NoError(t, reg.RegisterAgent(testAgent("hybrid", "layout", "frontend")))

	t.Run("specialty fallback in registration order", func(t *testing.T) {
		assert.Equal(t, []string{"designer", "hybrid"}, reg.GetAgentsForTask(v1.TaskDesignGeneration))
		assert.Equal(t, []string{"coder", "hybrid"}, reg.GetAgentsForTask(v1.TaskCodeExport))
	})

	t.Run("explicit mapping wins", func(t *testing.T) {
		reg.SetTaskAgents(v1.TaskCopywriting, []string{"hybrid", "writer", "ghost"})
		assert.Equal(t, []string{"writer", "hybrid"}, reg.GetAgentsForTask(v1.TaskCopywriting))
	})

	t.Run("unknown task type", func(t *testing.T) {
		assert.Empty(t, reg.GetAgentsForTask("translate"))
	})
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(newTestLogger())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = reg.RegisterAgent(testAgent(string(rune('a'+i)), "layout"))
		}(i)
		go func() {
			defer wg.Done()
			_ = reg.GetAgentsForTask(v1.TaskDesignGeneration)
			_ = reg.ListAgents()
		}()
	}
	wg.Wait()
	assert.Len(t, reg.ListAgents(), 20)
}
