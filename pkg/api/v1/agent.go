package v1

// CapabilityType is the kind of output an agent produces
type CapabilityType string

const (
	CapabilityText       CapabilityType = "text"
	CapabilityImage      CapabilityType = "image"
	CapabilityCode       CapabilityType = "code"
	CapabilityMultimodal CapabilityType = "multimodal"
)

// Valid reports whether c is a known capability type
func (c CapabilityType) Valid() bool {
	switch c {
	case CapabilityText, CapabilityImage, CapabilityCode, CapabilityMultimodal:
		return true
	}
	return false
}

// Provider identifies the model backend an agent is served by
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Agent is a capability-tagged worker descriptor: one provider/model
// combination plus its specialties.
type Agent struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Provider       Provider       `json:"provider" yaml:"provider"`
	Model          string         `json:"model" yaml:"model"`
	CapabilityType CapabilityType `json:"capability_type" yaml:"capability_type"`
	Specialties    []string       `json:"specialties" yaml:"specialties"`
	IsDefault      bool           `json:"is_default" yaml:"is_default"`
	IsFineTuned    bool           `json:"is_fine_tuned" yaml:"is_fine_tuned"`
}

// HasSpecialty reports whether the agent lists the given specialty tag
func (a *Agent) HasSpecialty(tag string) bool {
	for _, s := range a.Specialties {
		if s == tag {
			return true
		}
	}
	return false
}

// PackCategory groups packs by the kind of work they cover
type PackCategory string

const (
	PackCategoryDesign   PackCategory = "design"
	PackCategoryCode     PackCategory = "code"
	PackCategoryContent  PackCategory = "content"
	PackCategoryWorkflow PackCategory = "workflow"
)

// Valid reports whether c is a known pack category
func (c PackCategory) Valid() bool {
	switch c {
	case PackCategoryDesign, PackCategoryCode, PackCategoryContent, PackCategoryWorkflow:
		return true
	}
	return false
}

// Pack is an installable bundle of agents with capability tags and
// pack-level dependencies.
type Pack struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Category     PackCategory `json:"category" yaml:"category"`
	AgentIDs     []string     `json:"agent_ids" yaml:"agent_ids"`
	Capabilities []string     `json:"capabilities" yaml:"capabilities"`
	Dependencies []string     `json:"dependencies" yaml:"dependencies"`
	Installed    bool         `json:"installed" yaml:"installed"`
}

// HasCapability reports whether the pack advertises the given capability tag
func (p *Pack) HasCapability(tag string) bool {
	for _, c := range p.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// TaskType is the kind of sub-task a generation request is split into
type TaskType string

const (
	TaskDesignGeneration TaskType = "design_generation"
	TaskAssetCreation    TaskType = "asset_creation"
	TaskCodeExport       TaskType = "code_export"
	TaskCopywriting      TaskType = "copywriting"
	TaskBulkExport       TaskType = "bulk_export"
)

// Category returns the pack category that serves this task type.
// Unknown task types are served by the workflow pool.
func (t TaskType) Category() PackCategory {
	switch t {
	case TaskDesignGeneration, TaskAssetCreation:
		return PackCategoryDesign
	case TaskCodeExport:
		return PackCategoryCode
	case TaskCopywriting:
		return PackCategoryContent
	case TaskBulkExport:
		return PackCategoryWorkflow
	}
	return PackCategoryWorkflow
}

// GenerationTask is a single user request routed through the selector
type GenerationTask struct {
	ID      string                 `json:"id"`
	Type    TaskType               `json:"type"`
	Input   map[string]interface{} `json:"input,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}
