// Package processors turns design artifacts into framework code bundles.
// Processors are pure: the same artifact and configuration always yield
// the same files.
package processors

import (
	"errors"
	"sort"
	"strings"
	"sync"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// ErrNoCode is returned for artifacts without markup to convert.
var ErrNoCode = errors.New("artifact has no code")

// MIME types of emitted files.
const (
	MimeHTML       = "text/html"
	MimeCSS        = "text/css"
	MimeTypeScript = "text/typescript"
	MimeJavaScript = "text/javascript"
	MimeJSON       = "application/json"
	MimeVue        = "text/x-vue"
)

// Processor converts one artifact for one export format.
type Processor interface {
	Format() v1.ExportFormat
	Process(artifact v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error)
}

// Func adapts a function to Processor.
type Func struct {
	F    v1.ExportFormat
	Impl func(artifact v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error)
}

func (f Func) Format() v1.ExportFormat { return f.F }

func (f Func) Process(artifact v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error) {
	return f.Impl(artifact, cfg)
}

// Registry maps export formats to processors.
type Registry struct {
	mu         sync.RWMutex
	processors map[v1.ExportFormat]Processor
}

// NewRegistry creates a registry holding the given processors.
func NewRegistry(ps ...Processor) *Registry {
	r := &Registry{processors: make(map[v1.ExportFormat]Processor)}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Default returns a registry with the html, react, vue and figma processors.
func Default() *Registry {
	return NewRegistry(HTML{}, React{}, Vue{}, Figma{})
}

// Register adds or replaces the processor for its format.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Format()] = p
}

// Get returns the processor for a format.
func (r *Registry) Get(format v1.ExportFormat) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[format]
	return p, ok
}

// Formats lists the supported formats, sorted.
func (r *Registry) Formats() []v1.ExportFormat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]v1.ExportFormat, 0, len(r.processors))
	for f := range r.processors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func requireCode(a v1.DesignArtifact) (string, error) {
	code := strings.TrimSpace(a.Code)
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

func file(name, content, mime string) v1.ExportFile {
	return v1.ExportFile{Name: name, Content: content, MimeType: mime}
}
