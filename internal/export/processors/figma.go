package processors

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/robinstudios/dot/internal/design/scoring"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const (
	frameWidth   = 1440
	mobileWidth  = 390
	nodeHeight   = 120
	framePadding = 40
)

// FigmaColor is a color in Figma's 0..1 channel form.
type FigmaColor struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// FigmaPaint is a named palette entry.
type FigmaPaint struct {
	Name  string     `json:"name"`
	Hex   string     `json:"hex"`
	Color FigmaColor `json:"color"`
}

// FigmaNode is one node of the exported frame tree.
type FigmaNode struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Layout   string            `json:"layoutMode,omitempty"`
	Fills    []FigmaColor      `json:"fills,omitempty"`
	Props    map[string]string `json:"pluginData,omitempty"`
	Children []FigmaNode       `json:"children,omitempty"`
}

// FigmaDocument is the content of design.json.
type FigmaDocument struct {
	Name       string       `json:"name"`
	SourceID   string       `json:"sourceId"`
	Document   FigmaNode    `json:"document"`
	Palette    []FigmaPaint `json:"palette"`
	Typography struct {
		Fonts        []string `json:"fonts"`
		BaseFontSize int      `json:"baseFontSize"`
	} `json:"typography"`
}

// Figma emits a frame/node tree that design tools can import.
type Figma struct{}

func (Figma) Format() v1.ExportFormat { return v1.FormatFigma }

func (Figma) Process(a v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error) {
	doc := BuildFigmaDocument(a, cfg)

	var data []byte
	var err error
	if production(cfg) {
		data, err = json.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("encode design.json: %w", err)
	}

	return &v1.ExportResult{
		ArtifactID: a.ID,
		Files:      []v1.ExportFile{file("design.json", string(data), MimeJSON)},
		Preview:    fmt.Sprintf("%s: %d nodes, %d colors", doc.Name, len(doc.Document.Children), len(doc.Palette)),
	}, nil
}

// BuildFigmaDocument lays the artifact's elements out as a vertical stack of
// nodes inside one frame, plus a mobile frame when responsive.
func BuildFigmaDocument(a v1.DesignArtifact, cfg v1.ExportConfig) FigmaDocument {
	name := firstLine(a.Description)
	if name == "" {
		name = "Design " + a.ID
	}

	var doc FigmaDocument
	doc.Name = name
	doc.SourceID = a.ID
	doc.Palette = make([]FigmaPaint, 0, len(a.DesignSystem.Colors))
	for i, v := range colorVars(a.DesignSystem.Colors) {
		rgb, ok := scoring.ParseColor(v[1])
		if !ok {
			continue
		}
		doc.Palette = append(doc.Palette, FigmaPaint{
			Name:  strings.TrimPrefix(v[0], "color-"),
			Hex:   a.DesignSystem.Colors[i],
			Color: toFigma(rgb),
		})
	}
	doc.Typography.Fonts = append([]string{}, a.DesignSystem.Typography.Fonts...)
	doc.Typography.BaseFontSize = baseFontSize(a)

	desktop := frame("frame-desktop", "Desktop", a, frameWidth, doc.Palette)
	doc.Document = FigmaNode{
		ID:       "0:0",
		Name:     name,
		Type:     "DOCUMENT",
		Children: []FigmaNode{desktop},
	}
	if cfg.Responsive || a.Responsive {
		doc.Document.Children = append(doc.Document.Children,
			frame("frame-mobile", "Mobile", a, mobileWidth, doc.Palette))
		doc.Document.Children[1].X = frameWidth + framePadding*2
	}
	return doc
}

func frame(id, name string, a v1.DesignArtifact, width int, palette []FigmaPaint) FigmaNode {
	f := FigmaNode{
		ID:     id,
		Name:   name,
		Type:   "FRAME",
		Width:  width,
		Layout: layoutMode(a),
	}
	for _, p := range palette {
		if p.Name == "background" {
			f.Fills = []FigmaColor{p.Color}
		}
	}

	y := framePadding
	for i, el := range a.Elements {
		f.Children = append(f.Children, FigmaNode{
			ID:     fmt.Sprintf("%s:%d", id, i+1),
			Name:   elementName(el, i),
			Type:   nodeType(el.Type),
			X:      framePadding,
			Y:      y,
			Width:  width - 2*framePadding,
			Height: nodeHeight,
			Props:  el.Attributes,
		})
		y += nodeHeight + framePadding/2
	}
	f.Height = y + framePadding/2
	return f
}

func elementName(el v1.Element, i int) string {
	if n := el.Attributes["name"]; n != "" {
		return n
	}
	if el.Type == "" {
		return fmt.Sprintf("Element %d", i+1)
	}
	return fmt.Sprintf("%s %d", el.Type, i+1)
}

func nodeType(elementType string) string {
	switch strings.ToLower(elementType) {
	case "img", "image", "picture", "svg", "video":
		return "RECTANGLE"
	case "h1", "h2", "h3", "h4", "h5", "h6", "p", "span", "label", "text", "a":
		return "TEXT"
	default:
		return "FRAME"
	}
}

func layoutMode(a v1.DesignArtifact) string {
	if a.GridLayout() {
		return "GRID"
	}
	switch strings.ToLower(a.Layout) {
	case "horizontal", "row":
		return "HORIZONTAL"
	default:
		return "VERTICAL"
	}
}

func toFigma(c scoring.RGB) FigmaColor {
	round := func(v int) float64 { return math.Round(float64(v)/255*1000) / 1000 }
	return FigmaColor{R: round(c.R), G: round(c.G), B: round(c.B), A: 1}
}
