package v1

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Brief is a generation request as submitted by the UI layer
type Brief struct {
	Prompt          string `json:"prompt"`
	Style           string `json:"style,omitempty"`
	Layout          string `json:"layout,omitempty"`
	ColorScheme     string `json:"color_scheme,omitempty"`
	Typography      string `json:"typography,omitempty"`
	DesignType      string `json:"design_type,omitempty"`
	TargetFramework string `json:"target_framework,omitempty"`
}

// ColorScheme is the palette a plan commits to
type ColorScheme struct {
	Primary    string   `json:"primary,omitempty"`
	Secondary  string   `json:"secondary,omitempty"`
	Accent     string   `json:"accent,omitempty"`
	Background string   `json:"background,omitempty"`
	Text       string   `json:"text,omitempty"`
	Palette    []string `json:"palette,omitempty"`
}

// Colors returns the named colors followed by any extra palette entries,
// in declaration order and without duplicates.
func (c ColorScheme) Colors() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 5+len(c.Palette))
	for _, col := range append([]string{c.Primary, c.Secondary, c.Accent, c.Background, c.Text}, c.Palette...) {
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return out
}

// PlanTypography is the font pairing chosen by a plan
type PlanTypography struct {
	Heading      string `json:"heading,omitempty"`
	Body         string `json:"body,omitempty"`
	BaseFontSize int    `json:"base_font_size,omitempty"`
}

// Component is a UI building block listed by a plan
type Component struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DesignPlan is the structured outcome of the planning stage
type DesignPlan struct {
	Layout      string         `json:"layout"`
	Description string         `json:"description,omitempty"`
	Sections    []string       `json:"sections"`
	ColorScheme ColorScheme    `json:"color_scheme"`
	Typography  PlanTypography `json:"typography"`
	Components  []Component    `json:"components"`
	Responsive  bool           `json:"responsive"`
}

// Typography is the font set of a finished artifact
type Typography struct {
	Fonts        []string `json:"fonts"`
	BaseFontSize int      `json:"base_font_size"`
}

// DesignSystem holds the design tokens an artifact declares
type DesignSystem struct {
	Colors     []string          `json:"colors"`
	Typography Typography        `json:"typography"`
	Spacing    map[string]string `json:"spacing,omitempty"`
}

// Element is a declared element of an artifact, used for scoring
type Element struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DesignArtifact is one generated design candidate (a "mockup")
type DesignArtifact struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Description  string       `json:"description"`
	DesignSystem DesignSystem `json:"design_system"`
	ImagePrompts []string     `json:"image_prompts"`
	Style        string       `json:"style,omitempty"`
	Layout       string       `json:"layout,omitempty"`
	Elements     []Element    `json:"elements,omitempty"`
	Responsive   bool         `json:"responsive"`
	Framework    string       `json:"framework,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	Scores       *ScoreSet    `json:"scores,omitempty"`
	Cluster      string       `json:"cluster,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// GridLayout reports whether the artifact's layout is a grid variant such as
// "grid" or "css-grid".
func (a *DesignArtifact) GridLayout() bool {
	return strings.Contains(strings.ToLower(a.Layout), "grid")
}

// ScoreSet holds the quality sub-scores of an artifact. The overall score is
// always derived from the sub-scores.
type ScoreSet struct {
	Style         int `json:"style_score"`
	Contrast      int `json:"contrast_score"`
	Accessibility int `json:"accessibility_score"`
}

// Overall returns the rounded mean of the three sub-scores
func (s ScoreSet) Overall() int {
	return int(math.Round(float64(s.Style+s.Contrast+s.Accessibility) / 3))
}

type scoreSetJSON struct {
	Style         int `json:"style_score"`
	Contrast      int `json:"contrast_score"`
	Accessibility int `json:"accessibility_score"`
	Overall       int `json:"overall_score"`
}

// MarshalJSON emits the sub-scores together with the derived overall score
func (s ScoreSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoreSetJSON{
		Style:         s.Style,
		Contrast:      s.Contrast,
		Accessibility: s.Accessibility,
		Overall:       s.Overall(),
	})
}

// UnmarshalJSON reads the sub-scores; a submitted overall score is ignored.
func (s *ScoreSet) UnmarshalJSON(data []byte) error {
	var raw scoreSetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Style = raw.Style
	s.Contrast = raw.Contrast
	s.Accessibility = raw.Accessibility
	return nil
}

// ClusterAssignment is a derived grouping of artifacts sharing a style
type ClusterAssignment struct {
	ClusterName  string   `json:"cluster_name"`
	Members      []string `json:"members"`
	TopMemberID  string   `json:"top_member_id"`
	AverageScore float64  `json:"average_score"`
}
