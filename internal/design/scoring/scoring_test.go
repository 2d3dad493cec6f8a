package scoring

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want RGB
		ok   bool
	}{
		{"#ffffff", RGB{255, 255, 255}, true},
		{"#0F172A", RGB{15, 23, 42}, true},
		{"#fff", RGB{255, 255, 255}, true},
		{"rgb(10, 20, 30)", RGB{10, 20, 30}, true},
		{"White", RGB{255, 255, 255}, true},
		{"#12345", RGB{}, false},
		{"rgb(300,0,0)", RGB{}, false},
		{"teal-ish", RGB{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStyleScore(t *testing.T) {
	rich := &v1.DesignArtifact{
		Layout: "grid",
		DesignSystem: v1.DesignSystem{
			Colors:     []string{"#000", "#fff", "#f00"},
			Typography: v1.Typography{Fonts: []string{"Inter", "Merriweather"}},
		},
		Elements: []v1.Element{{Type: "img", Attributes: map[string]string{"src": "a", "alt": "b", "class": "c"}}},
	}
	assert.Equal(t, 100, StyleScore(rich))

	assert.Equal(t, 0, StyleScore(&v1.DesignArtifact{Layout: "single-column"}))
	assert.Equal(t, 20, StyleScore(&v1.DesignArtifact{Layout: "css-grid"}))

	fiveElements := &v1.DesignArtifact{Elements: make([]v1.Element, 5)}
	assert.Equal(t, 25, StyleScore(fiveElements))
}

func TestContrastScore(t *testing.T) {
	assert.Equal(t, NeutralContrast, ContrastScore(&v1.DesignArtifact{}))
	assert.Equal(t, NeutralContrast, ContrastScore(&v1.DesignArtifact{
		DesignSystem: v1.DesignSystem{Colors: []string{"#000000", "not-a-color"}},
	}))

	blackWhite := &v1.DesignArtifact{DesignSystem: v1.DesignSystem{Colors: []string{"#000000", "#ffffff"}}}
	assert.Equal(t, 100, ContrastScore(blackWhite))

	same := &v1.DesignArtifact{DesignSystem: v1.DesignSystem{Colors: []string{"#336699", "#336699"}}}
	assert.Equal(t, 0, ContrastScore(same))

	// adjacent pairs only: black-white (100%) and white-white (0%) average to 50
	adjacent := &v1.DesignArtifact{DesignSystem: v1.DesignSystem{Colors: []string{"#000", "#fff", "#fff"}}}
	assert.Equal(t, 50, ContrastScore(adjacent))
}

func TestAccessibilityScore(t *testing.T) {
	full := &v1.DesignArtifact{
		Responsive: true,
		DesignSystem: v1.DesignSystem{
			Colors:     []string{"#0f172a"},
			Typography: v1.Typography{BaseFontSize: 18},
		},
		Elements: []v1.Element{{Type: "button", Attributes: map[string]string{"aria-label": "Sign up"}}},
	}
	assert.Equal(t, 100, AccessibilityScore(full))

	small := &v1.DesignArtifact{
		DesignSystem: v1.DesignSystem{
			Colors:     []string{"#808080"},
			Typography: v1.Typography{BaseFontSize: 12},
		},
	}
	assert.Equal(t, 0, AccessibilityScore(small))

	assert.Equal(t, 25, AccessibilityScore(&v1.DesignArtifact{}), "unset base size defaults to 16px")
}

func TestScoreBoundsAndOverall(t *testing.T) {
	palettes := [][]string{nil, {"#000"}, {"#000", "#fff"}, {"#123456", "#abcdef", "#fedcba", "red"}}
	layouts := []string{"", "grid", "flex"}
	for i, colors := range palettes {
		for j, layout := range layouts {
			a := &v1.DesignArtifact{
				Layout:     layout,
				Responsive: (i+j)%2 == 0,
				DesignSystem: v1.DesignSystem{
					Colors:     colors,
					Typography: v1.Typography{Fonts: []string{"Inter", "Lora"}[:j%2+1], BaseFontSize: 14 + i},
				},
			}
			t.Run(fmt.Sprintf("%d-%d", i, j), func(t *testing.T) {
				s := Score(a)
				for _, v := range []int{s.Style, s.Contrast, s.Accessibility, s.Overall()} {
					assert.GreaterOrEqual(t, v, 0)
					assert.LessOrEqual(t, v, 100)
				}
				mean := float64(s.Style+s.Contrast+s.Accessibility) / 3
				assert.Equal(t, int(math.Round(mean)), s.Overall())
			})
		}
	}
}

func TestApply(t *testing.T) {
	artifacts := []v1.DesignArtifact{{ID: "a"}, {ID: "b", Responsive: true}}
	Apply(artifacts)
	for _, a := range artifacts {
		assert.NotNil(t, a.Scores)
	}
	assert.Equal(t, 50, artifacts[1].Scores.Accessibility)
}
