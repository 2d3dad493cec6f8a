// Package scoring computes quality heuristics for design artifacts. Scores
// are pure functions of an artifact's declared properties.
package scoring

import (
	"math"
	"strconv"
	"strings"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const (
	// DefaultBaseFontSize is assumed when an artifact declares no base size.
	DefaultBaseFontSize = 16
	// NeutralContrast is the contrast score of a palette with fewer than two colors.
	NeutralContrast = 50

	minReadableFontSize = 16
	darkBrightness      = 50
	lightBrightness     = 205
)

// maxDistance is the Euclidean distance between black and white in RGB.
var maxDistance = math.Sqrt(3 * 255 * 255)

// RGB is a parsed color.
type RGB struct {
	R, G, B int
}

// Brightness is the perceived brightness in [0,255].
func (c RGB) Brightness() float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Distance is the Euclidean distance between two colors in RGB space.
func (c RGB) Distance(o RGB) float64 {
	dr := float64(c.R - o.R)
	dg := float64(c.G - o.G)
	db := float64(c.B - o.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

var namedColors = map[string]RGB{
	"black": {0, 0, 0},
	"white": {255, 255, 255},
	"red":   {255, 0, 0},
	"green": {0, 128, 0},
	"blue":  {0, 0, 255},
	"gray":  {128, 128, 128},
	"grey":  {128, 128, 128},
}

// ParseColor parses #rgb, #rrggbb, rgb(r,g,b) and a few named colors.
func ParseColor(s string) (RGB, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return RGB{}, false
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return RGB{}, false
		}
		return RGB{int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff)}, true
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return RGB{}, false
		}
		var vals [3]int
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || v < 0 || v > 255 {
				return RGB{}, false
			}
			vals[i] = v
		}
		return RGB{vals[0], vals[1], vals[2]}, true
	}
	return RGB{}, false
}

func parsePalette(colors []string) []RGB {
	out := make([]RGB, 0, len(colors))
	for _, c := range colors {
		if rgb, ok := ParseColor(c); ok {
			out = append(out, rgb)
		}
	}
	return out
}

func boolPoints(ok bool, points int) int {
	if ok {
		return points
	}
	return 0
}

// StyleScore rewards color variety, font pairing, grid layout and element richness.
func StyleScore(a *v1.DesignArtifact) int {
	score := boolPoints(len(a.DesignSystem.Colors) >= 3, 30) +
		boolPoints(len(a.DesignSystem.Typography.Fonts) >= 2, 25) +
		boolPoints(a.GridLayout(), 20) +
		boolPoints(richElements(a.Elements), 25)
	if score > 100 {
		score = 100
	}
	return score
}

func richElements(elements []v1.Element) bool {
	if len(elements) >= 5 {
		return true
	}
	for _, e := range elements {
		if len(e.Attributes) >= 3 {
			return true
		}
	}
	return false
}

// ContrastScore is the mean distance between adjacent palette colors scaled
// to [0,100]. Unparseable colors are skipped.
func ContrastScore(a *v1.DesignArtifact) int {
	palette := parsePalette(a.DesignSystem.Colors)
	if len(palette) < 2 {
		return NeutralContrast
	}
	var total float64
	for i := 1; i < len(palette); i++ {
		total += palette[i-1].Distance(palette[i])
	}
	mean := total / float64(len(palette)-1)
	return clamp(int(math.Round(mean / maxDistance * 100)))
}

// AccessibilityScore sums four 25 point checks.
func AccessibilityScore(a *v1.DesignArtifact) int {
	base := a.DesignSystem.Typography.BaseFontSize
	if base == 0 {
		base = DefaultBaseFontSize
	}
	return boolPoints(base >= minReadableFontSize, 25) +
		boolPoints(hasHighContrastColor(a.DesignSystem.Colors), 25) +
		boolPoints(hasAccessibleMetadata(a.Elements), 25) +
		boolPoints(a.Responsive, 25)
}

func hasHighContrastColor(colors []string) bool {
	for _, c := range parsePalette(colors) {
		b := c.Brightness()
		if b <= darkBrightness || b >= lightBrightness {
			return true
		}
	}
	return false
}

func hasAccessibleMetadata(elements []v1.Element) bool {
	for _, e := range elements {
		for k := range e.Attributes {
			k = strings.ToLower(k)
			if k == "alt" || strings.HasPrefix(k, "aria-") {
				return true
			}
		}
	}
	return false
}

// Score computes the full score set of an artifact.
func Score(a *v1.DesignArtifact) v1.ScoreSet {
	return v1.ScoreSet{
		Style:         StyleScore(a),
		Contrast:      ContrastScore(a),
		Accessibility: AccessibilityScore(a),
	}
}

// Apply scores every artifact in place.
func Apply(artifacts []v1.DesignArtifact) {
	for i := range artifacts {
		s := Score(&artifacts[i])
		artifacts[i].Scores = &s
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
