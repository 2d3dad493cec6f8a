package processors

import (
	"fmt"
	"regexp"
	"strings"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const (
	defaultFontStack = "system-ui, -apple-system, sans-serif"
	defaultFontSize  = 16
	mobileBreakpoint = 768
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	betweenTags   = regexp.MustCompile(`>\s+<`)
	aroundPunct   = regexp.MustCompile(`\s*([{};:,])\s*`)
)

// CollapseMarkup collapses whitespace runs in HTML.
func CollapseMarkup(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	return betweenTags.ReplaceAllString(s, "><")
}

// CollapseCSS collapses whitespace in a stylesheet.
func CollapseCSS(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	return aroundPunct.ReplaceAllString(s, "$1")
}

func production(cfg v1.ExportConfig) bool {
	return cfg.Optimization == v1.OptimizationProduction
}

// colorVars names the palette as CSS custom properties.
func colorVars(colors []string) [][2]string {
	names := []string{"primary", "secondary", "accent", "background", "text"}
	out := make([][2]string, 0, len(colors))
	for i, c := range colors {
		name := fmt.Sprintf("color-%d", i+1)
		if i < len(names) {
			name = "color-" + names[i]
		}
		out = append(out, [2]string{name, c})
	}
	return out
}

func fontStack(fonts []string) (heading, body string) {
	quote := func(f string) string {
		if strings.ContainsAny(f, " ") {
			return fmt.Sprintf("%q", f)
		}
		return f
	}
	switch len(fonts) {
	case 0:
		return defaultFontStack, defaultFontStack
	case 1:
		s := quote(fonts[0]) + ", " + defaultFontStack
		return s, s
	default:
		return quote(fonts[0]) + ", " + defaultFontStack, quote(fonts[1]) + ", " + defaultFontStack
	}
}

func baseFontSize(a v1.DesignArtifact) int {
	if a.DesignSystem.Typography.BaseFontSize > 0 {
		return a.DesignSystem.Typography.BaseFontSize
	}
	return defaultFontSize
}

// Stylesheet renders the design system as plain CSS.
func Stylesheet(a v1.DesignArtifact, cfg v1.ExportConfig) string {
	var b strings.Builder
	vars := colorVars(a.DesignSystem.Colors)
	heading, body := fontStack(a.DesignSystem.Typography.Fonts)

	b.WriteString(":root {\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "  --%s: %s;\n", v[0], v[1])
	}
	fmt.Fprintf(&b, "  --font-heading: %s;\n", heading)
	fmt.Fprintf(&b, "  --font-body: %s;\n", body)
	fmt.Fprintf(&b, "  --font-size-base: %dpx;\n", baseFontSize(a))
	for _, k := range sortedKeys(a.DesignSystem.Spacing) {
		fmt.Fprintf(&b, "  --space-%s: %s;\n", k, a.DesignSystem.Spacing[k])
	}
	b.WriteString("}\n\n")

	b.WriteString("*, *::before, *::after {\n  box-sizing: border-box;\n}\n\n")
	b.WriteString("body {\n  margin: 0;\n  font-family: var(--font-body);\n  font-size: var(--font-size-base);\n")
	if hasVar(vars, "color-background") {
		b.WriteString("  background: var(--color-background);\n")
	}
	if hasVar(vars, "color-text") {
		b.WriteString("  color: var(--color-text);\n")
	}
	b.WriteString("}\n\n")
	b.WriteString("h1, h2, h3, h4, h5, h6 {\n  font-family: var(--font-heading);\n}\n")
	if hasVar(vars, "color-primary") {
		b.WriteString("\na, button {\n  color: var(--color-primary);\n}\n")
	}
	if a.GridLayout() {
		b.WriteString("\n.grid {\n  display: grid;\n  grid-template-columns: repeat(12, 1fr);\n  gap: 1.5rem;\n}\n")
	}
	if cfg.Responsive {
		fmt.Fprintf(&b, "\n@media (max-width: %dpx) {\n", mobileBreakpoint)
		b.WriteString("  body {\n    font-size: calc(var(--font-size-base) * 0.9375);\n  }\n")
		if a.GridLayout() {
			b.WriteString("  .grid {\n    grid-template-columns: 1fr;\n  }\n")
		}
		b.WriteString("  img {\n    max-width: 100%;\n    height: auto;\n  }\n}\n")
	}

	css := b.String()
	if production(cfg) {
		return CollapseCSS(css)
	}
	return css
}

func hasVar(vars [][2]string, name string) bool {
	for _, v := range vars {
		if v[0] == name {
			return true
		}
	}
	return false
}
