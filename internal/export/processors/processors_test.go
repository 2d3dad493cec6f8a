package processors

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

func sampleArtifact() v1.DesignArtifact {
	return v1.DesignArtifact{
		ID:          "3f2b8c1a-aaaa-bbbb-cccc-000000000001",
		Code:        "<main class=\"grid\">\n  <h1>Ship faster</h1>\n  <img src=\"hero.png\" alt=\"Hero\">\n  <label for=\"email\">Email</label>\n</main>",
		Description: "Modern SaaS landing page",
		DesignSystem: v1.DesignSystem{
			Colors:     []string{"#1e3a8a", "#f8fafc", "#f59e0b", "#ffffff", "#0f172a"},
			Typography: v1.Typography{Fonts: []string{"Inter", "Source Sans"}, BaseFontSize: 16},
		},
		Layout:     "grid",
		Responsive: true,
		Elements: []v1.Element{
			{Type: "h1"},
			{Type: "img", Attributes: map[string]string{"alt": "Hero"}},
			{Type: "button"},
		},
	}
}

func fileNames(r *v1.ExportResult) []string {
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Name
	}
	return names
}

func fileContent(t *testing.T, r *v1.ExportResult, name string) string {
	t.Helper()
	for _, f := range r.Files {
		if f.Name == name {
			return f.Content
		}
	}
	t.Fatalf("file %s not emitted", name)
	return ""
}

func TestHTML(t *testing.T) {
	cfg := v1.ExportConfig{Format: v1.FormatHTML, Responsive: true}.WithDefaults()

	res, err := HTML{}.Process(sampleArtifact(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html", "styles.css"}, fileNames(res))
	assert.Empty(t, res.Errors)
	page := fileContent(t, res, "index.html")
	assert.Contains(t, page, `<meta name="viewport"`)
	assert.Contains(t, page, `<link rel="stylesheet" href="styles.css">`)
	assert.Contains(t, page, "<title>Modern SaaS landing page</title>")
	assert.Contains(t, page, "<h1>Ship faster</h1>")
	assert.NotContains(t, page, tailwindCDN)

	css := fileContent(t, res, "styles.css")
	assert.Contains(t, css, "--color-primary: #1e3a8a;")
	assert.Contains(t, css, "@media (max-width: 768px)")
	assert.Contains(t, css, `"Source Sans"`)
	assert.Equal(t, MimeHTML, res.Files[0].MimeType)
}

func TestHTML_TailwindAndNonResponsive(t *testing.T) {
	cfg := v1.ExportConfig{Format: v1.FormatHTML, Styling: v1.StylingTailwind}.WithDefaults()

	res, err := HTML{}.Process(sampleArtifact(), cfg)
	require.NoError(t, err)

	page := fileContent(t, res, "index.html")
	assert.Contains(t, page, tailwindCDN)
	assert.NotContains(t, page, "viewport")
	assert.NotContains(t, fileContent(t, res, "styles.css"), "@media")
}

func TestHTML_ProductionCollapsesWhitespace(t *testing.T) {
	cfg := v1.ExportConfig{Format: v1.FormatHTML, Optimization: v1.OptimizationProduction, Responsive: true}.WithDefaults()

	res, err := HTML{}.Process(sampleArtifact(), cfg)
	require.NoError(t, err)

	page := fileContent(t, res, "index.html")
	assert.NotContains(t, page, "\n")
	assert.Contains(t, page, "<main class=\"grid\"><h1>Ship faster</h1>")
	css := fileContent(t, res, "styles.css")
	assert.NotContains(t, css, "\n")
	assert.Contains(t, css, "--color-primary:#1e3a8a;")
}

func TestHTML_NoCode(t *testing.T) {
	a := sampleArtifact()
	a.Code = "   "
	_, err := HTML{}.Process(a, v1.ExportConfig{Format: v1.FormatHTML}.WithDefaults())
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestReact(t *testing.T) {
	t.Run("css without bundling", func(t *testing.T) {
		res, err := React{}.Process(sampleArtifact(), v1.ExportConfig{Format: v1.FormatReact}.WithDefaults())
		require.NoError(t, err)

		assert.Equal(t, []string{"App.tsx", "App.css", "package.json"}, fileNames(res))
		app := fileContent(t, res, "App.tsx")
		assert.Contains(t, app, "import './App.css';")
		assert.Contains(t, app, `className="grid"`)
		assert.Contains(t, app, `htmlFor="email"`)
		assert.Contains(t, app, `<img src="hero.png" alt="Hero" />`)
		assert.NotContains(t, app, `class=`)
	})

	t.Run("styling variants", func(t *testing.T) {
		cases := map[v1.Styling]string{
			v1.StylingTailwind:         "tailwind.config.js",
			v1.StylingStyledComponents: "styles.ts",
			v1.StylingEmotion:          "styles.ts",
		}
		for styling, want := range cases {
			res, err := React{}.Process(sampleArtifact(), v1.ExportConfig{Format: v1.FormatReact, Styling: styling}.WithDefaults())
			require.NoError(t, err, styling)
			assert.Equal(t, want, res.Files[1].Name, styling)
		}
	})

	t.Run("bundling adds vite", func(t *testing.T) {
		res, err := React{}.Process(sampleArtifact(), v1.ExportConfig{Format: v1.FormatReact, Bundling: true}.WithDefaults())
		require.NoError(t, err)

		assert.Equal(t, []string{"App.tsx", "App.css", "package.json", "vite.config.ts"}, fileNames(res))
		var pkg packageJSON
		require.NoError(t, json.Unmarshal([]byte(fileContent(t, res, "package.json")), &pkg))
		assert.Contains(t, pkg.DevDependencies, "vite")
		assert.Equal(t, "vite build", strings.TrimPrefix(pkg.Scripts["build"], "tsc && "))
		assert.Equal(t, "dot-design-3f2b8c1a", pkg.Name)
	})
}

func TestVue(t *testing.T) {
	res, err := Vue{}.Process(sampleArtifact(), v1.ExportConfig{Format: v1.FormatVue}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, []string{"App.vue", "package.json"}, fileNames(res))

	component := fileContent(t, res, "App.vue")
	assert.True(t, strings.HasPrefix(component, "<template>"))
	assert.Contains(t, component, "<h1>Ship faster</h1>")
	assert.Contains(t, component, "<style>")

	res, err = Vue{}.Process(sampleArtifact(), v1.ExportConfig{Format: v1.FormatVue, Bundling: true}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, []string{"App.vue", "package.json", "vite.config.ts"}, fileNames(res))
	assert.Contains(t, fileContent(t, res, "vite.config.ts"), "@vitejs/plugin-vue")
}

func TestFigma(t *testing.T) {
	res, err := Figma{}.Process(sampleArtifact(), v1.ExportConfig{Format: v1.FormatFigma}.WithDefaults())
	require.NoError(t, err)
	require.Equal(t, []string{"design.json"}, fileNames(res))

	var doc FigmaDocument
	require.NoError(t, json.Unmarshal([]byte(res.Files[0].Content), &doc))
	assert.Equal(t, "Modern SaaS landing page", doc.Name)
	require.Len(t, doc.Palette, 5)
	assert.Equal(t, "primary", doc.Palette[0].Name)
	assert.Equal(t, 1.0, doc.Palette[3].Color.R)
	assert.Equal(t, 16, doc.Typography.BaseFontSize)

	require.Len(t, doc.Document.Children, 2)
	desktop := doc.Document.Children[0]
	assert.Equal(t, "GRID", desktop.Layout)
	require.Len(t, desktop.Children, 3)
	assert.Equal(t, "TEXT", desktop.Children[0].Type)
	assert.Equal(t, "RECTANGLE", desktop.Children[1].Type)
	assert.Equal(t, mobileWidth, doc.Document.Children[1].Width)
}

func TestFigma_EmptyArtifact(t *testing.T) {
	res, err := Figma{}.Process(v1.DesignArtifact{ID: "x"}, v1.ExportConfig{Format: v1.FormatFigma, Optimization: v1.OptimizationProduction})
	require.NoError(t, err)
	assert.NotContains(t, res.Files[0].Content, "\n")
}

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []v1.ExportFormat{v1.FormatFigma, v1.FormatHTML, v1.FormatReact, v1.FormatVue}, r.Formats())

	_, ok := r.Get(v1.FormatAngular)
	assert.False(t, ok)

	p, ok := r.Get(v1.FormatHTML)
	require.True(t, ok)
	assert.Equal(t, v1.FormatHTML, p.Format())

	r.Register(Func{F: v1.FormatAngular, Impl: func(a v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error) {
		return &v1.ExportResult{ArtifactID: a.ID}, nil
	}})
	_, ok = r.Get(v1.FormatAngular)
	assert.True(t, ok)
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "<ul><li>a b</li></ul>", CollapseMarkup("<ul>\n  <li>a\n   b</li>\n</ul>\n"))
	assert.Equal(t, "a{color:red;margin:0}", CollapseCSS("a {\n  color: red;\n  margin: 0\n}\n"))
}

func TestGridLayoutVariants(t *testing.T) {
	cfg := v1.ExportConfig{Format: v1.FormatHTML, Responsive: true}.WithDefaults()
	for _, layout := range []string{"grid", "css-grid", "Grid"} {
		a := sampleArtifact()
		a.Layout = layout
		css := Stylesheet(a, cfg)
		assert.Contains(t, css, "display: grid", layout)
		assert.Contains(t, css, "grid-template-columns: 1fr", layout)
		assert.Equal(t, "GRID", layoutMode(a), layout)
	}

	a := sampleArtifact()
	a.Layout = "flex"
	assert.NotContains(t, Stylesheet(a, cfg), "display: grid")
	assert.Equal(t, "VERTICAL", layoutMode(a))
}
