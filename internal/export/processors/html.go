package processors

import (
	"bytes"
	"html"
	"sort"
	"strings"
	"text/template"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const tailwindCDN = "https://cdn.tailwindcss.com"

var pageTemplate = template.Must(template.New("index.html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
{{- if .Responsive}}
  <meta name="viewport" content="width=device-width, initial-scale=1">
{{- end}}
  <title>{{.Title}}</title>
{{- if .Tailwind}}
  <script src="{{.TailwindCDN}}"></script>
{{- end}}
  <link rel="stylesheet" href="styles.css">
</head>
<body>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title       string
	Body        string
	Responsive  bool
	Tailwind    bool
	TailwindCDN string
}

// HTML emits a static page: index.html and styles.css.
type HTML struct{}

func (HTML) Format() v1.ExportFormat { return v1.FormatHTML }

func (HTML) Process(a v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error) {
	code, err := requireCode(a)
	if err != nil {
		return nil, err
	}
	page, err := renderPage(a, code, cfg)
	if err != nil {
		return nil, err
	}
	return &v1.ExportResult{
		ArtifactID: a.ID,
		Files: []v1.ExportFile{
			file("index.html", page, MimeHTML),
			file("styles.css", Stylesheet(a, cfg), MimeCSS),
		},
		Preview: page,
	}, nil
}

// renderPage wraps markup in a complete document. Markup that already is a
// document is kept as is.
func renderPage(a v1.DesignArtifact, code string, cfg v1.ExportConfig) (string, error) {
	var out string
	if isDocument(code) {
		out = code
	} else {
		title := a.Description
		if title == "" {
			title = "Design " + a.ID
		}
		var buf bytes.Buffer
		err := pageTemplate.Execute(&buf, pageData{
			Title:       html.EscapeString(firstLine(title)),
			Body:        code,
			Responsive:  cfg.Responsive,
			Tailwind:    cfg.Styling == v1.StylingTailwind,
			TailwindCDN: tailwindCDN,
		})
		if err != nil {
			return "", err
		}
		out = buf.String()
	}
	if production(cfg) {
		return CollapseMarkup(out), nil
	}
	return out, nil
}

func isDocument(code string) bool {
	lower := strings.ToLower(code)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
