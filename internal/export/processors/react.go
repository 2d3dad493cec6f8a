package processors

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

var (
	classAttr   = regexp.MustCompile(`\bclass=`)
	forAttr     = regexp.MustCompile(`\bfor=`)
	voidElement = regexp.MustCompile(`<(img|input|br|hr|meta|link|source)(\s[^<>]*?)?\s*/?>`)
	htmlComment = regexp.MustCompile(`(?s)<!--(.*?)-->`)
)

// toJSX rewrites HTML attributes and void elements into JSX form.
func toJSX(code string) string {
	code = htmlComment.ReplaceAllString(code, "{/*$1*/}")
	code = classAttr.ReplaceAllString(code, "className=")
	code = forAttr.ReplaceAllString(code, "htmlFor=")
	return voidElement.ReplaceAllString(code, "<$1$2 />")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

type packageJSON struct {
	Name            string            `json:"name"`
	Private         bool              `json:"private"`
	Version         string            `json:"version"`
	Type            string            `json:"type,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

func packageName(a v1.DesignArtifact) string {
	id := strings.ToLower(a.ID)
	if len(id) > 8 {
		id = id[:8]
	}
	return "dot-design-" + id
}

func marshalPackage(p packageJSON) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode package.json: %w", err)
	}
	return string(data) + "\n", nil
}

func viteConfig(plugin, importPath string) string {
	return fmt.Sprintf(`import { defineConfig } from 'vite';
import %s from '%s';

export default defineConfig({
  plugins: [%s()],
  build: {
    outDir: 'dist',
    sourcemap: false,
  },
});
`, plugin, importPath, plugin)
}

func tailwindConfig(a v1.DesignArtifact, content string) string {
	var b strings.Builder
	b.WriteString("/** @type {import('tailwindcss').Config} */\nexport default {\n")
	fmt.Fprintf(&b, "  content: [%s],\n", content)
	b.WriteString("  theme: {\n    extend: {\n      colors: {\n")
	for _, v := range colorVars(a.DesignSystem.Colors) {
		fmt.Fprintf(&b, "        '%s': '%s',\n", strings.TrimPrefix(v[0], "color-"), v[1])
	}
	b.WriteString("      },\n")
	if fonts := a.DesignSystem.Typography.Fonts; len(fonts) > 0 {
		b.WriteString("      fontFamily: {\n")
		heading, body := fontStack(fonts)
		fmt.Fprintf(&b, "        heading: [%s],\n", jsList(heading))
		fmt.Fprintf(&b, "        body: [%s],\n", jsList(body))
		b.WriteString("      },\n")
	}
	b.WriteString("    },\n  },\n  plugins: [],\n};\n")
	return b.String()
}

func jsList(stack string) string {
	parts := strings.Split(stack, ",")
	for i, p := range parts {
		parts[i] = "'" + strings.Trim(strings.TrimSpace(p), `"`) + "'"
	}
	return strings.Join(parts, ", ")
}

// React emits a Vite-style React + TypeScript component.
type React struct{}

func (React) Format() v1.ExportFormat { return v1.FormatReact }

func (React) Process(a v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error) {
	code, err := requireCode(a)
	if err != nil {
		return nil, err
	}
	if isDocument(code) {
		code = bodyOf(code)
	}
	jsx := toJSX(code)

	deps := map[string]string{"react": "^18.3.1", "react-dom": "^18.3.1"}
	var styleImport string
	var styleFile v1.ExportFile
	switch cfg.Styling {
	case v1.StylingTailwind:
		styleFile = file("tailwind.config.js", tailwindConfig(a, `'./index.html', './src/**/*.{ts,tsx}'`), MimeJavaScript)
	case v1.StylingStyledComponents:
		deps["styled-components"] = "^6.1.13"
		styleImport = "import { GlobalStyle } from './styles';\n"
		styleFile = file("styles.ts", styledComponentsModule(a, cfg), MimeTypeScript)
	case v1.StylingEmotion:
		deps["@emotion/react"] = "^11.13.3"
		styleImport = "import { Global } from '@emotion/react';\nimport { globalStyles } from './styles';\n"
		styleFile = file("styles.ts", emotionModule(a, cfg), MimeTypeScript)
	default:
		styleImport = "import './App.css';\n"
		styleFile = file("App.css", Stylesheet(a, cfg), MimeCSS)
	}

	var root string
	switch cfg.Styling {
	case v1.StylingStyledComponents:
		root = "<>\n      <GlobalStyle />\n" + indent(jsx, "      ") + "\n    </>"
	case v1.StylingEmotion:
		root = "<>\n      <Global styles={globalStyles} />\n" + indent(jsx, "      ") + "\n    </>"
	default:
		root = "<>\n" + indent(jsx, "      ") + "\n    </>"
	}
	app := fmt.Sprintf("export default function App() {\n  return (\n    %s\n  );\n}\n", root)
	if styleImport != "" {
		app = styleImport + "\n" + app
	}

	pkg := packageJSON{
		Name:         packageName(a),
		Private:      true,
		Version:      "0.1.0",
		Type:         "module",
		Dependencies: deps,
	}
	if cfg.Bundling {
		pkg.Scripts = map[string]string{"dev": "vite", "build": "tsc && vite build", "preview": "vite preview"}
		pkg.DevDependencies = map[string]string{
			"@types/react":         "^18.3.11",
			"@types/react-dom":     "^18.3.1",
			"@vitejs/plugin-react": "^4.3.2",
			"typescript":           "^5.6.3",
			"vite":                 "^5.4.9",
		}
		if cfg.Styling == v1.StylingTailwind {
			pkg.DevDependencies["tailwindcss"] = "^3.4.14"
		}
	}
	pkgData, err := marshalPackage(pkg)
	if err != nil {
		return nil, err
	}

	files := []v1.ExportFile{
		file("App.tsx", app, MimeTypeScript),
		styleFile,
		file("package.json", pkgData, MimeJSON),
	}
	if cfg.Bundling {
		files = append(files, file("vite.config.ts", viteConfig("react", "@vitejs/plugin-react"), MimeTypeScript))
	}
	return &v1.ExportResult{ArtifactID: a.ID, Files: files, Preview: app}, nil
}

func styledComponentsModule(a v1.DesignArtifact, cfg v1.ExportConfig) string {
	return fmt.Sprintf("import { createGlobalStyle } from 'styled-components';\n\nexport const GlobalStyle = createGlobalStyle`\n%s`;\n",
		indent(Stylesheet(a, cfg), "  "))
}

func emotionModule(a v1.DesignArtifact, cfg v1.ExportConfig) string {
	return fmt.Sprintf("import { css } from '@emotion/react';\n\nexport const globalStyles = css`\n%s`;\n",
		indent(Stylesheet(a, cfg), "  "))
}

var bodyContent = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// bodyOf extracts the body markup of a full document.
func bodyOf(doc string) string {
	if m := bodyContent.FindStringSubmatch(doc); m != nil {
		return strings.TrimSpace(m[1])
	}
	return doc
}
