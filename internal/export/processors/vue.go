package processors

import (
	"fmt"
	"strings"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Vue emits a single-file Vue 3 component.
type Vue struct{}

func (Vue) Format() v1.ExportFormat { return v1.FormatVue }

func (Vue) Process(a v1.DesignArtifact, cfg v1.ExportConfig) (*v1.ExportResult, error) {
	code, err := requireCode(a)
	if err != nil {
		return nil, err
	}
	if isDocument(code) {
		code = bodyOf(code)
	}
	if production(cfg) {
		code = CollapseMarkup(code)
	}

	var b strings.Builder
	b.WriteString("<template>\n  <div class=\"app\">\n")
	b.WriteString(indent(code, "    "))
	b.WriteString("\n  </div>\n</template>\n\n")
	b.WriteString("<script setup lang=\"ts\">\n</script>\n")

	deps := map[string]string{"vue": "^3.5.12"}
	switch cfg.Styling {
	case v1.StylingTailwind:
		fmt.Fprintf(&b, "\n<!-- tailwind: %s -->\n", tailwindCDN)
	case v1.StylingStyledComponents:
		deps["vue3-styled-components"] = "^1.2.6"
		fallthrough
	default:
		b.WriteString("\n<style>\n")
		b.WriteString(Stylesheet(a, cfg))
		b.WriteString("</style>\n")
	}
	component := b.String()

	pkg := packageJSON{
		Name:         packageName(a),
		Private:      true,
		Version:      "0.1.0",
		Type:         "module",
		Dependencies: deps,
	}
	if cfg.Bundling {
		pkg.Scripts = map[string]string{"dev": "vite", "build": "vue-tsc && vite build", "preview": "vite preview"}
		pkg.DevDependencies = map[string]string{
			"@vitejs/plugin-vue": "^5.1.4",
			"typescript":         "^5.6.3",
			"vite":               "^5.4.9",
			"vue-tsc":            "^2.1.8",
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
		file("App.vue", component, MimeVue),
		file("package.json", pkgData, MimeJSON),
	}
	if cfg.Bundling {
		files = append(files, file("vite.config.ts", viteConfig("vue", "@vitejs/plugin-vue"), MimeTypeScript))
	}
	return &v1.ExportResult{ArtifactID: a.ID, Files: files, Preview: component}, nil
}
