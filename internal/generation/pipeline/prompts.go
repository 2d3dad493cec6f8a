package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

const planSystemPrompt = `You are a senior product designer. Reply with one JSON object and nothing else, using the keys:
layout (string), description (string), sections (array of strings),
color_scheme {primary, secondary, accent, background, text, palette[]},
typography {heading, body, base_font_size},
components (array of {type, name, attributes{}}), responsive (boolean).`

const draftSystemPrompt = `You are a senior frontend engineer. Reply with the complete markup for the design and nothing else.`

const enhanceSystemPrompt = `You review frontend code. Improve accessibility (alt text, aria labels, contrast), responsiveness and interaction states without changing the design. Reply with the complete improved code and nothing else.`

const assetsSystemPrompt = `You write prompts for an image generation model. Reply with a JSON array of strings and nothing else.`

func planPrompt(brief v1.Brief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brief: %s\n", brief.Prompt)
	fmt.Fprintf(&b, "Design type: %s\n", orDefault(brief.DesignType, "web page"))
	for _, kv := range [][2]string{
		{"Style", brief.Style},
		{"Layout", brief.Layout},
		{"Color scheme", brief.ColorScheme},
		{"Typography", brief.Typography},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
		}
	}
	return b.String()
}

func draftPrompt(plan *v1.DesignPlan, framework string) string {
	return fmt.Sprintf("Target framework: %s\nDesign plan:\n%s\n", framework, planJSON(plan))
}

func enhancePrompt(code string, plan *v1.DesignPlan) string {
	return fmt.Sprintf("Design plan:\n%s\n\nCode:\n%s\n", planJSON(plan), code)
}

func assetsPrompt(plan *v1.DesignPlan, style string) string {
	return fmt.Sprintf("Style: %s\nWrite 1 to 4 image prompts for the imagery this design needs.\nDesign plan:\n%s\n",
		orDefault(style, "clean"), planJSON(plan))
}

func planJSON(plan *v1.DesignPlan) string {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return plan.Description
	}
	return string(data)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
