package pipeline

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

var (
	fenceTag     = regexp.MustCompile(`^[A-Za-z0-9_+#.-]*$`)
	inlineTagRun = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+\s+`)
)

// StripCodeFences removes a surrounding ```lang ... ``` block, if any. The
// first line after the opening fence is dropped only when it is a bare
// language tag; on a single-line block a tag is dropped when whitespace
// follows it.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	if first, rest, ok := strings.Cut(body, "\n"); ok {
		if fenceTag.MatchString(strings.TrimSpace(first)) {
			body = rest
		}
	} else if loc := inlineTagRun.FindStringIndex(body); loc != nil {
		body = body[loc[1]:]
	}
	return strings.TrimSpace(body)
}

// ParsePlan decodes a planning response into a DesignPlan.
func ParsePlan(raw string) (*v1.DesignPlan, error) {
	text := extractJSON(StripCodeFences(raw), '{', '}')
	if text == "" {
		return nil, &PlanParseError{Raw: raw, Err: errors.New("no JSON object in response")}
	}

	var plan v1.DesignPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, &PlanParseError{Raw: raw, Err: err}
	}
	if plan.Layout == "" && len(plan.Sections) == 0 && len(plan.Components) == 0 {
		return nil, &PlanParseError{Raw: raw, Err: errors.New("plan has no layout, sections or components")}
	}
	return &plan, nil
}

// ParsePromptList decodes a JSON list of strings, dropping blank entries.
func ParsePromptList(raw string) ([]string, error) {
	text := extractJSON(StripCodeFences(raw), '[', ']')
	if text == "" {
		return nil, errors.New("no JSON array in response")
	}
	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, err
	}
	out := list[:0]
	for _, p := range list {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty prompt list")
	}
	return out, nil
}

// extractJSON returns the span from the first open to the last close delimiter.
func extractJSON(s string, open, close byte) string {
	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, close)
	if i < 0 || j < i {
		return ""
	}
	return s[i : j+1]
}

// FallbackPrompt synthesizes a single image prompt from the brief.
func FallbackPrompt(brief v1.Brief) string {
	style := brief.Style
	if style == "" {
		style = "clean"
	}
	return strings.TrimSpace(brief.Prompt) + ", " + style + " style, hero illustration"
}
