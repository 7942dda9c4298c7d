package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/design-overlay/pkg/types"
)

// FallbackZone is a centred chest area used when the model answer is unusable
var FallbackZone = types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

func fallbackResult(label, description string, tags ...string) *types.PrintZoneResult {
	return &types.PrintZoneResult{
		Zone: types.PrintZone{
			Label:      label,
			Confidence: 0.1,
			Box:        FallbackZone,
		},
		Description: description,
		Tags:        tags,
	}
}

// ParsePrintZoneResult parses the JSON answer of a vision model. It never
// fails: unusable answers yield a low confidence fallback zone.
func ParsePrintZoneResult(raw string) *types.PrintZoneResult {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return fallbackResult("unclear image", "Model returned non-JSON response", "unclear", "non-json", "fallback")
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return fallbackResult("parse error", "Failed to parse model response", "parse-error", "fallback")
	}
	return answer.result()
}

// modelAnswer is the JSON shape requested from the model. Models sometimes
// quote numbers, so numeric fields decode leniently.
type modelAnswer struct {
	Zone struct {
		Label      string       `json:"label"`
		Confidence types.Number `json:"confidence"`
		Box        struct {
			X types.Number `json:"x"`
			Y types.Number `json:"y"`
			W types.Number `json:"w"`
			H types.Number `json:"h"`
		} `json:"box"`
	} `json:"zone"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (a modelAnswer) result() *types.PrintZoneResult {
	return &types.PrintZoneResult{
		Zone: types.PrintZone{
			Label:      a.Zone.Label,
			Confidence: a.Zone.Confidence.Float64(),
			Box: types.Box{
				X: a.Zone.Box.X.Float64(),
				Y: a.Zone.Box.Y.Float64(),
				W: a.Zone.Box.W.Float64(),
				H: a.Zone.Box.H.Float64(),
			},
		},
		Description: a.Description,
		Tags:        a.Tags,
	}
}

var reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = stripComments(raw)
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// stripComments drops // and /* */ comments that sit outside string literals
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
