package shorts

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_shorts/internal/engine"
	"github.com/buger/jsonparser"
)

// Structured description recovery from the ytInitialData island.
// The long-form description only exists inside a nested engagement panel,
// so it is read by walking the parsed JSON rather than by regex.

const descriptionPanelID = "engagement-panel-structured-description"

var (
	initialDataMarkerRe    = regexp.MustCompile(`ytInitialData\s*=\s*`)
	initialDataSemicolonRe = regexp.MustCompile(`ytInitialData\s*=\s*(\{.*?\});`)
	initialDataScriptRe    = regexp.MustCompile(`ytInitialData\s*=\s*(\{.*?\})</script>`)
)

// blockLocator finds a candidate JSON text for the data island.
type blockLocator func(html string) ([]byte, bool)

// blockLocators run in order; the first that yields a candidate decides.
var blockLocators = []blockLocator{
	locateBalanced,
	locateByPattern(initialDataSemicolonRe),
	locateByPattern(initialDataScriptRe),
}

func locateBalanced(html string) ([]byte, bool) {
	loc := initialDataMarkerRe.FindStringIndex(html)
	if loc == nil {
		return nil, false
	}
	b := engine.ExtractJSON([]byte(html[loc[1]:]))
	return b, b != nil
}

func locateByPattern(re *regexp.Regexp) blockLocator {
	return func(html string) ([]byte, bool) {
		m := re.FindStringSubmatch(html)
		if len(m) < 2 {
			return nil, false
		}
		return []byte(m[1]), true
	}
}

// jsonPath is a sequence of object keys (or "[i]" array indexes).
// Lookups short-circuit to absent at the first missing step.
type jsonPath []string

// String resolves the path to a non-empty string.
func (p jsonPath) String(data []byte) (string, bool) {
	s, err := jsonparser.GetString(data, p...)
	if err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Each calls fn for every element of the array at the path until fn returns true.
func (p jsonPath) Each(data []byte, fn func(elem []byte) (stop bool)) {
	stopped := false
	_, _ = jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, err error) {
		if stopped || err != nil {
			return
		}
		stopped = fn(value)
	}, p...)
}

var (
	pathPanels      = jsonPath{"engagementPanels"}
	pathPanelTarget = jsonPath{"engagementPanelRenderer", "targetId"}
	pathPanelItems  = jsonPath{"engagementPanelRenderer", "content", "structuredDescriptionContentRenderer", "items"}
	pathHeaderText  = jsonPath{"videoDescriptionHeaderRenderer", "description", "runs", "[0]", "text"}
)

// ExtractDescription recovers the long-form description from the page's
// ytInitialData block. Returns false when the block is missing, malformed,
// or the panel path has drifted. Never panics.
func ExtractDescription(html string) (string, bool) {
	var candidate []byte
	for _, locate := range blockLocators {
		if b, ok := locate(html); ok {
			candidate = b
			break
		}
	}
	if candidate == nil {
		slog.Debug("shorts: ytInitialData not found")
		return "", false
	}
	if !json.Valid(candidate) {
		slog.Debug("shorts: ytInitialData is not valid JSON", slog.Int("bytes", len(candidate)))
		return "", false
	}
	return walkDescription(candidate)
}

func walkDescription(data []byte) (string, bool) {
	var desc string
	pathPanels.Each(data, func(panel []byte) bool {
		if target, ok := pathPanelTarget.String(panel); !ok || target != descriptionPanelID {
			return false
		}
		pathPanelItems.Each(panel, func(item []byte) bool {
			text, ok := pathHeaderText.String(item)
			if ok {
				desc = text
			}
			return ok
		})
		return desc != ""
	})
	if desc == "" {
		slog.Debug("shorts: structured description path missing")
		return "", false
	}
	return desc, true
}
