package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls a JSON object out of a raw model reply. Models
// wrap their answers in prose or markdown fences often enough that a
// plain parse is not reliable: try the whole body first, then a fenced
// ```json block, then the outermost brace pair.
func ExtractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		return trimmed[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}
