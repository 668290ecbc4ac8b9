package model

import (
	"encoding/json"
	"strings"

	"screensolver/shared"
)

// RecoverJSON pulls a JSON object out of free-form model text: everything
// from the first '{' to the last '}'. Markdown fences and pre/postamble prose
// fall away for free. Known limitation: two independent top-level objects in
// one response get glued together and rejected as invalid.
func RecoverJSON(raw string) ([]byte, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, shared.NewMalformedResponse("no JSON object found in model output")
	}
	sub := raw[start : end+1]
	if !json.Valid([]byte(sub)) {
		return nil, shared.NewMalformedResponse("recovered text is not valid JSON")
	}
	return []byte(sub), nil
}
