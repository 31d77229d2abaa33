/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import (
	"bytes"
	"encoding/json"
	"strings"
)

// extractJSON pulls JSON content out of a model response that may wrap it in
// markdown. It prefers a ```json fenced block, then strips stray fences,
// then falls back to the outermost brace pair.
func extractJSON(text string) string {
	lines := strings.Split(text, "\n")
	var buf bytes.Buffer
	inBlock := false
	found := false

	for _, line := range lines {
		if !inBlock && line == "```json" {
			inBlock = true
			found = true
			continue
		}
		if inBlock && line == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(buf.String())
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if json.Valid([]byte(text)) {
		return text
	}

	// Prose around the object: take the outermost braces.
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first != -1 && last > first {
		return text[first : last+1]
	}
	return text
}

// parse unmarshals a model response into T, tolerating markdown wrapping.
func parse[T any](text string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return result, err
	}
	return result, nil
}
