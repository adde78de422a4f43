package units

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

var (
	// fencePattern matches code fence lines such as ``` or ```json.
	fencePattern = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_-]*[ \t]*$")

	// trailingCommaPattern matches a comma directly before a closing
	// bracket or brace.
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

	// allGoodPattern matches a bare all-good answer, optionally quoted or
	// followed by a period.
	allGoodPattern = regexp.MustCompile(`(?i)^["'*\s]*all[ _]good[."'*\s]*$`)

	// typographicQuotes maps curly quotes to their ASCII forms.
	typographicQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
	)
)

// Keys with special meaning in a critique payload.
const (
	statusKey      = "status"
	correctionsKey = "corrections"
	statusAllGood  = "ALL_GOOD"
)

// ParseCritique converts raw critic output into a CritiqueResult. It never
// fails: output that cannot be interpreted becomes the malformed variant
// carrying raw.
//
// The payload is a JSON object keyed by topic label whose values are lists
// of {original, corrected, reasoning} objects. An object with
// "status": "ALL_GOOD", an empty object, or the bare phrase ALL GOOD all
// mean no corrections. A single "corrections" key wrapping the object is
// accepted. Per-label values that are not valid correction lists are kept
// in Invalid rather than failing the whole parse.
func ParseCritique(raw string) domain.CritiqueResult {
	text := stripFences(raw)
	if allGoodPattern.MatchString(text) {
		return domain.AllGood()
	}

	candidate, ok := firstObject(text)
	if !ok {
		return domain.Malformed(raw)
	}

	fields, ok := decodeObject(candidate)
	if !ok {
		return domain.Malformed(raw)
	}

	if inner, ok := unwrapCorrections(fields); ok {
		fields = inner
	}
	if isAllGoodStatus(fields) || len(fields) == 0 {
		return domain.AllGood()
	}

	corrections := make(map[string][]domain.Correction, len(fields))
	invalid := make(map[string]string)
	for label, payload := range fields {
		label = strings.TrimSpace(label)
		if label == "" || label == statusKey {
			continue
		}
		list, ok := decodeCorrections(payload)
		if !ok {
			invalid[label] = string(payload)
			continue
		}
		corrections[label] = list
	}

	return domain.CorrectionsResult(corrections, invalid)
}

// stripFences removes code fence lines and surrounding whitespace.
func stripFences(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}

// firstObject returns the first balanced {...} region of s. Braces inside
// JSON strings are ignored.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
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
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeObject strictly decodes candidate, retrying once after normalising
// typographic quotes and trailing commas.
func decodeObject(candidate string) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err == nil {
		return fields, true
	}

	normalized := trailingCommaPattern.ReplaceAllString(typographicQuotes.Replace(candidate), "$1")
	fields = nil
	if err := json.Unmarshal([]byte(normalized), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// unwrapCorrections returns the inner object when fields is a single
// "corrections" wrapper around a label-keyed object.
func unwrapCorrections(fields map[string]json.RawMessage) (map[string]json.RawMessage, bool) {
	payload, ok := fields[correctionsKey]
	if !ok {
		return nil, false
	}
	for k := range fields {
		if k != correctionsKey && k != statusKey {
			return nil, false
		}
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(payload, &inner); err != nil {
		return nil, false
	}
	return inner, true
}

// isAllGoodStatus reports whether fields carries "status": "ALL_GOOD".
func isAllGoodStatus(fields map[string]json.RawMessage) bool {
	payload, ok := fields[statusKey]
	if !ok {
		return false
	}
	var status string
	if err := json.Unmarshal(payload, &status); err != nil {
		return false
	}
	status = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(status)), " ", "_")
	return status == statusAllGood
}

// decodeCorrections decodes one label's payload. A JSON null or an empty
// list yields no corrections. Every element must carry the required fields.
func decodeCorrections(payload json.RawMessage) ([]domain.Correction, bool) {
	trimmed := bytes.TrimSpace(payload)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, true
	}

	var list []domain.Correction
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&list); err != nil {
		return nil, false
	}
	for i := range list {
		if err := validate.Struct(list[i]); err != nil {
			return nil, false
		}
	}
	return list, true
}
