// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pdiddy/health-search/pkg/types"
)

// degradedSummaryLen is how much raw text a degraded document keeps, in code points.
const degradedSummaryLen = 500

var (
	errNoJSONSpan   = errors.New("no JSON object found in response")
	errMissingField = errors.New("response lacks results or summary")
)

// ExtractSpan locates a JSON object in free text using the given strategy.
// Greedy returns the first '{' through the last '}'; balanced returns the
// first brace-balanced object, ignoring braces inside JSON strings.
func ExtractSpan(text string, strategy types.ExtractionStrategy) (string, bool) {
	if strategy == types.ExtractBalanced {
		return balancedSpan(text)
	}
	return greedySpan(text)
}

func greedySpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func balancedSpan(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		// Unbalanced from this brace; try the next one.
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// parseDocument extracts and decodes a Document from model output. It also
// returns the top-level keys present so callers can check field presence.
func parseDocument(text string, strategy types.ExtractionStrategy) (*types.Document, map[string]json.RawMessage, error) {
	span, ok := ExtractSpan(text, strategy)
	if !ok {
		return nil, nil, errNoJSONSpan
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return nil, nil, fmt.Errorf("parsing JSON span: %w", err)
	}

	var doc types.Document
	if err := json.Unmarshal([]byte(span), &doc); err != nil {
		return nil, nil, fmt.Errorf("decoding document: %w", err)
	}

	doc.Normalize()
	for i := range doc.Results {
		if doc.Results[i].ID == "" {
			doc.Results[i].ID = uuid.NewString()
		}
	}
	return &doc, fields, nil
}

// hasFields reports whether every key is present and not null.
func hasFields(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || string(v) == "null" {
			return false
		}
	}
	return true
}

// DegradedDocument is returned when Stage 1 text holds no parseable JSON:
// the first 500 characters of the raw text as the summary, with empty
// results and topics.
func DegradedDocument(raw string) *types.Document {
	summary := raw
	if utf8.RuneCountInString(raw) > degradedSummaryLen {
		summary = string([]rune(raw)[:degradedSummaryLen])
	}
	return &types.Document{
		Summary:       summary,
		Results:       []types.ResearchResult{},
		RelatedTopics: types.EmptyRelatedTopics(),
	}
}
