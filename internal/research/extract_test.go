// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/health-search/pkg/types"
)

func TestExtractSpan(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		strategy types.ExtractionStrategy
		want     string
		ok       bool
	}{
		{"greedy plain", `{"a":1}`, types.ExtractGreedy, `{"a":1}`, true},
		{"greedy with prose", "Sure!\n```json\n{\"a\":1}\n```\nDone.", types.ExtractGreedy, `{"a":1}`, true},
		{"greedy spans two objects", `{"a":1} and {"b":2}`, types.ExtractGreedy, `{"a":1} and {"b":2}`, true},
		{"greedy no braces", "nothing here", types.ExtractGreedy, "", false},
		{"greedy closing before opening", "} then {", types.ExtractGreedy, "", false},
		{"empty strategy is greedy", `x{"a":1}y`, "", `{"a":1}`, true},
		{"balanced first object", `{"a":1} and {"b":2}`, types.ExtractBalanced, `{"a":1}`, true},
		{"balanced ignores braces in strings", `pre {"a":"}{","b":{"c":2}} post }`, types.ExtractBalanced, `{"a":"}{","b":{"c":2}}`, true},
		{"balanced escaped quote", `{"a":"say \"}\""} tail`, types.ExtractBalanced, `{"a":"say \"}\""}`, true},
		{"balanced skips unclosed prefix", `{ broken {"a":1}`, types.ExtractBalanced, `{"a":1}`, true},
		{"balanced none", "plain text", types.ExtractBalanced, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSpan(tt.text, tt.strategy)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDocument_LenientYear(t *testing.T) {
	doc, _, err := parseDocument(`{"summary":"s","results":[{"id":"1","year":2021},{"id":"2","year":"2019"},{"id":"3","year":null}]}`, types.ExtractGreedy)
	require.NoError(t, err)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, types.Year("2021"), doc.Results[0].Year)
	assert.Equal(t, types.Year("2019"), doc.Results[1].Year)
	assert.Equal(t, types.Year(""), doc.Results[2].Year)
}

func TestParseDocument_LenientTypes(t *testing.T) {
	doc, fields, err := parseDocument(`{"summary":42,"results":"not a list","relatedTopics":{"drugs":"Metformin","tests":["HbA1c",7]}}`, types.ExtractGreedy)
	require.NoError(t, err)
	assert.True(t, hasFields(fields, "results", "summary"))
	assert.Equal(t, "42", doc.Summary)
	assert.Empty(t, doc.Results)
	assert.NotNil(t, doc.Results)
	assert.Equal(t, []string{}, doc.RelatedTopics.Drugs)
	assert.Equal(t, []string{"HbA1c", "7"}, doc.RelatedTopics.Tests)
}

func TestParseDocument_NonObjectResult(t *testing.T) {
	doc, _, err := parseDocument(`{"summary":"s","results":["bare string",{"id":3,"url":"https://www.nih.gov/"}]}`, types.ExtractGreedy)
	require.NoError(t, err)
	require.Len(t, doc.Results, 2)
	assert.Len(t, doc.Results[0].ID, 36)
	assert.Empty(t, doc.Results[0].Title)
	assert.Equal(t, "3", doc.Results[1].ID)
	assert.Equal(t, "https://www.nih.gov/", doc.Results[1].URL)
}

func TestParseDocument_InvalidJSONFails(t *testing.T) {
	_, _, err := parseDocument(`{"summary":"s",}`, types.ExtractGreedy)
	assert.Error(t, err)
}

func TestParseDocument_NormalizesTopics(t *testing.T) {
	doc, fields, err := parseDocument(`{"summary":"s"}`, types.ExtractGreedy)
	require.NoError(t, err)
	assert.False(t, hasFields(fields, "results", "summary"))
	assert.True(t, hasFields(fields, "summary"))

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"s","results":[],"relatedTopics":{"diseases":[],"drugs":[],"symptoms":[],"tests":[]}}`, string(data))
}

func TestDegradedDocument(t *testing.T) {
	short := DegradedDocument("just prose")
	assert.Equal(t, "just prose", short.Summary)

	long := DegradedDocument(strings.Repeat("x", 501))
	assert.Len(t, long.Summary, 500)

	data, err := json.Marshal(long)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"results":[]`)
	assert.Contains(t, string(data), `"tests":[]`)
	assert.NotContains(t, string(data), "keyFacts")
}

func TestWrite(t *testing.T) {
	doc := &types.Document{
		Summary: "Diabetes affects blood sugar.",
		Results: []types.ResearchResult{
			{ID: "1", Title: "National Diabetes Statistics Report", Source: "CDC", Year: "2023", AuthorityLevel: types.AuthorityHigh},
		},
		RelatedTopics: types.RelatedTopics{Drugs: []string{"Metformin", "Insulin"}},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, doc, FormatJSON))
		var back types.Document
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, doc.Summary, back.Summary)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, doc, FormatYAML))
		assert.Contains(t, buf.String(), "summary: Diabetes affects blood sugar.")
		assert.Contains(t, buf.String(), "authority_level: high")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, doc, FormatTable))
		out := buf.String()
		assert.Contains(t, out, "National Diabetes Statistics Report")
		assert.Contains(t, out, "1 results")
		assert.Contains(t, out, "Drugs: Metformin, Insulin")
		assert.NotContains(t, out, "Diseases:")
	})

	t.Run("table without results", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, DegradedDocument("prose"), FormatTable))
		assert.Contains(t, buf.String(), "No results found.")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Write(&bytes.Buffer{}, doc, "xml"))
	})
}
