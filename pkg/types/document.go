// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the health-search service:
// the research document returned to clients, its results and related topics,
// and the configuration of every stage.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AuthorityLevel grades how authoritative a result's source is.
type AuthorityLevel string

const (
	AuthorityHigh   AuthorityLevel = "high"
	AuthorityMedium AuthorityLevel = "medium"
)

// TrustedSources lists the source labels the research prompt allows the
// model to cite. The list is a prompt instruction; results are not checked
// against it.
var TrustedSources = []string{
	"WHO", "CDC", "NIH", "PubMed", "FDA", "Mayo Clinic", "NHS", "Cochrane", "MedlinePlus",
}

// Categories lists the category labels the research prompt asks for.
var Categories = []string{
	"clinical-guidelines", "research", "drugs", "case-studies", "faqs", "government",
}

// Year is a publication year. Models usually emit it as a string but
// sometimes as a bare number; both decode to the same text.
type Year string

// UnmarshalJSON accepts any JSON value; see looseString.
func (y *Year) UnmarshalJSON(data []byte) error {
	*y = Year(looseString(data))
	return nil
}

// looseString reads a JSON value as text. Strings decode as-is, null and
// absent values are empty, and numbers, booleans, arrays and objects keep
// their compact JSON form.
func looseString(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

// looseList reads a JSON array as a list of strings. Anything else is nil.
func looseList(data []byte) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, looseString(item))
	}
	return out
}

// ResearchResult is a single cited resource in a research document.
type ResearchResult struct {
	// ID uniquely identifies the result within its document.
	ID string `json:"id" yaml:"id"`

	Title string `json:"title" yaml:"title"`

	// Source is the publishing organization, e.g. "CDC" or "PubMed".
	Source string `json:"source" yaml:"source"`

	// Year is the publication year, expected as four digits.
	Year Year `json:"year" yaml:"year"`

	// Category is one of Categories (not enforced).
	Category string `json:"category" yaml:"category"`

	AuthorityLevel AuthorityLevel `json:"authorityLevel" yaml:"authority_level"`

	URL string `json:"url" yaml:"url"`

	// Snippet describes what the resource contains. Stage 2 may reword it.
	Snippet string `json:"snippet" yaml:"snippet"`
}

// UnmarshalJSON reads each field leniently, so a numeric id or year does
// not reject the result. A value that is not an object decodes as an
// empty result.
func (r *ResearchResult) UnmarshalJSON(data []byte) error {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(data, &f); err != nil {
		*r = ResearchResult{}
		return nil
	}
	*r = ResearchResult{
		ID:             looseString(f["id"]),
		Title:          looseString(f["title"]),
		Source:         looseString(f["source"]),
		Year:           Year(looseString(f["year"])),
		Category:       looseString(f["category"]),
		AuthorityLevel: AuthorityLevel(looseString(f["authorityLevel"])),
		URL:            looseString(f["url"]),
		Snippet:        looseString(f["snippet"]),
	}
	return nil
}

// RelatedTopics groups topic names related to the query.
type RelatedTopics struct {
	Diseases []string `json:"diseases" yaml:"diseases"`
	Drugs    []string `json:"drugs" yaml:"drugs"`
	Symptoms []string `json:"symptoms" yaml:"symptoms"`
	Tests    []string `json:"tests" yaml:"tests"`
}

// EmptyRelatedTopics returns topics whose four lists are empty but non-nil,
// so they serialize as [] rather than null.
func EmptyRelatedTopics() RelatedTopics {
	return RelatedTopics{
		Diseases: []string{},
		Drugs:    []string{},
		Symptoms: []string{},
		Tests:    []string{},
	}
}

// Document is the unit of exchange returned for one query. It is built
// once per request and never mutated after it is returned.
type Document struct {
	Summary       string           `json:"summary" yaml:"summary"`
	Results       []ResearchResult `json:"results" yaml:"results"`
	RelatedTopics RelatedTopics    `json:"relatedTopics" yaml:"related_topics"`

	// KeyFacts is free-form; the prompt asks for prevalence, riskFactors
	// and treatments.
	KeyFacts map[string]any `json:"keyFacts,omitempty" yaml:"key_facts,omitempty"`

	// Extra holds top-level keys the model returned beyond the ones above,
	// and a keyFacts value that is not an object. They are written back
	// out unchanged.
	Extra map[string]any `json:"-" yaml:",inline"`
}

var documentKeys = map[string]bool{
	"summary":       true,
	"results":       true,
	"relatedTopics": true,
	"keyFacts":      true,
}

// UnmarshalJSON decodes any JSON object. Fields of an unexpected type are
// read leniently rather than rejected; the only error is data that is not
// a JSON object.
func (d *Document) UnmarshalJSON(data []byte) error {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	doc := Document{Summary: looseString(f["summary"])}

	var results []json.RawMessage
	if err := json.Unmarshal(f["results"], &results); err == nil {
		doc.Results = make([]ResearchResult, len(results))
		for i, raw := range results {
			if err := json.Unmarshal(raw, &doc.Results[i]); err != nil {
				return err
			}
		}
	}

	var topics map[string]json.RawMessage
	if err := json.Unmarshal(f["relatedTopics"], &topics); err == nil {
		doc.RelatedTopics = RelatedTopics{
			Diseases: looseList(topics["diseases"]),
			Drugs:    looseList(topics["drugs"]),
			Symptoms: looseList(topics["symptoms"]),
			Tests:    looseList(topics["tests"]),
		}
	}

	for k, raw := range f {
		if documentKeys[k] && k != "keyFacts" {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if k == "keyFacts" {
			if facts, ok := v.(map[string]any); ok {
				doc.KeyFacts = facts
				continue
			}
			if v == nil {
				continue
			}
		}
		if doc.Extra == nil {
			doc.Extra = map[string]any{}
		}
		doc.Extra[k] = v
	}

	*d = doc
	return nil
}

// MarshalJSON writes the known fields followed by Extra.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	data, err := json.Marshal(plain(d))
	if err != nil || len(d.Extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, taken := merged[k]; taken {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", k, err)
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// Normalize replaces nil lists with empty ones so the document always
// serializes with arrays.
func (d *Document) Normalize() {
	if d.Results == nil {
		d.Results = []ResearchResult{}
	}
	for _, list := range []*[]string{
		&d.RelatedTopics.Diseases,
		&d.RelatedTopics.Drugs,
		&d.RelatedTopics.Symptoms,
		&d.RelatedTopics.Tests,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}
