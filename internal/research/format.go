// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/health-search/pkg/types"
)

// Output formats accepted by Write.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Write renders doc to w in the named format.
func Write(w io.Writer, doc *types.Document, format string) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case FormatTable:
		return writeTable(w, doc)
	default:
		return fmt.Errorf("unsupported format %q: use json, yaml or table", format)
	}
}

func writeTable(w io.Writer, doc *types.Document) error {
	fmt.Fprintf(w, "%s\n\n", doc.Summary)

	if len(doc.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSource\tYear\tAuthority\tTitle")
		for i, r := range doc.Results {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				i+1, r.Source, r.Year, r.AuthorityLevel, clip(r.Title, 60))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%d results\n", len(doc.Results))
	}

	topics := []struct {
		label string
		items []string
	}{
		{"Diseases", doc.RelatedTopics.Diseases},
		{"Drugs", doc.RelatedTopics.Drugs},
		{"Symptoms", doc.RelatedTopics.Symptoms},
		{"Tests", doc.RelatedTopics.Tests},
	}
	for _, t := range topics {
		if len(t.items) > 0 {
			fmt.Fprintf(w, "%s: %s\n", t.label, strings.Join(t.items, ", "))
		}
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
