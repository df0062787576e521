// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/health-search/pkg/types"
)

// researchSystemTmpl constrains Stage 1 to verifiable facts from a fixed
// set of sources and to a single JSON object.
var researchSystemTmpl = template.Must(template.New("research-system").Parse(`You are a medical research assistant. You provide only verified, accurate health information from authoritative sources.

Rules:
1. Provide only information that is factually accurate and verifiable from authoritative medical sources.
2. Cite only real, existing sources: {{.Sources}}.
3. Use real publication years and real URL patterns from these organizations.
4. When you are unsure about something, say so.
5. Include statistics, guidelines and clinical data where applicable.
6. Never fabricate medical data, drug interactions or treatment protocols.

Return a JSON object with exactly this structure:
{
  "summary": "A factual 5-8 line summary with specific medical facts, statistics and current guidelines.",
  "results": [
    {
      "id": "unique-id",
      "title": "Article or guideline title",
      "source": "{{.SourceChoices}}",
      "year": "YYYY",
      "category": "{{.CategoryChoices}}",
      "authorityLevel": "high|medium",
      "url": "URL from the source (e.g. https://www.cdc.gov/..., https://pubmed.ncbi.nlm.nih.gov/...)",
      "snippet": "What this resource contains"
    }
  ],
  "relatedTopics": {
    "diseases": ["Related conditions"],
    "drugs": ["Medications used for this condition"],
    "symptoms": ["Associated symptoms"],
    "tests": ["Diagnostic tests"]
  },
  "keyFacts": {
    "prevalence": "Statistics if available",
    "riskFactors": ["Evidence-based risk factors"],
    "treatments": ["Current standard treatments"]
  }
}

Generate {{.MinResults}}-{{.MaxResults}} results with verifiable information, current medical terminology and current clinical guidelines.

Return only valid JSON, with no markdown and no text outside the JSON object.`))

var researchUserTmpl = template.Must(template.New("research-user").Parse(`Provide comprehensive, accurate and verified health information about: {{.Query}}

Include:
- Current medical guidelines and recommendations
- Statistics and prevalence data
- Evidence-based treatments and medications
- Diagnostic criteria
- Links to resources from WHO, CDC, NIH, PubMed and similar sources`))

// enhancementSystemPrompt restricts Stage 2 to rewording prose fields.
const enhancementSystemPrompt = `You are a medical writing editor. Your only job is to improve the clarity and readability of medical text.

Rules:
1. Do not change any medical facts, statistics, numbers or data.
2. Do not change any source names, URLs or publication years.
3. Do not add information or remove existing facts.
4. Do not change medical terminology or drug names.
5. Only improve sentence structure, grammar and readability.
6. Keep the JSON structure and the number of results exactly the same.

Take the input JSON and return the same JSON with improved wording in the "summary" and "snippet" fields only. Everything else must stay unchanged.

Return only the improved JSON, with no explanations.`

var enhancementUserTmpl = template.Must(template.New("enhancement-user").Parse(`Improve only the wording and readability of this medical data. Do not change any facts, sources, URLs or medical information:

{{.Document}}`))

// Requested result count. A prompt instruction only; responses are not checked.
const (
	minRequestedResults = 15
	maxRequestedResults = 25
)

func renderResearchSystem() (string, error) {
	return render(researchSystemTmpl, struct {
		Sources         string
		SourceChoices   string
		CategoryChoices string
		MinResults      int
		MaxResults      int
	}{
		Sources:         strings.Join(types.TrustedSources, ", "),
		SourceChoices:   strings.Join(types.TrustedSources, "|"),
		CategoryChoices: strings.Join(types.Categories, "|"),
		MinResults:      minRequestedResults,
		MaxResults:      maxRequestedResults,
	})
}

func renderResearchUser(query string) (string, error) {
	return render(researchUserTmpl, struct{ Query string }{Query: query})
}

func renderEnhancementUser(doc *types.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling document: %w", err)
	}
	return render(enhancementUserTmpl, struct{ Document string }{Document: string(data)})
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
