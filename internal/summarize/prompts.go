// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"text/template"
)

// sourceSummaryTmpl asks for a short synopsis of one article.
var sourceSummaryTmpl = template.Must(template.New("source_summary").Parse(`Summarize the following article for a market research report on "{{.Topic}}".

Write 4 to 6 sentences. Keep concrete facts: market size, growth rates, named companies, funding rounds, products, regulations, and dates. Leave out navigation text, advertising, and opinions that are not backed by data. If the article is unrelated to the topic, say so in one sentence.

Source: {{.URL}}

Article:
{{.Text}}
`))

// synthesisTmpl merges per-source summaries into one structured narrative.
var synthesisTmpl = template.Must(template.New("synthesis").Parse(`Generate a detailed market research summary on "{{.Topic}}" from the source summaries below. Sources are ordered from most to least credible; prefer the earlier ones when they disagree.

Organize the report into these sections:

1. Industry Overview: current market size and growth projections, key segments, regional dynamics.
2. Competitive Analysis: major players and their positions, competitive strategies, market share where available.
3. Consumer Insights: target customers, changing preferences, purchase drivers.
4. Market Dynamics: growth drivers and opportunities, challenges and threats, regulatory factors.
5. Future Outlook: emerging trends and innovations, risks, technology impact.

Support key findings with figures when the summaries provide them. Do not invent numbers.

Source summaries ({{.Count}}):

{{.Text}}
`))

// weightedTmpl synthesizes directly from credibility-weighted excerpts.
var weightedTmpl = template.Must(template.New("weighted_synthesis").Parse(`Generate a detailed market research summary on "{{.Topic}}" from the source excerpts below. Each excerpt is trimmed in proportion to the credibility of its source, so longer excerpts come from more trusted sources.

Organize the report into these sections:

1. Industry Overview: current market size and growth projections, key segments, regional dynamics.
2. Competitive Analysis: major players and their positions, competitive strategies, market share where available.
3. Consumer Insights: target customers, changing preferences, purchase drivers.
4. Market Dynamics: growth drivers and opportunities, challenges and threats, regulatory factors.
5. Future Outlook: emerging trends and innovations, risks, technology impact.

Support key findings with figures when the excerpts provide them. Do not invent numbers.

Excerpts ({{.Count}}):

{{.Text}}
`))

type promptData struct {
	Topic string
	URL   string
	Text  string
	Count int
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
