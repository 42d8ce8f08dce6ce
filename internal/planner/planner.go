// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner expands a research topic into diversified search queries.
package planner

import (
	"fmt"
	"strings"
)

// LongTailWords is the word count at which a topic is treated as already
// specific and only receives minimal variations.
const LongTailWords = 4

// longTailTemplates keep the topic verbatim so specific phrases are not
// diluted by broad angles.
var longTailTemplates = []string{
	"%s",
	"%s analysis",
	"%s news",
	"%s discussions",
}

// angleTemplates widen coverage for short, generic topics.
var angleTemplates = []string{
	"%s market trends",
	"venture capital funding for %s",
	"%s applications",
	"%s academic research",
	"%s adoption challenges",
}

// Normalize trims the topic and collapses internal whitespace.
func Normalize(topic string) string {
	return strings.Join(strings.Fields(topic), " ")
}

// WordCount returns the number of whitespace-separated words in topic.
func WordCount(topic string) int {
	return len(strings.Fields(topic))
}

// IsLongTail reports whether topic is specific enough for minimal variations.
func IsLongTail(topic string) bool {
	return WordCount(topic) >= LongTailWords
}

// PlanQueries returns the ordered search queries for topic. Topics of four
// or more words get four minimal variations; shorter topics get five
// angle-diversified queries. An empty topic yields no queries.
func PlanQueries(topic string) []string {
	topic = Normalize(topic)
	if topic == "" {
		return nil
	}

	templates := angleTemplates
	if IsLongTail(topic) {
		templates = longTailTemplates
	}

	queries := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		queries = append(queries, fmt.Sprintf(tmpl, topic))
	}
	return queries
}
