// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanQueries_LongTail(t *testing.T) {
	topic := "electric vehicle battery recycling"
	got := PlanQueries(topic)
	assert.Equal(t, []string{
		"electric vehicle battery recycling",
		"electric vehicle battery recycling analysis",
		"electric vehicle battery recycling news",
		"electric vehicle battery recycling discussions",
	}, got)
}

func TestPlanQueries_ShortTopic(t *testing.T) {
	got := PlanQueries("fintech")
	assert.Len(t, got, 5)
	assert.Contains(t, got, "fintech market trends")
	assert.Contains(t, got, "venture capital funding for fintech")
	for _, q := range got {
		assert.Contains(t, q, "fintech")
	}
}

func TestPlanQueries_Counts(t *testing.T) {
	tests := []struct {
		topic string
		want  int
	}{
		{"ai", 5},
		{"quantum computing", 5},
		{"vertical farming startups", 5},
		{"small modular nuclear reactors", 4},
		{"b2b saas pricing models in europe", 4},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Len(t, PlanQueries(tt.topic), tt.want)
		})
	}
}

func TestPlanQueries_NormalizesWhitespace(t *testing.T) {
	got := PlanQueries("  solid   state\tbatteries  ")
	assert.Equal(t, "solid state batteries market trends", got[0])
}

func TestPlanQueries_Empty(t *testing.T) {
	assert.Empty(t, PlanQueries(""))
	assert.Empty(t, PlanQueries("   "))
}

func TestIsLongTail(t *testing.T) {
	assert.False(t, IsLongTail("one two three"))
	assert.True(t, IsLongTail("one two three four"))
}
