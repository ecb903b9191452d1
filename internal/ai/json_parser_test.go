package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type verdictShape struct {
	IsDuplicate bool    `json:"isDuplicate"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		success bool
		want    verdictShape
	}{
		{
			name:    "plain json",
			input:   `{"isDuplicate": true, "confidence": 91, "reasoning": "same stack trace"}`,
			success: true,
			want:    verdictShape{IsDuplicate: true, Confidence: 91, Reasoning: "same stack trace"},
		},
		{
			name:    "json code fence",
			input:   "```json\n{\"isDuplicate\": false, \"confidence\": 12, \"reasoning\": \"different\"}\n```",
			success: true,
			want:    verdictShape{Confidence: 12, Reasoning: "different"},
		},
		{
			name:    "fence without language",
			input:   "```{\"confidence\": 5, \"reasoning\": \"x\"}```",
			success: true,
			want:    verdictShape{Confidence: 5, Reasoning: "x"},
		},
		{
			name:    "trailing comma",
			input:   `{"confidence": 40, "reasoning": "it's close",}`,
			success: true,
			want:    verdictShape{Confidence: 40, Reasoning: "it's close"},
		},
		{
			name:    "surrounding prose",
			input:   "Here is my answer:\n{\"isDuplicate\": true, \"confidence\": 88, \"reasoning\": \"same\"}\nHope that helps.",
			success: true,
			want:    verdictShape{IsDuplicate: true, Confidence: 88, Reasoning: "same"},
		},
		{name: "empty", input: "   ", success: false},
		{name: "not json", input: "I cannot decide.", success: false},
		{name: "truncated json", input: `{"isDuplicate": true, "confidence": `, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[verdictShape](tt.input, "test")
			assert.Equal(t, tt.success, result.Success, result.Error)
			if tt.success {
				assert.Equal(t, tt.want, result.Data)
			} else {
				assert.True(t, strings.HasPrefix(result.Error, "test: "), result.Error)
			}
		})
	}
}

func TestParseSizeLimit(t *testing.T) {
	huge := "{" + strings.Repeat(" ", MaxResponseSize) + "}"
	result := Parse[verdictShape](huge, "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "size limit")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("abc", 0))
	// "é" is two bytes; cutting inside it must back off to a valid boundary.
	assert.Equal(t, "a...", Truncate("aé", 2))
}
