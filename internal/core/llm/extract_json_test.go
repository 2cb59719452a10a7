package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object",
			input: `{"action": "create_new"}`,
			want:  `{"action": "create_new"}`,
		},
		{
			name:  "object with surrounding prose",
			input: "Here is my answer:\n{\"action\": \"create_new\"}\nLet me know.",
			want:  `{"action": "create_new"}`,
		},
		{
			name:  "fenced json",
			input: "```json\n{\"title\": \"Morning Brief\"}\n```",
			want:  `{"title": "Morning Brief"}`,
		},
		{
			name:  "fenced without language",
			input: "```\n[1, 2, 3]\n```",
			want:  `[1, 2, 3]`,
		},
		{
			name:  "no json at all",
			input: "I cannot answer that.",
			want:  "I cannot answer that.",
		},
		{
			name:  "nested braces",
			input: `prefix {"a": {"b": 1}} suffix`,
			want:  `{"a": {"b": 1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "hello", StripCodeFence("```\nhello\n```"))
	assert.Equal(t, "hello", StripCodeFence("```json\nhello\n```"))
	assert.Equal(t, "hello", StripCodeFence("  hello  "))
}
