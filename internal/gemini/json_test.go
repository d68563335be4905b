package gemini_test

import (
	"testing"

	"github.com/tripsmith/tripsmith/internal/gemini"
)

func TestBestEffortJSON(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		isErr bool
	}{
		{
			name: "direct object",
			raw:  `{"days": []}`,
			want: `{"days": []}`,
		},
		{
			name: "prose wrapped",
			raw:  `Here is your itinerary: {"days": [{"date": "2026-09-01"}]} Hope it helps!`,
			want: `{"days": [{"date": "2026-09-01"}]}`,
		},
		{
			name: "fenced block",
			raw:  "```json\n{\"attractions\": []}\n```",
			want: `{"attractions": []}`,
		},
		{
			name: "fenced without language tag",
			raw:  "```\n{\"weather\": {}}\n```",
			want: `{"weather": {}}`,
		},
		{
			name:  "no json at all",
			raw:   "Sorry, I cannot help with that.",
			isErr: true,
		},
		{
			name:  "empty",
			raw:   "   ",
			isErr: true,
		},
		{
			name:  "only braces but invalid",
			raw:   "{not json}",
			isErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gemini.BestEffortJSON(tc.raw)
			if tc.isErr {
				if err == nil {
					t.Fatalf("BestEffortJSON(%q) = %s, want error", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BestEffortJSON(%q) error: %v", tc.raw, err)
			}
			if string(got) != tc.want {
				t.Errorf("BestEffortJSON(%q) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}
