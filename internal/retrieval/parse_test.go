package retrieval

import "testing"

func TestParseAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantIDs []string
		wantOK  bool
	}{
		{
			name:    "json fence",
			raw:     "Here you go:\n```json\n{\"answer\": \"You saved two sunsets.\", \"relevantIds\": [\"id1\", \"id2\"]}\n```",
			want:    "You saved two sunsets.",
			wantIDs: []string{"id1", "id2"},
			wantOK:  true,
		},
		{
			name:    "generic fence",
			raw:     "```\n{\"answer\": \"Yes.\", \"relevantIds\": [\"a\"]}\n```",
			want:    "Yes.",
			wantIDs: []string{"a"},
			wantOK:  true,
		},
		{
			name:    "raw json",
			raw:     "  {\"answer\": \"Plain.\", \"relevantIds\": []}  ",
			want:    "Plain.",
			wantIDs: nil,
			wantOK:  true,
		},
		{
			name:    "json after prose",
			raw:     "Sure: {\"answer\": \"Inline.\", \"relevantIds\": [\"z\"]} hope that helps",
			want:    "Inline.",
			wantIDs: []string{"z"},
			wantOK:  true,
		},
		{
			name:    "numeric ids",
			raw:     `{"answer": "Numbers.", "relevantIds": [12, "13", null, true]}`,
			want:    "Numbers.",
			wantIDs: []string{"12", "13"},
			wantOK:  true,
		},
		{
			name:    "missing ids",
			raw:     `{"answer": "No list."}`,
			want:    "No list.",
			wantIDs: nil,
			wantOK:  true,
		},
		{
			name:   "no json",
			raw:    "Sure! Here's the answer: your notes mention Lisbon twice.",
			want:   "Sure! Here's the answer: your notes mention Lisbon twice.",
			wantOK: false,
		},
		{
			name:   "answer not a string",
			raw:    `{"answer": 42, "relevantIds": ["a"]}`,
			want:   `{"answer": 42, "relevantIds": ["a"]}`,
			wantOK: false,
		},
		{
			name:   "no answer field",
			raw:    `{"relevantIds": ["a"]}`,
			want:   `{"relevantIds": ["a"]}`,
			wantOK: false,
		},
		{
			name:   "broken fence",
			raw:    "```json\n{\"answer\": \"cut off",
			want:   "```json\n{\"answer\": \"cut off",
			wantOK: false,
		},
		{
			name:   "empty",
			raw:    "",
			want:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseAnswer(tt.raw)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if !equalStrings(got.RelevantIDs, tt.wantIDs) {
				t.Errorf("RelevantIDs = %v, want %v", got.RelevantIDs, tt.wantIDs)
			}
		})
	}
}
