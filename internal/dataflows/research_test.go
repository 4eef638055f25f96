package dataflows

import "testing"

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  \n```json\n{\"a\": 1}\n```\n  ", `{"a": 1}`},
		{"plain text, no fence", "plain text, no fence"},
	}
	for _, tc := range cases {
		if got := StripCodeFences(tc.in); got != tc.want {
			t.Fatalf("StripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSourceListTruncatesSnippets(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	sources := sourceList([]SearchResult{{Title: "t", URL: "u", Content: string(long)}})
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	if len(sources[0]["snippet"]) != 200 {
		t.Fatalf("snippet not truncated: %d bytes", len(sources[0]["snippet"]))
	}
}
