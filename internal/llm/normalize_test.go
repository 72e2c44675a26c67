package llm

import "testing"

func TestNormalizeCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text trimmed", in: "  revenue up 10%  \n", want: "revenue up 10%"},
		{name: "markdown untouched", in: "## Findings\n- a < b", want: "## Findings\n- a < b"},
		{name: "paragraphs", in: "<p>one</p><p>two</p>", want: "one\n\ntwo"},
		{name: "entities decoded", in: "<b>R&amp;D</b> spend", want: "R&D spend"},
		{name: "script dropped", in: "<div>ok<script>alert(1)</script></div>", want: "ok"},
		{name: "line breaks", in: "a<br/>b", want: "a\nb"},
		{name: "blank only", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeCompletion(tt.in); got != tt.want {
				t.Errorf("normalizeCompletion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
