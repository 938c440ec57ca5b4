package nodes

import "testing"

func TestRewriteDuplicatedLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drive",
			in:   "[https://drive.google.com/x](https://drive.google.com/x)",
			want: "[Ver archivo en Google Drive](https://drive.google.com/x)",
		},
		{
			name: "docs document",
			in:   "Tu CV: [https://docs.google.com/document/d/1](https://docs.google.com/document/d/1)",
			want: "Tu CV: [Ver CV en Google Docs](https://docs.google.com/document/d/1)",
		},
		{
			name: "docs spreadsheet falls back",
			in:   "[https://docs.google.com/spreadsheets/d/1](https://docs.google.com/spreadsheets/d/1)",
			want: "[Ver enlace](https://docs.google.com/spreadsheets/d/1)",
		},
		{
			name: "other host",
			in:   "[http://example.com/a](http://example.com/a)",
			want: "[Ver enlace](http://example.com/a)",
		},
		{
			name: "labelled link untouched",
			in:   "[Label](https://other.com/y)",
			want: "[Label](https://other.com/y)",
		},
		{
			name: "different urls untouched",
			in:   "[https://a.com](https://b.com)",
			want: "[https://a.com](https://b.com)",
		},
		{
			name: "url with parentheses",
			in:   "[https://en.wikipedia.org/wiki/Go_(lenguaje)](https://en.wikipedia.org/wiki/Go_(lenguaje))",
			want: "[Ver enlace](https://en.wikipedia.org/wiki/Go_(lenguaje))",
		},
		{
			name: "two links in one reply",
			in:   "CV: [https://drive.google.com/a](https://drive.google.com/a) y [https://x.org/b](https://x.org/b).",
			want: "CV: [Ver archivo en Google Drive](https://drive.google.com/a) y [Ver enlace](https://x.org/b).",
		},
		{
			name: "target extends label untouched",
			in:   "[https://a.com](https://a.com/evil)",
			want: "[https://a.com](https://a.com/evil)",
		},
		{
			name: "plain text",
			in:   "sin enlaces",
			want: "sin enlaces",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteDuplicatedLinks(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
