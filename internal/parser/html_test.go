package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_PatentPage(t *testing.T) {
	input := `<html><head><title>US7000000B1 - Heat resistant steel</title>
<style>.x{}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<h1>Heat resistant steel</h1>
<p>A ferritic   steel
 for boilers.</p>
<h2>Claims</h2>
<ul><li>Cr 9% and Mo 1%.</li></ul>
<script>track()</script>
</body></html>`

	p := &HTMLParser{}
	tree, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "US7000000B1 - Heat resistant steel" {
		t.Errorf("expected <title> to win, got %q", tree.Title)
	}

	want := "Heat resistant steel\n\nA ferritic steel for boilers.\n\nClaims\n\nCr 9% and Mo 1%."
	if got := tree.Text(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHeadingLevel(t *testing.T) {
	for tag, want := range map[string]int{"h1": 1, "h6": 6, "h7": 0, "p": 0, "hr": 0} {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q) = %d, want %d", tag, got, want)
		}
	}
}
