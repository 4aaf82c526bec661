package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Nickel Superalloy

Intro text.

## Composition

Ni 60%, Cr 20%, Co 10%.

### Minor elements

Ti 2%, Al 3%.

## Properties

Hardness: 350 HB
`
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "patent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Title != "patent" {
		t.Errorf("expected title %q, got %q", "patent", tree.Title)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level child (h1), got %d", len(tree.Children))
	}

	h1 := tree.Children[0]
	if h1.Title != "Nickel Superalloy" {
		t.Errorf("expected h1 title %q, got %q", "Nickel Superalloy", h1.Title)
	}
	if h1.Text != "Intro text." {
		t.Errorf("expected h1 text %q, got %q", "Intro text.", h1.Text)
	}
	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 children, got %d", len(h1.Children))
	}

	comp := h1.Children[0]
	if comp.Title != "Composition" || comp.Text != "Ni 60%, Cr 20%, Co 10%." {
		t.Errorf("unexpected composition section: %+v", comp)
	}
	if len(comp.Children) != 1 || comp.Children[0].Title != "Minor elements" {
		t.Fatalf("expected one h3 under Composition, got %+v", comp.Children)
	}
	if h1.Children[1].Title != "Properties" {
		t.Errorf("expected %q, got %q", "Properties", h1.Children[1].Title)
	}
	if tree.Sections() != 4 {
		t.Errorf("expected 4 sections, got %d", tree.Sections())
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child for headingless markdown, got %d", len(tree.Children))
	}
	want := "Just some plain text.\n\nAnother paragraph here."
	if got := tree.Children[0].Text; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkdownParser_PreambleBeforeFirstHeading(t *testing.T) {
	input := "US 9,999,999 B2\n\n# Abstract\n\nA cobalt alloy."
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "p.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "US 9,999,999 B2\n\nAbstract\n\nA cobalt alloy."
	if got := tree.Text(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkdownParser_CodeBlocksAndLists(t *testing.T) {
	input := "# Examples\n\nTable 1:\n\n```\nFe 70 Cr 20 Ni 10\n```\n\n- tensile 900 MPa\n- yield 700 MPa\n"

	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "ex.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := tree.Children[0].Text
	for _, want := range []string{"Table 1:", "Fe 70 Cr 20 Ni 10", "tensile 900 MPa", "yield 700 MPa"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
	if strings.Count(text, "Table 1:") != 1 {
		t.Errorf("paragraph text duplicated: %q", text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(tree.Children))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"/tmp/upload/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		tree, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if tree.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, tree.Title)
		}
	}
}
