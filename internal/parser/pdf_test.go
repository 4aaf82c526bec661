package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dgallion1/patentalloy/internal/parser/pdftest"
)

func TestPDFParser_PagesAndText(t *testing.T) {
	data := pdftest.Document("Nickel alloy abstract", "", "Hardness 350 HB")
	if !IsPDF(data) {
		t.Fatal("generated document should carry the PDF signature")
	}

	p := &PDFParser{}
	tree, err := p.Parse(bytes.NewReader(data), "US555.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "US555" {
		t.Errorf("expected title %q, got %q", "US555", tree.Title)
	}
	if tree.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", tree.PageCount)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("blank pages should be skipped, got %d nodes", len(tree.Children))
	}
	if tree.Children[1].Page != 3 {
		t.Errorf("expected second node from page 3, got %d", tree.Children[1].Page)
	}

	text := tree.Text()
	if !strings.Contains(text, "Nickel alloy abstract") || !strings.Contains(text, "Hardness 350 HB") {
		t.Errorf("missing page text in %q", text)
	}
	if !strings.Contains(text, "\n\n") {
		t.Errorf("pages should be separated by a blank line, got %q", text)
	}
}

func TestPDFParser_CorruptWithoutFallback(t *testing.T) {
	p := &PDFParser{}
	if _, err := p.Parse(strings.NewReader("%PDF-1.4 garbage"), "bad.pdf"); err == nil {
		t.Error("expected error for corrupt PDF")
	}
}
