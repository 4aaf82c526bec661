package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/patentalloy/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := doctree.NewBuilder(baseTitle(filename))
	var para strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			b.Paragraph(para.String())
			para.Reset()
			continue
		}
		if para.Len() > 0 {
			para.WriteString("\n")
		}
		para.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.Paragraph(para.String())

	return b.Tree(), nil
}
