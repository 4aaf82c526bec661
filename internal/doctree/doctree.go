package doctree

import "strings"

// DocTree is the root of a parsed patent document.
type DocTree struct {
	Title     string     // Document title (from metadata or filename)
	PageCount int        // Pages in the source; 0 for formats without pages
	Children  []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Text flattens the tree into plain text in document order. Headings are
// kept on their own line; blocks are separated by a blank line.
func (t *DocTree) Text() string {
	var blocks []string
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if title := strings.TrimSpace(n.Title); title != "" {
				blocks = append(blocks, title)
			}
			if text := strings.TrimSpace(n.Text); text != "" {
				blocks = append(blocks, text)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return strings.Join(blocks, "\n\n")
}

// Sections counts the nodes in the tree.
func (t *DocTree) Sections() int {
	var count func(nodes []*DocNode) int
	count = func(nodes []*DocNode) int {
		n := len(nodes)
		for _, c := range nodes {
			n += count(c.Children)
		}
		return n
	}
	return count(t.Children)
}

// Builder assembles a tree from a flat stream of headings and paragraphs.
// Paragraphs attach to the most recent heading; a heading nests under the
// nearest preceding heading of a lower level.
type Builder struct {
	root  *DocNode
	stack []level
	text  strings.Builder
}

type level struct {
	node  *DocNode
	depth int
}

func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{root: root, stack: []level{{node: root}}}
}

// Heading opens a section at depth (1 = top level).
func (b *Builder) Heading(depth int, title string) {
	b.flush()
	n := &DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, level{node: n, depth: depth})
}

// Paragraph appends body text to the current section. Blank text is ignored.
func (b *Builder) Paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(text)
}

func (b *Builder) flush() {
	t := strings.TrimSpace(b.text.String())
	b.text.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree finishes the build. Text that preceded the first heading becomes a
// leading untitled node.
func (b *Builder) Tree() *DocTree {
	b.flush()
	tree := &DocTree{Title: b.root.Title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}
