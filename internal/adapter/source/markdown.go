package source

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown returns the first heading as title and the document's text
// with markup removed. Code blocks are dropped.
func parseMarkdown(source []byte) (string, string) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var body, heading strings.Builder
	title := ""
	inHeading := false

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				inHeading = true
				heading.Reset()
			} else {
				inHeading = false
				if title == "" {
					title = strings.TrimSpace(heading.String())
				}
				body.WriteString("\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.ListItem:
			if !entering {
				body.WriteString("\n")
			}
		case *ast.Text:
			if entering {
				value := string(node.Segment.Value(source))
				body.WriteString(value)
				if inHeading {
					heading.WriteString(value)
				}
				if node.SoftLineBreak() || node.HardLineBreak() {
					body.WriteString(" ")
				}
			}
		}
		return ast.WalkContinue, nil
	})

	return title, strings.TrimSpace(body.String())
}
