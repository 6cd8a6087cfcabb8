// Package markdown turns snippet descriptions into sanitised HTML and a display tree.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type Kind string

const (
	KindDocument      Kind = "document"
	KindHeading       Kind = "heading"
	KindParagraph     Kind = "paragraph"
	KindText          Kind = "text"
	KindEmphasis      Kind = "emphasis"
	KindStrong        Kind = "strong"
	KindStrikethrough Kind = "strikethrough"
	KindCodeSpan      Kind = "code_span"
	KindCodeBlock     Kind = "code_block"
	KindList          Kind = "list"
	KindListItem      Kind = "list_item"
	KindLink          Kind = "link"
	KindImage         Kind = "image"
	KindBlockquote    Kind = "blockquote"
	KindThematicBreak Kind = "thematic_break"
	KindLineBreak     Kind = "line_break"
)

// Node is one element of the display tree.
type Node struct {
	Kind        Kind    `json:"kind"`
	Text        string  `json:"text,omitempty"`
	Level       int     `json:"level,omitempty"`
	Ordered     bool    `json:"ordered,omitempty"`
	Language    string  `json:"language,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Children    []*Node `json:"children,omitempty"`
}

type Document struct {
	HTML string `json:"html"`
	Tree *Node  `json:"tree"`
}

// Renderer is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

func (r *Renderer) Render(src string) (Document, error) {
	source := []byte(src)
	root := r.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, root); err != nil {
		return Document{}, fmt.Errorf("render markdown: %w", err)
	}

	tree := &Node{Kind: KindDocument}
	tree.Children = convertChildren(root, source)

	return Document{
		HTML: string(r.policy.SanitizeBytes(buf.Bytes())),
		Tree: tree,
	}, nil
}

func convertChildren(parent ast.Node, src []byte) []*Node {
	var out []*Node
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, convert(c, src)...)
	}
	return out
}

// convert maps one goldmark node to zero or more display nodes.
func convert(n ast.Node, src []byte) []*Node {
	switch v := n.(type) {
	case *ast.Heading:
		return one(&Node{Kind: KindHeading, Level: v.Level, Children: convertChildren(v, src)})
	case *ast.Paragraph:
		return one(&Node{Kind: KindParagraph, Children: convertChildren(v, src)})
	case *ast.TextBlock:
		return convertChildren(v, src)
	case *ast.Text:
		out := one(&Node{Kind: KindText, Text: string(v.Segment.Value(src))})
		switch {
		case v.HardLineBreak():
			out = append(out, &Node{Kind: KindLineBreak})
		case v.SoftLineBreak():
			out = append(out, &Node{Kind: KindText, Text: " "})
		}
		return out
	case *ast.String:
		return one(&Node{Kind: KindText, Text: string(v.Value)})
	case *ast.Emphasis:
		kind := KindEmphasis
		if v.Level >= 2 {
			kind = KindStrong
		}
		return one(&Node{Kind: kind, Children: convertChildren(v, src)})
	case *east.Strikethrough:
		return one(&Node{Kind: KindStrikethrough, Children: convertChildren(v, src)})
	case *ast.CodeSpan:
		return one(&Node{Kind: KindCodeSpan, Text: plainText(v, src)})
	case *ast.FencedCodeBlock:
		return one(&Node{Kind: KindCodeBlock, Language: string(v.Language(src)), Text: lines(v, src)})
	case *ast.CodeBlock:
		return one(&Node{Kind: KindCodeBlock, Text: lines(v, src)})
	case *ast.List:
		return one(&Node{Kind: KindList, Ordered: v.IsOrdered(), Children: convertChildren(v, src)})
	case *ast.ListItem:
		return one(&Node{Kind: KindListItem, Children: convertChildren(v, src)})
	case *ast.Link:
		return one(&Node{Kind: KindLink, Destination: string(v.Destination), Children: convertChildren(v, src)})
	case *ast.AutoLink:
		url := string(v.URL(src))
		return one(&Node{Kind: KindLink, Destination: url, Children: one(&Node{Kind: KindText, Text: url})})
	case *ast.Image:
		return one(&Node{Kind: KindImage, Destination: string(v.Destination), Text: plainText(v, src)})
	case *ast.Blockquote:
		return one(&Node{Kind: KindBlockquote, Children: convertChildren(v, src)})
	case *ast.ThematicBreak:
		return one(&Node{Kind: KindThematicBreak})
	case *ast.HTMLBlock, *ast.RawHTML:
		return nil
	default:
		return convertChildren(n, src)
	}
}

func one(n *Node) []*Node {
	return []*Node{n}
}

func lines(n ast.Node, src []byte) string {
	var b strings.Builder
	l := n.Lines()
	for i := 0; i < l.Len(); i++ {
		seg := l.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
