// Package casebook reads end-to-end compiler cases from Markdown files.
//
// A case starts at a heading "Test: <name>" and is made of the fenced code blocks that follow it:
//
//	c42       the program to compile (required)
//	output    what the program prints when run
//	warnings  the optimizer warnings, one per line
//	error     a substring of the expected compile error
//	listing   the expected instruction listing
//	ast       the expected optimized program, as printed by the compiler
//
// Prose and fences without a language are ignored.
package casebook

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type Kind string

const (
	KindSource   Kind = "c42"
	KindOutput   Kind = "output"
	KindWarnings Kind = "warnings"
	KindError    Kind = "error"
	KindListing  Kind = "listing"
	KindAST      Kind = "ast"
)

const headingPrefix = "Test: "

var knownKinds = map[Kind]bool{
	KindSource:   true,
	KindOutput:   true,
	KindWarnings: true,
	KindError:    true,
	KindListing:  true,
	KindAST:      true,
}

type Case struct {
	Name   string
	Line   int // line of the heading
	Source string
	expect map[Kind]string
}

// Expect returns the content of the fence of the given kind, and whether the case has one.
func (c *Case) Expect(kind Kind) (string, bool) {
	content, ok := c.expect[kind]
	return content, ok
}

// Lines splits the content of a fence into its non blank lines.
func (c *Case) Lines(kind Kind) []string {
	var ret []string
	for _, line := range strings.Split(c.expect[kind], "\n") {
		if strings.TrimSpace(line) != "" {
			ret = append(ret, line)
		}
	}
	return ret
}

// Load reads the cases of the Markdown file at path.
func Load(path string) ([]Case, error) {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Parse extracts the cases of a Markdown document.
func Parse(src []byte) ([]Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var cases []Case
	var current *Case
	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Source == "" {
			return fmt.Errorf("line %d: test %q has no %s fence", current.Line, current.Name, KindSource)
		}
		if len(current.expect) == 0 {
			return fmt.Errorf("line %d: test %q expects nothing", current.Line, current.Name)
		}
		cases = append(cases, *current)
		current = nil
		return nil
	}
	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, src)
			if !strings.HasPrefix(heading, headingPrefix) {
				return ast.WalkSkipChildren, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{
				Name:   strings.TrimSpace(strings.TrimPrefix(heading, headingPrefix)),
				Line:   lineOf(n, src),
				expect: map[Kind]string{},
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			kind := Kind(n.Language(src))
			if kind == "" {
				return ast.WalkContinue, nil
			}
			line := lineOf(n, src)
			if !knownKinds[kind] {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence %q", line, kind)
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test", line, kind)
			}
			content := fenceContent(n, src)
			if kind == KindSource {
				if current.Source != "" {
					return ast.WalkStop, fmt.Errorf("line %d: test %q has two %s fences", line, current.Name, kind)
				}
				current.Source = content
				return ast.WalkContinue, nil
			}
			if _, exist := current.expect[kind]; exist {
				return ast.WalkStop, fmt.Errorf("line %d: test %q has two %s fences", line, current.Name, kind)
			}
			current.expect[kind] = strings.TrimRight(content, "\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func nodeText(node ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(src))
	}
	return buf.String()
}

// lineOf returns the 1-based line of the first content line of node.
func lineOf(node ast.Node, src []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(src[:start], []byte("\n")) + 1
}
