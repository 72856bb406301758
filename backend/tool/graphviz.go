// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"regexp"
	"strings"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
	"github.com/bureau-foundation/glyph/lib/safemode"
)

// graphvizLayouts are the engines accepted for the "layout" option,
// passed as -K.
var graphvizLayouts = []string{"dot", "neato", "fdp", "sfdp", "twopi", "circo", "osage", "patchwork"}

// graphvizFileAttribute matches DOT attributes that make dot read a
// file from disk, quoted or not.
var graphvizFileAttribute = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])"?(image|imagepath|shapefile|fontpath)"?\s*=`)

// graphvizHTMLImage matches an IMG element in an HTML-like label.
var graphvizHTMLImage = regexp.MustCompile(`(?i)<\s*img\b`)

// graphvizFileDir is the empty directory GV_FILE_PATH names in secure
// mode. With SERVER_NAME set, dot only opens files found there.
const graphvizFileDir = "gvfiles"

// Graphviz renders DOT source with the dot binary.
type Graphviz struct {
	base
}

// NewGraphviz returns a Graphviz backend that runs binary.
func NewGraphviz(runner Runner, binary string) *Graphviz {
	return &Graphviz{base{
		name:    "graphviz",
		runner:  runner,
		binary:  binary,
		formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG, diagram.FormatPDF, diagram.FormatJPEG},
	}}
}

// Convert renders request.Source with dot, writing the image to stdout.
func (g *Graphviz) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(g, request); err != nil {
		return nil, err
	}
	secure := request.SafeMode.AtLeast(safemode.Secure)
	if secure {
		if err := g.checkFileReferences(string(request.Source)); err != nil {
			return nil, err
		}
	}

	arguments := []string{"-T" + string(request.Format)}
	layout, err := chooseOption(g.name, request, "layout", graphvizLayouts)
	if err != nil {
		return nil, err
	}
	if layout != "" {
		arguments = append(arguments, "-K"+layout)
	}

	command := commander.Command{
		Name:  g.binary,
		Args:  arguments,
		Stdin: request.Source,
	}
	if secure {
		command.Env = map[string]string{
			"SERVER_NAME":  g.name,
			"GV_FILE_PATH": "./" + graphvizFileDir + "/",
		}
		command.Dirs = []string{graphvizFileDir}
	}

	result, err := g.execute(ctx, command)
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Stdout), nil
}

// checkFileReferences refuses source that would make dot open a local
// file. Attributes are matched both as written and with comments and
// string splicing removed, so neither can hide an attribute name.
func (g *Graphviz) checkFileReferences(source string) error {
	for _, text := range []string{source, graphvizSignificantText(source)} {
		if match := graphvizFileAttribute.FindStringSubmatch(text); match != nil {
			return diagram.PolicyViolation(g.name,
				"the "+strings.ToLower(match[1])+" attribute reads local files and is not permitted in secure mode")
		}
	}
	if graphvizHTMLImage.MatchString(source) {
		return diagram.PolicyViolation(g.name,
			"IMG elements in HTML labels read local files and are not permitted in secure mode")
	}
	return nil
}

// graphvizSignificantText returns DOT source the way dot's lexer sees
// it: comments and preprocessor lines become blanks, backslash-newline
// continuations inside quoted strings are joined, and "a" + "b"
// concatenations become one quoted string. HTML strings are copied
// as written.
func graphvizSignificantText(source string) string {
	var out strings.Builder
	out.Grow(len(source))
	for i := 0; i < len(source); {
		switch next := skipDOTComments(source, i); {
		case next != i:
			out.WriteByte(' ')
			i = next
		case source[i] == '"':
			i = copyDOTQuoted(&out, source, i)
		case source[i] == '<':
			i = copyDOTHTML(&out, source, i)
		default:
			out.WriteByte(source[i])
			i++
		}
	}
	return out.String()
}

// skipDOTComments returns the index of the first byte at or after i
// that is not part of a comment. Whitespace is kept.
func skipDOTComments(source string, i int) int {
	for i < len(source) {
		rest := source[i:]
		switch {
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return len(source)
			}
			i += 2 + end + 2
		case strings.HasPrefix(rest, "//"),
			rest[0] == '#' && (i == 0 || source[i-1] == '\n'):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				return len(source)
			}
			i += end
		default:
			return i
		}
	}
	return i
}

// skipDOTSpace skips whitespace and comments.
func skipDOTSpace(source string, i int) int {
	for {
		next := skipDOTComments(source, i)
		for next < len(source) && strings.IndexByte(" \t\r\n", source[next]) >= 0 {
			next++
		}
		if next == i {
			return i
		}
		i = next
	}
}

// copyDOTQuoted copies the quoted string starting at source[start],
// and any strings joined to it with +, as a single quoted string. It
// returns the index after the last closing quote.
func copyDOTQuoted(out *strings.Builder, source string, start int) int {
	out.WriteByte('"')
	i := start + 1
	for i < len(source) {
		switch {
		case strings.HasPrefix(source[i:], "\\\n"):
			i += 2
		case strings.HasPrefix(source[i:], "\\\r\n"):
			i += 3
		case source[i] == '\\' && i+1 < len(source):
			out.WriteString(source[i : i+2])
			i += 2
		case source[i] == '"':
			plus := skipDOTSpace(source, i+1)
			if plus < len(source) && source[plus] == '+' {
				if quote := skipDOTSpace(source, plus+1); quote < len(source) && source[quote] == '"' {
					i = quote + 1
					continue
				}
			}
			out.WriteByte('"')
			return i + 1
		default:
			out.WriteByte(source[i])
			i++
		}
	}
	return i
}

// copyDOTHTML copies the HTML string starting at source[start] up to
// its matching '>'.
func copyDOTHTML(out *strings.Builder, source string, start int) int {
	depth := 0
	for i := start; i < len(source); i++ {
		out.WriteByte(source[i])
		switch source[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(source)
}
