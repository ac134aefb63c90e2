// Package comments locates and normalizes the documentation comments of
// declarations.
package comments

import (
	"regexp"
	"strings"

	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/parser"
)

// Doc is normalized documentation text with the location of its first line.
type Doc struct {
	Text     string
	Location ast.Location
}

// Nonitpick is a "NONITPICK: target" marker found next to a declaration.
type Nonitpick struct {
	File   string
	Line   int
	Target string
}

// Result is the outcome of a comment lookup.
type Result struct {
	Doc       *Doc // nil when the declaration is undocumented
	Nonitpick []Nonitpick
}

// Options controls a lookup.
type Options struct {
	// Trailing enables the forward search for "///<" style comments when no
	// leading documentation is found.
	Trailing bool
}

// DefaultOptions returns the options used for declarations of kind k.
func DefaultOptions(k ast.CursorKind) Options {
	switch k {
	case ast.CursorVariable, ast.CursorField, ast.CursorTypedef, ast.CursorTypeAlias,
		ast.CursorEnumConstant, ast.CursorUnexposed:
		return Options{Trailing: true}
	}
	return Options{}
}

// maxBlankLines is the number of blank lines allowed inside a comment run and
// between the run and the declaration.
const maxBlankLines = 1

var nonitpickPattern = regexp.MustCompile(`NONITPICK:\s*(\S.*?)\s*$`)

// Extract finds the documentation comment of d in file.
func Extract(file *ast.File, d *ast.Decl, opts Options) Result {
	start := d.Extent.Start.Offset
	if d.Kind == ast.CursorMacroDefinition {
		start = file.LineStart(start)
	}
	bound := d.SearchStart
	if bound < 0 || bound > start {
		bound = 0
	}

	var res Result
	run := leadingRun(file.TokensIn(bound, start), file.Position(start).Line)
	res.Nonitpick = appendNonitpick(res.Nonitpick, file.Path, run)

	doc := docSuffix(run)
	if len(doc) == 0 && opts.Trailing {
		trailing := trailingRun(file, d.Extent.End.Offset)
		res.Nonitpick = appendNonitpick(res.Nonitpick, file.Path, trailing)
		doc = trailing
	}
	if len(doc) == 0 {
		return res
	}

	text, skipped := Join(doc)
	if text == "" {
		return res
	}
	loc := file.Location(doc[0].Offset)
	if skipped > 0 {
		loc.Line += skipped
		loc.Column = 1
	}
	res.Doc = &Doc{Text: text, Location: loc}
	return res
}

// leadingRun walks toks backward from the declaration on line declLine and
// returns the contiguous comments before it in source order.
func leadingRun(toks []parser.Token, declLine int) []parser.Token {
	var run []parser.Token
	next := declLine
	for i := len(toks) - 1; i >= 0; i-- {
		tok := toks[i]
		if tok.Type == parser.TokenWhitespace || tok.Type == parser.TokenNewline {
			continue
		}
		if !tok.IsComment() || next-tok.EndLine > maxBlankLines+1 {
			break
		}
		run = append(run, tok)
		next = tok.Line
	}
	for i, j := 0, len(run)-1; i < j; i, j = i+1, j-1 {
		run[i], run[j] = run[j], run[i]
	}
	return run
}

// docSuffix returns the trailing documentation comments of run. Comments
// documenting the previous declaration ("///<") are not part of it.
func docSuffix(run []parser.Token) []parser.Token {
	i := len(run)
	for i > 0 && IsDoc(run[i-1]) && !IsTrailingDoc(run[i-1]) {
		i--
	}
	return run[i:]
}

// trailingRun scans forward from end for "///<" comments on the line of the
// declaration end or the following one. A single "," or ";" may precede them.
func trailingRun(file *ast.File, end int) []parser.Token {
	toks := file.Tokens()
	line := file.Position(end).Line
	separator := false

	var run []parser.Token
	for i := file.TokenIndex(end); i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.Type == parser.TokenWhitespace || tok.Type == parser.TokenNewline:
			continue
		case len(run) == 0 && !separator && (tok.Type == parser.TokenComma || tok.Type == parser.TokenSemicolon):
			separator = true
			continue
		case IsTrailingDoc(tok) && tok.Line-line <= 1:
			run = append(run, tok)
			line = tok.EndLine
			continue
		}
		break
	}
	return run
}

func appendNonitpick(out []Nonitpick, path string, toks []parser.Token) []Nonitpick {
	for _, tok := range toks {
		for i, l := range strings.Split(tok.Value, "\n") {
			m := nonitpickPattern.FindStringSubmatch(strings.TrimSuffix(strings.TrimSpace(l), "*/"))
			if m == nil {
				continue
			}
			out = append(out, Nonitpick{File: path, Line: tok.Line + i, Target: strings.TrimSpace(m[1])})
		}
	}
	return out
}
