package extract

import (
	"strings"

	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/parser"
)

// sourceTokens returns the significant tokens of file within ranges, in
// order. A token that runs past the end of its range is cut at the range end,
// which splits a ">>" whose second '>' lies outside the range.
func sourceTokens(file *ast.File, ranges ...ast.Range) []parser.Token {
	var out []parser.Token
	for _, r := range ranges {
		end := r.End.Offset
		for _, tok := range file.TokensIn(r.Start.Offset, end) {
			switch {
			case tok.Type == parser.TokenWhitespace, tok.Type == parser.TokenNewline,
				tok.Type == parser.TokenBackslash, tok.IsComment():
				continue
			}
			if tok.End() > end {
				tok.Value = tok.Value[:end-tok.Offset]
				if tok.Value == ">" {
					tok.Type = parser.TokenGreater
				}
			}
			out = append(out, tok)
		}
	}
	return out
}

// Reconstruct returns the source within ranges as space-separated tokens,
// comments excluded.
func Reconstruct(file *ast.File, ranges ...ast.Range) string {
	return joinTokens(sourceTokens(file, ranges...))
}

// Prefix is the part of a declaration before its declarator proper.
type Prefix struct {
	Templates  [][]parser.Token // one "template <...>" introducer each, requires-clause included
	Requires   [][]parser.Token // requires-clauses of the introducers
	Specifiers []string         // attributes and leading specifiers as spelled
	Start      int              // index of the first remaining token
}

// prefixKeywords are the specifiers reported in Prefix.Specifiers.
var prefixKeywords = map[parser.TokenType]bool{
	parser.TokenExplicit:    true,
	parser.TokenConstexpr:   true,
	parser.TokenConsteval:   true,
	parser.TokenConstinit:   true,
	parser.TokenInline:      true,
	parser.TokenStatic:      true,
	parser.TokenVirtual:     true,
	parser.TokenFriend:      true,
	parser.TokenExtern:      true,
	parser.TokenThreadLocal: true,
	parser.TokenMutable:     true,
}

// SplitPrefix strips leading template introducers, attributes and specifiers
// from toks, which must already have normalized angle brackets.
func SplitPrefix(toks []parser.Token) Prefix {
	var p Prefix
	i := 0
	for i < len(toks) {
		tok := toks[i]
		switch {
		case tok.Type == parser.TokenTemplate && i+1 < len(toks) && toks[i+1].Type == parser.TokenTemplateOpen:
			close := parser.MatchClose(toks, i+1)
			if close < 0 {
				p.Start = i
				return p
			}
			end := close + 1
			if end < len(toks) && toks[end].Type == parser.TokenRequires {
				if c := parser.ConstraintEnd(toks, end+1); c > end+1 {
					p.Requires = append(p.Requires, toks[end+1:c])
					end = c
				}
			}
			p.Templates = append(p.Templates, toks[i:end])
			i = end
		case tok.Type == parser.TokenLeftBracket && i+1 < len(toks) && toks[i+1].Type == parser.TokenLeftBracket:
			close := parser.MatchClose(toks, i)
			if close < 0 {
				p.Start = i
				return p
			}
			p.Specifiers = append(p.Specifiers, parser.Format(toks[i:close+1]))
			i = close + 1
		case parser.IsAttributeWord(tok.Value) && i+1 < len(toks) && toks[i+1].Type == parser.TokenLeftParen:
			close := parser.MatchClose(toks, i+1)
			if close < 0 {
				p.Start = i
				return p
			}
			p.Specifiers = append(p.Specifiers, parser.Format(toks[i:close+1]))
			i = close + 1
		case prefixKeywords[tok.Type]:
			end := i + 1
			if tok.Type == parser.TokenExplicit && end < len(toks) && toks[end].Type == parser.TokenLeftParen {
				if close := parser.MatchClose(toks, end); close > 0 {
					end = close + 1
				}
			}
			p.Specifiers = append(p.Specifiers, parser.Format(toks[i:end]))
			i = end
		default:
			p.Start = i
			return p
		}
	}
	p.Start = i
	return p
}

// normalizeTokens retypes template angle brackets in toks.
func normalizeTokens(toks []parser.Token) []parser.Token {
	return parser.NormalizeAngles(toks, false)
}

// formatType prints type text canonically, or returns it trimmed when it
// cannot be tokenized.
func formatType(text string) string {
	toks, err := parser.SignificantTokens(text)
	if err != nil || len(toks) == 0 {
		return strings.Join(strings.Fields(text), " ")
	}
	return parser.Format(parser.NormalizeAngles(toks, false))
}

// joinTokens spells toks separated by single spaces.
func joinTokens(toks []parser.Token) string {
	parts := make([]string, len(toks))
	for i, tok := range toks {
		parts[i] = tok.Value
	}
	return strings.Join(parts, " ")
}
