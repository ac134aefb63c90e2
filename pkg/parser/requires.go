package parser

import (
	"fmt"
)

// NormalizeRequires flattens each term's top-level conjunctions into separate
// terms, parenthesises every term that is not a literal, `this` or an
// id-expression, and removes duplicates keeping the first occurrence.
func (g *Grammar) NormalizeRequires(terms []string, loc fmt.Stringer) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, term := range terms {
		toks, err := prepare(term, true, loc)
		if err != nil {
			return nil, err
		}
		flat, err := flattenConjunction(toks)
		if err != nil {
			return nil, grammarError(loc, term, "%v", err)
		}
		for _, t := range flat {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// RequiresTerm renders a constraint token slice as a single term.
func RequiresTerm(toks []Token) string {
	toks = stripParens(toks)
	text := FormatExpr(toks)
	if isPrimaryExpression(toks) {
		return text
	}
	return "(" + text + ")"
}

func flattenConjunction(toks []Token) ([]string, error) {
	toks = stripParens(toks)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty constraint")
	}
	if indexTopLevel(toks, 0, isOrOp) >= 0 || indexTopLevel(toks, 0, isComma) >= 0 {
		return []string{RequiresTerm(toks)}, nil
	}
	parts := splitTopLevel(toks, isAndOp)
	if len(parts) == 1 {
		return []string{RequiresTerm(toks)}, nil
	}
	var out []string
	for _, part := range parts {
		if len(part) == 0 {
			return nil, fmt.Errorf("missing operand of '&&'")
		}
		sub, err := flattenConjunction(part)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// stripParens removes parentheses that enclose the whole slice.
func stripParens(toks []Token) []Token {
	for len(toks) >= 2 && toks[0].Type == TokenLeftParen && matchClose(toks, 0) == len(toks)-1 {
		toks = toks[1 : len(toks)-1]
	}
	return toks
}

// isPrimaryExpression reports whether toks is a literal, `this` or a
// (possibly qualified, possibly templated) id-expression.
func isPrimaryExpression(toks []Token) bool {
	if len(toks) == 1 {
		switch toks[0].Type {
		case TokenNumber, TokenString, TokenCharLiteral, TokenTrue, TokenFalse,
			TokenNullptr, TokenThis, TokenIdentifier:
			return true
		}
		return false
	}
	i := 0
	if i < len(toks) && toks[i].Type == TokenDoubleColon {
		i++
	}
	for {
		if i < len(toks) && toks[i].Type == TokenTemplate {
			i++
		}
		if i >= len(toks) || toks[i].Type != TokenIdentifier {
			return false
		}
		i++
		if i < len(toks) && toks[i].Type == TokenTemplateOpen {
			close := matchClose(toks, i)
			if close < 0 {
				return false
			}
			i = close + 1
		}
		if i == len(toks) {
			return true
		}
		if toks[i].Type != TokenDoubleColon {
			return false
		}
		i++
	}
}
