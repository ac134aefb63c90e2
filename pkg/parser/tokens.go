package parser

import (
	"fmt"

	"cppapidoc/pkg/errors"
)

// SignificantTokens tokenizes text and drops whitespace, newlines, comments,
// line continuations and the EOF marker.
func SignificantTokens(text string) ([]Token, error) {
	tokenizer := NewTokenizer(text)
	all := tokenizer.Tokenize()
	if tokenizer.HasErrors() {
		first := tokenizer.GetErrors()[0]
		return nil, errors.Errorf(errors.KindGrammar, "tokenizer error at column %d: %s", first.Column, first.Value)
	}
	out := make([]Token, 0, len(all)/2)
	for _, tok := range all {
		switch {
		case tok.Type == TokenWhitespace, tok.Type == TokenNewline, tok.Type == TokenEOF,
			tok.Type == TokenBackslash, tok.IsComment():
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

// NormalizeAngles retypes the '<' and '>' tokens that delimit template
// argument and parameter lists as TokenTemplateOpen/TokenTemplateClose and
// splits a '>>' that closes two lists. In expression mode a '<' only opens a
// list when its closing '>' is followed by something that cannot start an
// operand, so `a < b && c > d` stays a pair of comparisons.
func NormalizeAngles(toks []Token, expr bool) []Token {
	out := make([]Token, 0, len(toks)+4)
	type open struct {
		index int // position in out
		paren int // bracket depth at the '<'
	}
	var stack []open
	paren := 0

	revert := func(o open) {
		out[o.index].Type = TokenLess
	}

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case TokenLeftParen, TokenLeftBracket, TokenLeftBrace:
			paren++
		case TokenRightParen, TokenRightBracket, TokenRightBrace:
			paren--
			for len(stack) > 0 && stack[len(stack)-1].paren > paren {
				revert(stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
		case TokenLess:
			var prev *Token
			if len(out) > 0 {
				prev = &out[len(out)-1]
			}
			if canOpenTemplate(prev) && (!expr || closesAsTemplate(toks, i)) {
				tok.Type = TokenTemplateOpen
				stack = append(stack, open{index: len(out), paren: paren})
			}
		case TokenGreater:
			if len(stack) > 0 && stack[len(stack)-1].paren == paren {
				tok.Type = TokenTemplateClose
				stack = stack[:len(stack)-1]
			}
		case TokenRightShift:
			if len(stack) > 0 && stack[len(stack)-1].paren == paren {
				stack = stack[:len(stack)-1]
				first, second := tok, tok
				first.Type, first.Value = TokenTemplateClose, ">"
				second.Value, second.Offset, second.Column = ">", tok.Offset+1, tok.Column+1
				second.Type = TokenGreater
				if len(stack) > 0 && stack[len(stack)-1].paren == paren {
					second.Type = TokenTemplateClose
					stack = stack[:len(stack)-1]
				}
				out = append(out, first, second)
				continue
			}
		}
		out = append(out, tok)
	}
	for _, o := range stack {
		revert(o)
	}
	return out
}

// canOpenTemplate reports whether a '<' following prev may open a template list.
func canOpenTemplate(prev *Token) bool {
	if prev == nil {
		return false
	}
	return prev.Type == TokenIdentifier || prev.Type == TokenTemplate
}

// closesAsTemplate simulates template matching from the '<' at i and checks
// that the closing '>' is followed by a token that cannot begin an operand.
func closesAsTemplate(toks []Token, i int) bool {
	angle, paren := 1, 0
	for k := i + 1; k < len(toks); k++ {
		switch toks[k].Type {
		case TokenLeftParen, TokenLeftBracket, TokenLeftBrace:
			paren++
		case TokenRightParen, TokenRightBracket, TokenRightBrace:
			if paren == 0 {
				return false
			}
			paren--
		case TokenSemicolon:
			return false
		case TokenLess:
			if paren == 0 && toks[k-1].Type == TokenIdentifier {
				angle++
			}
		case TokenGreater, TokenRightShift:
			if paren > 0 {
				continue
			}
			n := 1
			if toks[k].Type == TokenRightShift {
				n = 2
			}
			if angle <= n {
				if angle < n {
					return true
				}
				return k+1 >= len(toks) || !startsOperand(toks[k+1])
			}
			angle -= n
		}
	}
	return false
}

// startsOperand reports whether tok can begin an expression operand.
func startsOperand(tok Token) bool {
	switch tok.Type {
	case TokenIdentifier, TokenNumber, TokenString, TokenCharLiteral,
		TokenTrue, TokenFalse, TokenThis, TokenNullptr, TokenExclamation, TokenTilde,
		TokenSizeof, TokenAlignof, TokenDecltype:
		return true
	}
	return false
}

// isOpener reports whether tok opens a bracketed group.
func isOpener(tok Token) bool {
	switch tok.Type {
	case TokenLeftParen, TokenLeftBracket, TokenLeftBrace, TokenTemplateOpen:
		return true
	}
	return false
}

// isCloser reports whether tok closes a bracketed group.
func isCloser(tok Token) bool {
	switch tok.Type {
	case TokenRightParen, TokenRightBracket, TokenRightBrace, TokenTemplateClose:
		return true
	}
	return false
}

// matchClose returns the index of the token closing the group opened at i, or -1.
func matchClose(toks []Token, i int) int {
	depth := 0
	for k := i; k < len(toks); k++ {
		switch {
		case isOpener(toks[k]):
			depth++
		case isCloser(toks[k]):
			depth--
			if depth == 0 {
				return k
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

// matchOpen returns the index of the token opening the group closed at i, or -1.
func matchOpen(toks []Token, i int) int {
	depth := 0
	for k := i; k >= 0; k-- {
		switch {
		case isCloser(toks[k]):
			depth++
		case isOpener(toks[k]):
			depth--
			if depth == 0 {
				return k
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

// checkBalanced verifies that every bracket in toks is matched.
func checkBalanced(toks []Token) error {
	var stack []Token
	for _, tok := range toks {
		switch {
		case isOpener(tok):
			stack = append(stack, tok)
		case isCloser(tok):
			if len(stack) == 0 || closerFor(stack[len(stack)-1].Type) != tok.Type {
				return fmt.Errorf("unbalanced %q at column %d", tok.Value, tok.Column)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		last := stack[len(stack)-1]
		return fmt.Errorf("unclosed %q at column %d", last.Value, last.Column)
	}
	return nil
}

func closerFor(t TokenType) TokenType {
	switch t {
	case TokenLeftParen:
		return TokenRightParen
	case TokenLeftBracket:
		return TokenRightBracket
	case TokenLeftBrace:
		return TokenRightBrace
	default:
		return TokenTemplateClose
	}
}

// splitTopLevel splits toks at depth-0 tokens for which sep returns true.
// The separators themselves are dropped.
func splitTopLevel(toks []Token, sep func(Token) bool) [][]Token {
	var parts [][]Token
	depth, start := 0, 0
	for i, tok := range toks {
		switch {
		case isOpener(tok):
			depth++
		case isCloser(tok):
			depth--
		case depth == 0 && sep(tok):
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

// indexTopLevel returns the first depth-0 index at or after from for which
// pred returns true, or -1.
func indexTopLevel(toks []Token, from int, pred func(Token) bool) int {
	depth := 0
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case isOpener(tok):
			if depth == 0 && i >= from && pred(tok) {
				return i
			}
			depth++
		case isCloser(tok):
			depth--
		case depth == 0 && i >= from && pred(tok):
			return i
		}
	}
	return -1
}

func isComma(tok Token) bool { return tok.Type == TokenComma }

func isType(t TokenType) func(Token) bool {
	return func(tok Token) bool { return tok.Type == t }
}

func isAndOp(tok Token) bool {
	return tok.Type == TokenDoubleAmp || (tok.Type == TokenIdentifier && tok.Value == "and")
}

func isOrOp(tok Token) bool {
	return tok.Type == TokenDoublePipe || tok.Type == TokenQuestion ||
		(tok.Type == TokenIdentifier && tok.Value == "or")
}

// identToken builds a synthetic identifier token.
func identToken(value string) Token {
	return Token{Type: TokenIdentifier, Value: value}
}

// cloneTokens copies a token slice so edits do not alias the source.
func cloneTokens(toks []Token) []Token {
	if toks == nil {
		return nil
	}
	out := make([]Token, len(toks))
	copy(out, toks)
	return out
}

// concatTokens joins slices into a fresh slice.
func concatTokens(parts ...[]Token) []Token {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Token, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// MatchClose returns the index of the token closing the bracket or template
// argument list opened at i, or -1.
func MatchClose(toks []Token, i int) int {
	return matchClose(toks, i)
}

// SplitCommas splits toks at top-level commas.
func SplitCommas(toks []Token) [][]Token {
	return splitTopLevel(toks, isComma)
}

// ConstraintEnd returns the index just past the constraint expression of a
// requires-clause starting at i, or -1 when none can be read.
func ConstraintEnd(toks []Token, i int) int {
	tc := newTokenCache(toks[i:])
	if err := skipConstraintExpression(tc); err != nil {
		return -1
	}
	return i + tc.position()
}
