package parser

import "strings"

// Format prints a normalized token slice in type context: pointer and
// reference declarators attach to the type on their left.
func Format(toks []Token) string {
	return format(toks, false)
}

// FormatExpr prints a normalized token slice in expression context: binary
// operators are surrounded by single spaces.
func FormatExpr(toks []Token) string {
	return format(toks, true)
}

func format(toks []Token, expr bool) string {
	if len(toks) == 0 {
		return ""
	}
	glue := operatorGlue(toks)
	var sb strings.Builder
	sb.WriteString(toks[0].Value)
	for i := 1; i < len(toks); i++ {
		if !glue[i] && needsSpace(toks, i, expr) {
			sb.WriteByte(' ')
		}
		sb.WriteString(toks[i].Value)
	}
	return sb.String()
}

// operatorGlue marks tokens that belong to an operator-function-id and must
// be printed without a preceding space.
func operatorGlue(toks []Token) []bool {
	glue := make([]bool, len(toks))
	for i := 0; i < len(toks)-1; i++ {
		if toks[i].Type != TokenOperator {
			continue
		}
		j := i + 1
		switch next := toks[j]; {
		case next.Type == TokenLeftParen || next.Type == TokenLeftBracket:
			glue[j] = true
			if j+1 < len(toks) {
				glue[j+1] = true
			}
		case next.Type == TokenString:
			glue[j] = true
			if j+1 < len(toks) && toks[j+1].Type == TokenIdentifier {
				glue[j+1] = true
			}
		case next.IsWord():
			// conversion function or operator new/delete
		default:
			glue[j] = true
			if j+1 < len(toks) && toks[j+1].Type == TokenLeftParen {
				glue[j+1] = true
			}
		}
	}
	return glue
}

func isUnaryCandidate(t TokenType) bool {
	switch t {
	case TokenExclamation, TokenTilde, TokenMinus, TokenPlus, TokenPlusPlus, TokenMinusMinus,
		TokenStar, TokenAmpersand:
		return true
	}
	return false
}

// endsOperand reports whether tok can end an operand, which makes a
// following operator binary.
func endsOperand(tok Token) bool {
	switch tok.Type {
	case TokenIdentifier, TokenNumber, TokenString, TokenCharLiteral, TokenRightParen,
		TokenRightBracket, TokenTemplateClose, TokenTrue, TokenFalse, TokenThis, TokenNullptr:
		return true
	}
	return false
}

func isRefOrPtr(t TokenType) bool {
	return t == TokenStar || t == TokenAmpersand || t == TokenDoubleAmp
}

func needsSpace(toks []Token, i int, expr bool) bool {
	prev, cur := toks[i-1], toks[i]

	switch prev.Type {
	case TokenLeftParen, TokenLeftBracket, TokenLeftBrace, TokenTemplateOpen, TokenDoubleColon,
		TokenDot, TokenDotStar, TokenArrowStar, TokenHash:
		return false
	case TokenArrow:
		// member access in expressions, trailing return type in declarations
		return !expr
	}

	switch cur.Type {
	case TokenRightParen, TokenRightBracket, TokenRightBrace, TokenComma, TokenSemicolon,
		TokenTemplateClose, TokenDot:
		return false
	case TokenArrow:
		return !expr
	case TokenDoubleColon:
		return !(prev.IsWord() || prev.Type == TokenTemplateClose)
	case TokenTemplateOpen:
		return prev.Type == TokenTemplate
	case TokenLeftParen:
		if prev.Type == TokenEllipsis && i >= 2 && toks[i-2].Type == TokenSizeof {
			return false
		}
		// declarator group: "void (*fn)(int)"
		if !expr && i+1 < len(toks) && isRefOrPtr(toks[i+1].Type) &&
			(prev.IsWord() || prev.Type == TokenTemplateClose) && prev.Type != TokenOperator {
			return true
		}
		switch prev.Type {
		case TokenRightParen, TokenRightBracket, TokenTemplateClose:
			return false
		}
		return !prev.IsWord()
	case TokenLeftBracket:
		switch prev.Type {
		case TokenRightParen, TokenRightBracket, TokenTemplateClose:
			return false
		}
		return !prev.IsWord()
	case TokenLeftBrace:
		return !(prev.IsWord() || prev.Type == TokenTemplateClose)
	case TokenEllipsis:
		switch prev.Type {
		case TokenComma, TokenLeftParen:
			return true
		}
		return !(prev.IsWord() || prev.Type == TokenTemplateClose || prev.Type == TokenRightParen ||
			(!expr && isRefOrPtr(prev.Type)))
	}

	if !expr && isRefOrPtr(cur.Type) {
		switch prev.Type {
		case TokenRightParen, TokenTemplateClose, TokenStar, TokenAmpersand, TokenDoubleAmp:
			return false
		}
		if prev.IsWord() {
			return false
		}
	}
	if !expr && isRefOrPtr(prev.Type) && cur.IsWord() {
		// "T* x" but "(*fn)"
		return !(i >= 2 && toks[i-2].Type == TokenLeftParen)
	}

	if isUnaryCandidate(prev.Type) && (expr || !isRefOrPtr(prev.Type)) {
		if i < 2 || !endsOperand(toks[i-2]) {
			return false
		}
	}
	return true
}
