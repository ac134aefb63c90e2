package parser

// TokenCache is a cursor over an already-normalized significant token slice.
// The declaration grammar walks template heads and requires-clauses with it.
type TokenCache struct {
	tokens  []Token // The token array
	current int     // Current position in the token array
}

// NewTokenCache tokenizes content, drops insignificant tokens and retypes
// template angle brackets.
func NewTokenCache(content string) (*TokenCache, error) {
	tokens, err := SignificantTokens(content)
	if err != nil {
		return nil, err
	}
	return newTokenCache(NormalizeAngles(tokens, false)), nil
}

func newTokenCache(tokens []Token) *TokenCache {
	return &TokenCache{tokens: tokens}
}

// advance returns the current token and moves to the next
func (tc *TokenCache) advance() Token {
	if !tc.isAtEnd() {
		tc.current++
	}
	return tc.previous()
}

// isAtEnd checks if we're at the end of tokens
func (tc *TokenCache) isAtEnd() bool {
	return tc.current >= len(tc.tokens)
}

// peek returns the current token without advancing
func (tc *TokenCache) peek() Token {
	return tc.peekAhead(0)
}

// previous returns the previous token
func (tc *TokenCache) previous() Token {
	if tc.current <= 0 {
		return Token{Type: TokenEOF}
	}
	return tc.tokens[tc.current-1]
}

// peekAhead looks ahead by offset tokens
func (tc *TokenCache) peekAhead(offset int) Token {
	targetIndex := tc.current + offset
	if targetIndex < 0 || targetIndex >= len(tc.tokens) {
		return Token{Type: TokenEOF}
	}
	return tc.tokens[targetIndex]
}

// check returns true if current token is of given type
func (tc *TokenCache) check(tokenType TokenType) bool {
	return !tc.isAtEnd() && tc.peek().Type == tokenType
}

// checkWord returns true if current token is the identifier or keyword word
func (tc *TokenCache) checkWord(word string) bool {
	return !tc.isAtEnd() && tc.peek().IsWord() && tc.peek().Value == word
}

// match checks if current token matches any of the given types
func (tc *TokenCache) match(types ...TokenType) bool {
	for _, tokenType := range types {
		if tc.check(tokenType) {
			tc.advance()
			return true
		}
	}
	return false
}

// skipGroup consumes a bracketed group starting at the current token and
// returns its tokens including the delimiters. It returns false when the
// group is not closed.
func (tc *TokenCache) skipGroup() ([]Token, bool) {
	start := tc.current
	end := matchClose(tc.tokens, start)
	if end < 0 {
		return nil, false
	}
	tc.current = end + 1
	return tc.tokens[start : end+1], true
}

// slice returns the tokens between two positions.
func (tc *TokenCache) slice(start, end int) []Token {
	return tc.tokens[start:end]
}

// rest returns the tokens from the current position onward.
func (tc *TokenCache) rest() []Token {
	if tc.isAtEnd() {
		return nil
	}
	return tc.tokens[tc.current:]
}

// position returns the current position in the token array
func (tc *TokenCache) position() int {
	return tc.current
}

// setPosition sets the current position (for checkpointing)
func (tc *TokenCache) setPosition(position int) {
	if position < 0 {
		tc.current = 0
	} else if position >= len(tc.tokens) {
		tc.current = len(tc.tokens)
	} else {
		tc.current = position
	}
}
