// Package parser - tokenizer implementation for C++ sources and declaration text
package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenWhitespace
	TokenNewline
	TokenLineComment    // //
	TokenBlockComment   // /* */
	TokenDoxygenComment // /** */, /*! */, /// or //!

	// Literals
	TokenIdentifier
	TokenNumber
	TokenString
	TokenCharLiteral

	// Operators and punctuation
	TokenLeftParen          // (
	TokenRightParen         // )
	TokenLeftBrace          // {
	TokenRightBrace         // }
	TokenLeftBracket        // [
	TokenRightBracket       // ]
	TokenSemicolon          // ;
	TokenColon              // :
	TokenDoubleColon        // ::
	TokenComma              // ,
	TokenDot                // .
	TokenDotStar            // .*
	TokenEllipsis           // ...
	TokenArrow              // ->
	TokenArrowStar          // ->*
	TokenEquals             // =
	TokenDoubleEquals       // ==
	TokenNotEquals          // !=
	TokenLess               // <
	TokenGreater            // >
	TokenLessEqual          // <=
	TokenGreaterEqual       // >=
	TokenSpaceship          // <=>
	TokenAmpersand          // &
	TokenDoubleAmp          // &&
	TokenPipe               // |
	TokenDoublePipe         // ||
	TokenCaret              // ^
	TokenTilde              // ~
	TokenExclamation        // !
	TokenQuestion           // ?
	TokenPlus               // +
	TokenMinus              // -
	TokenStar               // *
	TokenSlash              // /
	TokenPercent            // %
	TokenPlusPlus           // ++
	TokenMinusMinus         // --
	TokenPlusEquals         // +=
	TokenMinusEquals        // -=
	TokenStarEquals         // *=
	TokenSlashEquals        // /=
	TokenPercentEquals      // %=
	TokenAmpEquals          // &=
	TokenPipeEquals         // |=
	TokenCaretEquals        // ^=
	TokenLeftShift          // <<
	TokenRightShift         // >>
	TokenLeftShiftEquals    // <<=
	TokenRightShiftEquals   // >>=
	TokenTemplateOpen       // < opening a template argument or parameter list
	TokenTemplateClose      // > closing a template argument or parameter list

	// Preprocessor
	TokenHash      // #
	TokenHashHash  // ##
	TokenBackslash // \

	// Keywords
	TokenKeywordStart // Marker for start of keywords
	TokenNamespace
	TokenClass
	TokenStruct
	TokenEnum
	TokenUnion
	TokenTypedef
	TokenUsing
	TokenTemplate
	TokenTypename
	TokenPublic
	TokenPrivate
	TokenProtected
	TokenStatic
	TokenVirtual
	TokenInline
	TokenConst
	TokenConstexpr
	TokenConsteval
	TokenConstinit
	TokenMutable
	TokenExtern
	TokenVolatile
	TokenFriend
	TokenOperator
	TokenExplicit
	TokenNoexcept
	TokenThrow
	TokenRequires
	TokenConcept
	TokenAlignas
	TokenStaticAssert
	TokenThreadLocal
	TokenSizeof
	TokenAlignof
	TokenDecltype
	TokenAuto
	TokenVoid
	TokenBool
	TokenChar
	TokenShort
	TokenInt
	TokenLong
	TokenFloat
	TokenDouble
	TokenSigned
	TokenUnsigned
	TokenTrue
	TokenFalse
	TokenNullptr
	TokenThis
	TokenNew
	TokenDelete
	TokenDefault
	TokenReturn
	TokenKeywordEnd // Marker for end of keywords
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Value   string
	Line    int // line of the first character
	Column  int // column of the first character
	EndLine int // line of the last character
	Offset  int // byte offset of the first character
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Value)
}

// IsComment reports whether the token is any kind of comment.
func (t Token) IsComment() bool {
	return t.Type == TokenLineComment || t.Type == TokenBlockComment || t.Type == TokenDoxygenComment
}

// IsKeyword reports whether the token is a reserved word.
func (t Token) IsKeyword() bool {
	return t.Type > TokenKeywordStart && t.Type < TokenKeywordEnd
}

// IsWord reports whether the token is an identifier or a keyword.
func (t Token) IsWord() bool {
	return t.Type == TokenIdentifier || t.IsKeyword()
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR:%s", t.Value)
	case TokenWhitespace:
		return "WHITESPACE"
	case TokenNewline:
		return "NEWLINE"
	case TokenLineComment:
		return fmt.Sprintf("LINE_COMMENT:%s", t.Value)
	case TokenBlockComment:
		return fmt.Sprintf("BLOCK_COMMENT:%s", t.Value)
	case TokenDoxygenComment:
		return fmt.Sprintf("DOXYGEN_COMMENT:%s", t.Value)
	case TokenIdentifier:
		return fmt.Sprintf("IDENTIFIER:%s", t.Value)
	case TokenNumber:
		return fmt.Sprintf("NUMBER:%s", t.Value)
	case TokenString:
		return fmt.Sprintf("STRING:%s", t.Value)
	case TokenCharLiteral:
		return fmt.Sprintf("CHAR:%s", t.Value)
	default:
		if t.IsKeyword() {
			return fmt.Sprintf("KEYWORD:%s", t.Value)
		}
		return fmt.Sprintf("%s:%s", tokenTypeNames[t.Type], t.Value)
	}
}

// tokenTypeNames maps token types to their names for debugging
var tokenTypeNames = map[TokenType]string{
	TokenLeftParen:        "LEFT_PAREN",
	TokenRightParen:       "RIGHT_PAREN",
	TokenLeftBrace:        "LEFT_BRACE",
	TokenRightBrace:       "RIGHT_BRACE",
	TokenLeftBracket:      "LEFT_BRACKET",
	TokenRightBracket:     "RIGHT_BRACKET",
	TokenSemicolon:        "SEMICOLON",
	TokenColon:            "COLON",
	TokenDoubleColon:      "DOUBLE_COLON",
	TokenComma:            "COMMA",
	TokenDot:              "DOT",
	TokenDotStar:          "DOT_STAR",
	TokenEllipsis:         "ELLIPSIS",
	TokenArrow:            "ARROW",
	TokenArrowStar:        "ARROW_STAR",
	TokenEquals:           "EQUALS",
	TokenDoubleEquals:     "DOUBLE_EQUALS",
	TokenNotEquals:        "NOT_EQUALS",
	TokenLess:             "LESS",
	TokenGreater:          "GREATER",
	TokenLessEqual:        "LESS_EQUAL",
	TokenGreaterEqual:     "GREATER_EQUAL",
	TokenSpaceship:        "SPACESHIP",
	TokenAmpersand:        "AMPERSAND",
	TokenDoubleAmp:        "DOUBLE_AMP",
	TokenPipe:             "PIPE",
	TokenDoublePipe:       "DOUBLE_PIPE",
	TokenCaret:            "CARET",
	TokenTilde:            "TILDE",
	TokenExclamation:      "EXCLAMATION",
	TokenQuestion:         "QUESTION",
	TokenPlus:             "PLUS",
	TokenMinus:            "MINUS",
	TokenStar:             "STAR",
	TokenSlash:            "SLASH",
	TokenPercent:          "PERCENT",
	TokenPlusPlus:         "PLUS_PLUS",
	TokenMinusMinus:       "MINUS_MINUS",
	TokenPlusEquals:       "PLUS_EQUALS",
	TokenMinusEquals:      "MINUS_EQUALS",
	TokenStarEquals:       "STAR_EQUALS",
	TokenSlashEquals:      "SLASH_EQUALS",
	TokenPercentEquals:    "PERCENT_EQUALS",
	TokenAmpEquals:        "AMP_EQUALS",
	TokenPipeEquals:       "PIPE_EQUALS",
	TokenCaretEquals:      "CARET_EQUALS",
	TokenLeftShift:        "LEFT_SHIFT",
	TokenRightShift:       "RIGHT_SHIFT",
	TokenLeftShiftEquals:  "LEFT_SHIFT_EQUALS",
	TokenRightShiftEquals: "RIGHT_SHIFT_EQUALS",
	TokenTemplateOpen:     "TEMPLATE_OPEN",
	TokenTemplateClose:    "TEMPLATE_CLOSE",
	TokenHash:             "HASH",
	TokenHashHash:         "HASH_HASH",
	TokenBackslash:        "BACKSLASH",
}

// Keywords map for quick lookup
var keywords = map[string]TokenType{
	"namespace":     TokenNamespace,
	"class":         TokenClass,
	"struct":        TokenStruct,
	"enum":          TokenEnum,
	"union":         TokenUnion,
	"typedef":       TokenTypedef,
	"using":         TokenUsing,
	"template":      TokenTemplate,
	"typename":      TokenTypename,
	"public":        TokenPublic,
	"private":       TokenPrivate,
	"protected":     TokenProtected,
	"static":        TokenStatic,
	"virtual":       TokenVirtual,
	"inline":        TokenInline,
	"const":         TokenConst,
	"constexpr":     TokenConstexpr,
	"consteval":     TokenConsteval,
	"constinit":     TokenConstinit,
	"mutable":       TokenMutable,
	"extern":        TokenExtern,
	"volatile":      TokenVolatile,
	"friend":        TokenFriend,
	"operator":      TokenOperator,
	"explicit":      TokenExplicit,
	"noexcept":      TokenNoexcept,
	"throw":         TokenThrow,
	"requires":      TokenRequires,
	"concept":       TokenConcept,
	"alignas":       TokenAlignas,
	"static_assert": TokenStaticAssert,
	"thread_local":  TokenThreadLocal,
	"sizeof":        TokenSizeof,
	"alignof":       TokenAlignof,
	"decltype":      TokenDecltype,
	"auto":          TokenAuto,
	"void":          TokenVoid,
	"bool":          TokenBool,
	"char":          TokenChar,
	"short":         TokenShort,
	"int":           TokenInt,
	"long":          TokenLong,
	"float":         TokenFloat,
	"double":        TokenDouble,
	"signed":        TokenSigned,
	"unsigned":      TokenUnsigned,
	"true":          TokenTrue,
	"false":         TokenFalse,
	"nullptr":       TokenNullptr,
	"this":          TokenThis,
	"new":           TokenNew,
	"delete":        TokenDelete,
	"default":       TokenDefault,
	"return":        TokenReturn,
}

// rawStringPrefixes are identifier spellings that start a raw string literal
// when immediately followed by a double quote.
var rawStringPrefixes = map[string]bool{"R": true, "u8R": true, "uR": true, "UR": true, "LR": true}

// Tokenizer represents the tokenizer state
type Tokenizer struct {
	input       string
	pos         int // current position in input
	line        int // current line number
	column      int // current column number
	width       int // width of last rune read
	start       int // start position of current token
	startLine   int // line of current token start
	startColumn int // column of current token start
	tokens      []Token
	maxTokens   int // Maximum number of tokens to prevent OOM
	maxPos      int // Maximum position to prevent infinite loops
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	const maxTokensLimit = 1 << 23 // Prevent OOM from too many tokens
	return &Tokenizer{
		input:       input,
		line:        1,
		column:      1,
		startLine:   1,
		startColumn: 1,
		tokens:      make([]Token, 0, len(input)/3+16),
		maxTokens:   maxTokensLimit,
		maxPos:      len(input) + 1000, // Allow some buffer but prevent runaway
	}
}

// next reads the next rune and advances position
func (t *Tokenizer) next() rune {
	if t.pos >= len(t.input) {
		t.width = 0
		return 0
	}

	r, w := utf8.DecodeRuneInString(t.input[t.pos:])
	t.width = w
	t.pos += w

	if r == '\n' {
		t.line++
		t.column = 1
	} else {
		t.column++
	}

	return r
}

// backup steps back one rune
func (t *Tokenizer) backup() {
	t.pos -= t.width
	if t.pos < len(t.input) && t.input[t.pos] == '\n' {
		t.line--
		// Recalculate column by scanning back to start of line
		col := 1
		for i := t.pos - 1; i >= 0 && t.input[i] != '\n'; i-- {
			col++
		}
		t.column = col
	} else {
		t.column--
	}
}

// peek returns the next rune without advancing position
func (t *Tokenizer) peek() rune {
	r := t.next()
	t.backup()
	return r
}

// peekAt returns the byte n positions ahead without advancing, or 0 past the end.
func (t *Tokenizer) peekAt(n int) byte {
	if t.pos+n >= len(t.input) {
		return 0
	}
	return t.input[t.pos+n]
}

// mark records the start of a new token at the current position
func (t *Tokenizer) mark() {
	t.start = t.pos
	t.startLine = t.line
	t.startColumn = t.column
}

// emit creates a token and adds it to the tokens slice
func (t *Tokenizer) emit(tokenType TokenType) {
	// Safeguard: Check if we've exceeded maximum tokens
	if len(t.tokens) >= t.maxTokens {
		if tokenType != TokenError {
			t.tokens = append(t.tokens, Token{
				Type:    TokenError,
				Value:   "too many tokens - possible infinite loop or memory exhaustion",
				Line:    t.line,
				Column:  t.column,
				EndLine: t.line,
				Offset:  t.start,
			})
		}
		return
	}

	value := t.input[t.start:t.pos]
	t.tokens = append(t.tokens, Token{
		Type:    tokenType,
		Value:   value,
		Line:    t.startLine,
		Column:  t.startColumn,
		EndLine: t.startLine + strings.Count(strings.TrimSuffix(value, "\n"), "\n"),
		Offset:  t.start,
	})
	t.mark()
}

// emitError creates an error token
func (t *Tokenizer) emitError(message string) {
	t.tokens = append(t.tokens, Token{
		Type:    TokenError,
		Value:   message,
		Line:    t.startLine,
		Column:  t.startColumn,
		EndLine: t.line,
		Offset:  t.start,
	})
	t.mark()
}

// Tokenize processes the input and returns all tokens
func (t *Tokenizer) Tokenize() []Token {
	iterations := 0
	maxIterations := len(t.input) + 1024 // Every iteration consumes at least one rune

	for t.pos < len(t.input) {
		// Safeguard: Check for infinite loops
		iterations++
		if iterations > maxIterations {
			t.emitError("tokenizer exceeded maximum iterations - possible infinite loop")
			break
		}

		// Safeguard: Check position bounds
		if t.pos > t.maxPos {
			t.emitError("tokenizer position exceeded maximum bounds")
			break
		}

		oldPos := t.pos
		t.mark()

		r := t.next()

		switch {
		case r == 0:
			return append(t.tokens, t.eofToken())

		case unicode.IsSpace(r):
			if r == '\n' {
				t.emit(TokenNewline)
			} else {
				t.scanWhitespace()
			}

		case r == '/':
			if !t.scanComment() {
				t.scanSlashOperator()
			}

		case r == '#':
			t.scanHash()

		case r == '"':
			t.scanString()

		case r == '\'':
			t.scanChar()

		case unicode.IsLetter(r) || r == '_':
			t.scanIdentifier()

		case unicode.IsDigit(r):
			t.scanNumber()

		case r == '.' && unicode.IsDigit(rune(t.peekAt(0))):
			t.scanNumber()

		default:
			t.scanOperator()
		}

		// Safeguard: Ensure position advanced
		if t.pos == oldPos {
			t.emitError(fmt.Sprintf("tokenizer stuck at position %d", t.pos))
			t.pos++
		}

		if len(t.tokens) >= t.maxTokens {
			break
		}
	}

	if len(t.tokens) < t.maxTokens {
		return append(t.tokens, t.eofToken())
	}

	return t.tokens
}

func (t *Tokenizer) eofToken() Token {
	return Token{Type: TokenEOF, Line: t.line, Column: t.column, EndLine: t.line, Offset: t.pos}
}

// HasErrors returns true if the tokenizer encountered any errors
func (t *Tokenizer) HasErrors() bool {
	for _, token := range t.tokens {
		if token.Type == TokenError {
			return true
		}
	}
	return false
}

// GetErrors returns all error tokens
func (t *Tokenizer) GetErrors() []Token {
	var errors []Token
	for _, token := range t.tokens {
		if token.Type == TokenError {
			errors = append(errors, token)
		}
	}
	return errors
}

// SetMaxTokens sets the maximum number of tokens (for testing purposes)
func (t *Tokenizer) SetMaxTokens(max int) {
	t.maxTokens = max
}

// scanSlashOperator handles the / character that wasn't part of a comment
func (t *Tokenizer) scanSlashOperator() {
	if t.peek() == '=' {
		t.next()
		t.emit(TokenSlashEquals)
	} else {
		t.emit(TokenSlash)
	}
}

// scanWhitespace scans whitespace characters
func (t *Tokenizer) scanWhitespace() {
	for {
		r := t.peek()
		if !unicode.IsSpace(r) || r == '\n' {
			break
		}
		t.next()
	}
	t.emit(TokenWhitespace)
}

// scanComment scans comments and returns true if a comment was found.
// Doc comments are `///` (but not `////`), `//!`, `/**` (but not `/**/` or
// `/***`) and `/*!`.
func (t *Tokenizer) scanComment() bool {
	// We've already consumed one '/'
	switch t.peek() {
	case '/':
		t.next()
		doc := false
		switch t.peek() {
		case '/':
			t.next()
			doc = t.peek() != '/'
		case '!':
			t.next()
			doc = true
		}
		t.scanLineComment()
		if doc {
			t.emit(TokenDoxygenComment)
		} else {
			t.emit(TokenLineComment)
		}
		return true

	case '*':
		t.next()
		doc := false
		switch t.peek() {
		case '*':
			t.next()
			if t.peek() == '/' {
				// "/**/" is an empty ordinary comment
				t.next()
				t.emit(TokenBlockComment)
				return true
			}
			doc = t.peek() != '*'
		case '!':
			t.next()
			doc = true
		}
		t.scanBlockComment()
		if doc {
			t.emit(TokenDoxygenComment)
		} else {
			t.emit(TokenBlockComment)
		}
		return true
	}

	return false
}

// scanLineComment scans until end of line
func (t *Tokenizer) scanLineComment() {
	for {
		r := t.next()
		if r == '\n' || r == 0 {
			if r == '\n' {
				t.backup()
			}
			break
		}
	}
}

// scanBlockComment scans until */
func (t *Tokenizer) scanBlockComment() {
	for {
		r := t.next()
		if r == 0 {
			t.emitError("unterminated block comment")
			return
		}
		if r == '*' && t.peek() == '/' {
			t.next()
			return
		}
	}
}

// scanHash scans hash and hash-hash operators
func (t *Tokenizer) scanHash() {
	if t.peek() == '#' {
		t.next()
		t.emit(TokenHashHash)
	} else {
		t.emit(TokenHash)
	}
}

// scanString scans a string literal
func (t *Tokenizer) scanString() {
	for {
		r := t.next()
		if r == 0 || r == '\n' {
			if r == '\n' {
				t.backup()
			}
			t.emitError("unterminated string literal")
			return
		}
		if r == '"' {
			break
		}
		if r == '\\' {
			if t.next() == 0 {
				t.emitError("unterminated string literal - EOF after escape")
				return
			}
		}
	}
	t.emit(TokenString)
}

// scanRawString scans the remainder of R"delim( ... )delim" after the prefix.
func (t *Tokenizer) scanRawString() {
	t.next() // opening quote
	open := t.pos
	for t.pos < len(t.input) && t.input[t.pos] != '(' {
		if t.input[t.pos] == '\n' || t.pos-open > 16 {
			t.emitError("invalid raw string delimiter")
			return
		}
		t.next()
	}
	delim := t.input[open:t.pos]
	closer := ")" + delim + "\""
	end := strings.Index(t.input[t.pos:], closer)
	if end < 0 {
		for t.pos < len(t.input) {
			t.next()
		}
		t.emitError("unterminated raw string literal")
		return
	}
	target := t.pos + end + len(closer)
	for t.pos < target {
		t.next()
	}
	t.emit(TokenString)
}

// scanChar scans a character literal
func (t *Tokenizer) scanChar() {
	count := 0
	const maxCharLength = 16 // Character literals should be very short

	for {
		r := t.next()
		count++
		if count > maxCharLength {
			t.emitError("character literal too long")
			return
		}
		if r == 0 || r == '\n' {
			if r == '\n' {
				t.backup()
			}
			t.emitError("unterminated character literal")
			return
		}
		if r == '\'' {
			break
		}
		if r == '\\' {
			if t.next() == 0 {
				t.emitError("unterminated character literal - EOF after escape")
				return
			}
		}
	}
	t.emit(TokenCharLiteral)
}

// scanIdentifier scans an identifier or keyword
func (t *Tokenizer) scanIdentifier() {
	for {
		r := t.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		t.next()
	}

	value := t.input[t.start:t.pos]
	if rawStringPrefixes[value] && t.peek() == '"' {
		t.scanRawString()
		return
	}
	if tokenType, isKeyword := keywords[value]; isKeyword {
		t.emit(tokenType)
	} else {
		t.emit(TokenIdentifier)
	}
}

// scanNumber scans a numeric literal including digit separators, suffixes
// and signed exponents.
func (t *Tokenizer) scanNumber() {
	for {
		r := t.peek()
		switch {
		case unicode.IsDigit(r) || unicode.IsLetter(r) || r == '_' || r == '.':
			t.next()
		case r == '\'' && unicode.IsDigit(rune(t.peekAt(1))):
			t.next()
		case r == '+' || r == '-':
			prev := t.input[t.pos-1]
			hex := strings.HasPrefix(strings.ToLower(t.input[t.start:t.pos]), "0x")
			if (hex || (prev != 'e' && prev != 'E')) && prev != 'p' && prev != 'P' {
				t.emit(TokenNumber)
				return
			}
			t.next()
		default:
			t.emit(TokenNumber)
			return
		}
	}
}

// scanOperator scans operators and punctuation
func (t *Tokenizer) scanOperator() {
	r := t.input[t.pos-1] // Current character (already consumed)

	switch r {
	case '(':
		t.emit(TokenLeftParen)
	case ')':
		t.emit(TokenRightParen)
	case '{':
		t.emit(TokenLeftBrace)
	case '}':
		t.emit(TokenRightBrace)
	case '[':
		t.emit(TokenLeftBracket)
	case ']':
		t.emit(TokenRightBracket)
	case ';':
		t.emit(TokenSemicolon)
	case ',':
		t.emit(TokenComma)
	case '\\':
		t.emit(TokenBackslash)
	case '?':
		t.emit(TokenQuestion)
	case '~':
		t.emit(TokenTilde)

	case '^':
		t.emitWithEquals(TokenCaret, TokenCaretEquals)
	case '%':
		t.emitWithEquals(TokenPercent, TokenPercentEquals)
	case '*':
		t.emitWithEquals(TokenStar, TokenStarEquals)
	case '=':
		t.emitWithEquals(TokenEquals, TokenDoubleEquals)
	case '!':
		t.emitWithEquals(TokenExclamation, TokenNotEquals)

	case ':':
		if t.peek() == ':' {
			t.next()
			t.emit(TokenDoubleColon)
		} else {
			t.emit(TokenColon)
		}

	case '.':
		switch {
		case t.peekAt(0) == '.' && t.peekAt(1) == '.':
			t.next()
			t.next()
			t.emit(TokenEllipsis)
		case t.peek() == '*':
			t.next()
			t.emit(TokenDotStar)
		default:
			t.emit(TokenDot)
		}

	case '<':
		switch {
		case t.peekAt(0) == '=' && t.peekAt(1) == '>':
			t.next()
			t.next()
			t.emit(TokenSpaceship)
		case t.peekAt(0) == '<' && t.peekAt(1) == '=':
			t.next()
			t.next()
			t.emit(TokenLeftShiftEquals)
		case t.peek() == '=':
			t.next()
			t.emit(TokenLessEqual)
		case t.peek() == '<':
			t.next()
			t.emit(TokenLeftShift)
		default:
			t.emit(TokenLess)
		}

	case '>':
		switch {
		case t.peekAt(0) == '>' && t.peekAt(1) == '=':
			t.next()
			t.next()
			t.emit(TokenRightShiftEquals)
		case t.peek() == '=':
			t.next()
			t.emit(TokenGreaterEqual)
		case t.peek() == '>':
			t.next()
			t.emit(TokenRightShift)
		default:
			t.emit(TokenGreater)
		}

	case '&':
		switch t.peek() {
		case '&':
			t.next()
			t.emit(TokenDoubleAmp)
		case '=':
			t.next()
			t.emit(TokenAmpEquals)
		default:
			t.emit(TokenAmpersand)
		}

	case '|':
		switch t.peek() {
		case '|':
			t.next()
			t.emit(TokenDoublePipe)
		case '=':
			t.next()
			t.emit(TokenPipeEquals)
		default:
			t.emit(TokenPipe)
		}

	case '+':
		switch t.peek() {
		case '+':
			t.next()
			t.emit(TokenPlusPlus)
		case '=':
			t.next()
			t.emit(TokenPlusEquals)
		default:
			t.emit(TokenPlus)
		}

	case '-':
		switch {
		case t.peekAt(0) == '>' && t.peekAt(1) == '*':
			t.next()
			t.next()
			t.emit(TokenArrowStar)
		case t.peek() == '-':
			t.next()
			t.emit(TokenMinusMinus)
		case t.peek() == '=':
			t.next()
			t.emit(TokenMinusEquals)
		case t.peek() == '>':
			t.next()
			t.emit(TokenArrow)
		default:
			t.emit(TokenMinus)
		}

	default:
		t.emitError(fmt.Sprintf("unexpected character: %c", r))
	}
}

// emitWithEquals emits compound when the next rune is '=' and plain otherwise.
func (t *Tokenizer) emitWithEquals(plain, compound TokenType) {
	if t.peek() == '=' {
		t.next()
		t.emit(compound)
	} else {
		t.emit(plain)
	}
}
