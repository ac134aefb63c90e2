package parser

import (
	"fmt"
	"strings"

	"cppapidoc/pkg/errors"
)

// DeclarationGrammar parses self-contained declaration text into the
// structure needed for template and requires-clause extraction.
type DeclarationGrammar interface {
	ParseFunction(text string, loc fmt.Stringer) (*Function, error)
	ParseMember(text string, loc fmt.Stringer) (*Member, error)
	ParseTemplateParameter(text string, loc fmt.Stringer) (*TemplateParameter, error)
	NormalizeRequires(terms []string, loc fmt.Stringer) ([]string, error)
	NameSubstitute(text string) string
}

// Grammar is the token-based DeclarationGrammar.
type Grammar struct{}

// NewGrammar returns the default declaration grammar.
func NewGrammar() *Grammar {
	return &Grammar{}
}

var _ DeclarationGrammar = (*Grammar)(nil)

// TemplateParameterKind classifies a template parameter.
type TemplateParameterKind int

const (
	TemplateTypeParameter TemplateParameterKind = iota
	TemplateTemplateParameter
	TemplateNonTypeParameter
)

func (k TemplateParameterKind) String() string {
	switch k {
	case TemplateTemplateParameter:
		return "template"
	case TemplateNonTypeParameter:
		return "non_type"
	default:
		return "type"
	}
}

// TemplateParameter is one entry of a template parameter list.
type TemplateParameter struct {
	Kind    TemplateParameterKind
	Name    string
	Pack    bool
	Type    []Token // declared type of a non-type parameter
	Default []Token // nil without a default argument
	Tokens  []Token
}

// Declaration returns the parameter as written, default included.
func (p *TemplateParameter) Declaration() string {
	return Format(p.Tokens)
}

// TemplateHead is one `template <...>` introducer with its optional
// requires-clause.
type TemplateHead struct {
	Parameters []*TemplateParameter
	Requires   []Token
}

// DeclName is a declarator-id split into its parts.
type DeclName struct {
	Qualifier    []Token // "ns::Outer<T>::" including the final "::"
	Base         []Token
	TemplateArgs []Token // "<...>" including the delimiters
}

// String returns the unqualified name with its template arguments.
func (n DeclName) String() string {
	return Format(concatTokens(n.Base, n.TemplateArgs))
}

// BaseName returns the name without qualifier and template arguments.
func (n DeclName) BaseName() string {
	return Format(n.Base)
}

// Args returns the template argument list text and whether one was present.
func (n DeclName) Args() (string, bool) {
	if len(n.TemplateArgs) == 0 {
		return "", false
	}
	return Format(n.TemplateArgs), true
}

// QualifierTemplateLists counts the template argument lists in the
// qualifier, one per enclosing class template of an out-of-line member.
func (n DeclName) QualifierTemplateLists() int {
	count, depth := 0, 0
	for _, tok := range n.Qualifier {
		switch tok.Type {
		case TokenTemplateOpen:
			if depth == 0 {
				count++
			}
			depth++
		case TokenTemplateClose:
			depth--
		}
	}
	return count
}

// Function is a parsed function declaration.
type Function struct {
	Templates []*TemplateHead
	Leading   []Token // specifiers and return type
	Name      DeclName
	Params    [][]Token
	Trailing  []Token // cv/ref qualifiers, noexcept, trailing return, "= default"
	Requires  []Token // trailing requires-clause
}

// Declaration renders the function with name in place of its declarator-id.
// Template introducers and the trailing requires-clause are not included.
func (f *Function) Declaration(name string) string {
	toks := make([]Token, 0, len(f.Leading)+len(f.Trailing)+8)
	toks = append(toks, f.Leading...)
	toks = append(toks, identToken(name), Token{Type: TokenLeftParen, Value: "("})
	for i, p := range f.Params {
		if i > 0 {
			toks = append(toks, Token{Type: TokenComma, Value: ","})
		}
		toks = append(toks, p...)
	}
	toks = append(toks, Token{Type: TokenRightParen, Value: ")"})
	toks = append(toks, f.Trailing...)
	return Format(toks)
}

// Member is a parsed variable, field or variable template declaration.
type Member struct {
	Templates   []*TemplateHead
	Leading     []Token // specifiers and type
	Name        DeclName
	After       []Token // rest of a parenthesised declarator, e.g. ")(int)"
	Suffix      []Token // array bounds and bit-field width
	Initializer []Token // "= expr", "{...}" or "(...)"
}

// Declaration renders the member with name in place of its declarator-id,
// without the initializer.
func (m *Member) Declaration(name string) string {
	return Format(concatTokens(m.Leading, []Token{identToken(name)}, m.After, m.Suffix))
}

// InitializerText returns the initializer as written, or "".
func (m *Member) InitializerText() string {
	return Format(m.Initializer)
}

// NameSubstitute returns the first identifier of the form __x{i} that does not
// occur in text.
func (g *Grammar) NameSubstitute(text string) string {
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("__x%d", i)
		if !strings.Contains(text, candidate) {
			return candidate
		}
	}
}

func grammarError(loc fmt.Stringer, text string, format string, args ...any) error {
	err := errors.Errorf(errors.KindGrammar, format, args...)
	err = errors.Attr(err, "text", text)
	if loc != nil {
		err = errors.Attr(err, "location", loc.String())
	}
	return err
}

// prepare tokenizes declaration text and removes a trailing semicolon.
func prepare(text string, expr bool, loc fmt.Stringer) ([]Token, error) {
	toks, err := SignificantTokens(text)
	if err != nil {
		return nil, errors.Attr(err, "location", locString(loc))
	}
	toks = NormalizeAngles(toks, expr)
	for len(toks) > 0 && toks[len(toks)-1].Type == TokenSemicolon {
		toks = toks[:len(toks)-1]
	}
	if len(toks) == 0 {
		return nil, grammarError(loc, text, "empty declaration")
	}
	if err := checkBalanced(toks); err != nil {
		return nil, grammarError(loc, text, "%v", err)
	}
	return toks, nil
}

func locString(loc fmt.Stringer) string {
	if loc == nil {
		return ""
	}
	return loc.String()
}

// parseTemplateHeads consumes every leading `template <...> [requires ...]`.
func parseTemplateHeads(tc *TokenCache, loc fmt.Stringer, text string) ([]*TemplateHead, error) {
	var heads []*TemplateHead
	for tc.check(TokenTemplate) && tc.peekAhead(1).Type == TokenTemplateOpen {
		tc.advance()
		group, ok := tc.skipGroup()
		if !ok {
			return nil, grammarError(loc, text, "unterminated template parameter list")
		}
		head := &TemplateHead{Parameters: []*TemplateParameter{}}
		inner := group[1 : len(group)-1]
		if len(inner) > 0 {
			for _, part := range splitTopLevel(inner, isComma) {
				param, err := parseTemplateParameter(part)
				if err != nil {
					return nil, grammarError(loc, text, "%v", err)
				}
				head.Parameters = append(head.Parameters, param)
			}
		}
		if tc.check(TokenRequires) {
			tc.advance()
			start := tc.position()
			if err := skipConstraintExpression(tc); err != nil {
				return nil, grammarError(loc, text, "%v", err)
			}
			head.Requires = tc.slice(start, tc.position())
		}
		heads = append(heads, head)
	}
	if tc.check(TokenTemplate) {
		return nil, grammarError(loc, text, "malformed template parameter list")
	}
	return heads, nil
}

// skipConstraintExpression consumes a constraint-logical-or-expression made
// of primary expressions joined by && and ||.
func skipConstraintExpression(tc *TokenCache) error {
	for {
		if err := skipConstraintPrimary(tc); err != nil {
			return err
		}
		if tc.check(TokenDoubleAmp) || tc.check(TokenDoublePipe) ||
			tc.checkWord("and") || tc.checkWord("or") {
			tc.advance()
			continue
		}
		return nil
	}
}

func skipConstraintPrimary(tc *TokenCache) error {
	for tc.check(TokenExclamation) || tc.checkWord("not") {
		tc.advance()
	}
	switch {
	case tc.isAtEnd():
		return fmt.Errorf("expected constraint expression")
	case tc.check(TokenLeftParen):
		if _, ok := tc.skipGroup(); !ok {
			return fmt.Errorf("unbalanced parenthesis in requires-clause")
		}
		return nil
	case tc.check(TokenRequires):
		tc.advance()
		if tc.check(TokenLeftParen) {
			if _, ok := tc.skipGroup(); !ok {
				return fmt.Errorf("unbalanced requires-expression parameters")
			}
		}
		if !tc.check(TokenLeftBrace) {
			return fmt.Errorf("expected requires-expression body")
		}
		tc.skipGroup()
		return nil
	case tc.check(TokenNumber), tc.check(TokenTrue), tc.check(TokenFalse):
		tc.advance()
		return nil
	}
	tc.match(TokenDoubleColon)
	for {
		if tc.check(TokenTemplate) {
			tc.advance()
		}
		if !tc.check(TokenIdentifier) {
			return fmt.Errorf("expected identifier in requires-clause, got %q", tc.peek().Value)
		}
		tc.advance()
		if tc.check(TokenTemplateOpen) {
			tc.skipGroup()
		}
		if !tc.match(TokenDoubleColon) {
			return nil
		}
	}
}

// ParseTemplateParameter parses a single template parameter.
func (g *Grammar) ParseTemplateParameter(text string, loc fmt.Stringer) (*TemplateParameter, error) {
	toks, err := prepare(text, false, loc)
	if err != nil {
		return nil, err
	}
	p, err := parseTemplateParameter(toks)
	if err != nil {
		return nil, grammarError(loc, text, "%v", err)
	}
	return p, nil
}

func parseTemplateParameter(toks []Token) (*TemplateParameter, error) {
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty template parameter")
	}
	p := &TemplateParameter{Tokens: toks}

	// template <...> class [...] [Name] [= default]
	if toks[0].Type == TokenTemplate && len(toks) > 1 && toks[1].Type == TokenTemplateOpen {
		close := matchClose(toks, 1)
		i := close + 1
		if close < 0 || i >= len(toks) || (toks[i].Type != TokenClass && toks[i].Type != TokenTypename) {
			return nil, fmt.Errorf("malformed template template parameter")
		}
		p.Kind = TemplateTemplateParameter
		return p, parseTypeParameterTail(p, toks, i+1)
	}

	if (toks[0].Type == TokenTypename || toks[0].Type == TokenClass) &&
		!(len(toks) > 2 && toks[1].Type == TokenIdentifier && toks[2].Type == TokenDoubleColon) &&
		!(len(toks) > 1 && toks[1].Type == TokenDoubleColon) {
		p.Kind = TemplateTypeParameter
		return p, parseTypeParameterTail(p, toks, 1)
	}

	p.Kind = TemplateNonTypeParameter
	head := toks
	if eq := indexTopLevel(toks, 0, isType(TokenEquals)); eq >= 0 {
		head = toks[:eq]
		p.Default = toks[eq+1:]
		if len(p.Default) == 0 {
			return nil, fmt.Errorf("missing default template argument")
		}
	}
	if len(head) == 0 {
		return nil, fmt.Errorf("missing template parameter type")
	}
	p.Type = head
	if last := len(head) - 1; last > 0 && head[last].Type == TokenIdentifier &&
		head[last-1].Type != TokenDoubleColon && head[last-1].Type != TokenTemplate {
		p.Name = head[last].Value
		p.Type = head[:last]
	}
	for _, tok := range p.Type {
		if tok.Type == TokenEllipsis {
			p.Pack = true
		}
	}
	return p, nil
}

func parseTypeParameterTail(p *TemplateParameter, toks []Token, i int) error {
	if i < len(toks) && toks[i].Type == TokenEllipsis {
		p.Pack = true
		i++
	}
	if i < len(toks) && toks[i].Type == TokenIdentifier {
		p.Name = toks[i].Value
		i++
	}
	if i < len(toks) && toks[i].Type == TokenEquals {
		p.Default = toks[i+1:]
		if len(p.Default) == 0 {
			return fmt.Errorf("missing default template argument")
		}
		return nil
	}
	if i < len(toks) {
		return fmt.Errorf("unexpected %q in template parameter", toks[i].Value)
	}
	return nil
}

// attributeWords introduce a parenthesised attribute.
var attributeWords = map[string]bool{
	"__attribute__": true,
	"__declspec":    true,
	"alignas":       true,
}

// IsAttributeWord reports whether word introduces a parenthesised attribute,
// as in __attribute__((packed)) or alignas(16).
func IsAttributeWord(word string) bool {
	return attributeWords[word]
}

// callLikeKeywords are words whose parenthesised operand is not a parameter
// list, besides the attribute words.
var callLikeKeywords = map[string]bool{
	"decltype":   true,
	"alignof":    true,
	"explicit":   true,
	"noexcept":   true,
	"sizeof":     true,
	"throw":      true,
	"_Alignas":   true,
	"typeof":     true,
	"__typeof__": true,
}

func isCallLike(word string) bool {
	return callLikeKeywords[word] || attributeWords[word]
}

// ParseFunction parses a function, method, constructor, destructor,
// conversion function or operator declaration.
func (g *Grammar) ParseFunction(text string, loc fmt.Stringer) (*Function, error) {
	toks, err := prepare(text, false, loc)
	if err != nil {
		return nil, err
	}
	tc := newTokenCache(toks)
	templates, err := parseTemplateHeads(tc, loc, text)
	if err != nil {
		return nil, err
	}
	rest := tc.rest()

	open := findParameterList(rest)
	if open < 0 {
		return nil, grammarError(loc, text, "expected function declarator")
	}
	nameStart, name, err := splitDeclaratorName(rest, open)
	if err != nil {
		return nil, grammarError(loc, text, "%v", err)
	}
	close := matchClose(rest, open)

	f := &Function{
		Templates: templates,
		Leading:   rest[:nameStart],
		Name:      name,
	}
	if inner := rest[open+1 : close]; len(inner) > 0 {
		f.Params = splitTopLevel(inner, isComma)
	}
	trailing := rest[close+1:]
	if body := indexTopLevel(trailing, 0, isType(TokenLeftBrace)); body >= 0 {
		trailing = trailing[:body]
	}
	if req := indexTopLevel(trailing, 0, isType(TokenRequires)); req >= 0 {
		f.Requires = trailing[req+1:]
		trailing = trailing[:req]
		if len(f.Requires) == 0 {
			return nil, grammarError(loc, text, "empty requires-clause")
		}
	}
	f.Trailing = trailing
	return f, nil
}

// findParameterList returns the index of the '(' that opens the parameter
// list, skipping operator() and keyword operands.
func findParameterList(toks []Token) int {
	depth := 0
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if isCloser(tok) {
			depth--
			continue
		}
		if !isOpener(tok) {
			continue
		}
		if depth == 0 && tok.Type == TokenLeftParen && i > 0 {
			prev := toks[i-1]
			switch {
			case prev.Type == TokenOperator:
				// operator(): skip the "()" that names the operator
				if i+1 < len(toks) && toks[i+1].Type == TokenRightParen {
					i++
					continue
				}
			case prev.IsWord() && isCallLike(prev.Value):
			default:
				return i
			}
		}
		depth++
	}
	return -1
}

// splitDeclaratorName locates the declarator-id that ends just before the
// parameter list at open.
func splitDeclaratorName(toks []Token, open int) (int, DeclName, error) {
	var name DeclName
	end := open

	// operator names: scan for a depth-0 "operator" before the parameter list
	opIdx := -1
	depth := 0
	for i := 0; i < end; i++ {
		switch {
		case isOpener(toks[i]) && !(i > 0 && toks[i-1].Type == TokenOperator):
			depth++
		case isCloser(toks[i]) && depth > 0 && !(i > 1 && toks[i-2].Type == TokenOperator):
			depth--
		case depth == 0 && toks[i].Type == TokenOperator:
			opIdx = i
		}
	}

	var baseStart int
	if opIdx >= 0 {
		baseStart = opIdx
		name.Base = toks[opIdx:end]
	} else {
		j := end - 1
		if j >= 0 && toks[j].Type == TokenTemplateClose {
			m := matchOpen(toks, j)
			if m < 0 {
				return 0, name, fmt.Errorf("unbalanced template arguments")
			}
			name.TemplateArgs = toks[m : j+1]
			j = m - 1
		}
		if j < 0 || toks[j].Type != TokenIdentifier {
			return 0, name, fmt.Errorf("expected declarator name")
		}
		baseStart = j
		if j > 0 && toks[j-1].Type == TokenTilde {
			baseStart = j - 1
		}
		name.Base = toks[baseStart : end-len(name.TemplateArgs)]
	}

	qStart := qualifierStart(toks, baseStart)
	name.Qualifier = toks[qStart:baseStart]
	return qStart, name, nil
}

// qualifierStart walks back over "A<..>::B::" preceding index i.
func qualifierStart(toks []Token, i int) int {
	start := i
	for start-1 >= 0 && toks[start-1].Type == TokenDoubleColon {
		j := start - 2
		if j >= 0 && toks[j].Type == TokenTemplateClose {
			m := matchOpen(toks, j)
			if m < 1 {
				break
			}
			j = m - 1
		}
		if j >= 0 && toks[j].Type == TokenIdentifier {
			start = j
			continue
		}
		// leading "::" names the global namespace
		start = start - 1
		break
	}
	return start
}

// ParseMember parses a variable, data member or variable template declaration.
func (g *Grammar) ParseMember(text string, loc fmt.Stringer) (*Member, error) {
	toks, err := prepare(text, false, loc)
	if err != nil {
		return nil, err
	}
	tc := newTokenCache(toks)
	templates, err := parseTemplateHeads(tc, loc, text)
	if err != nil {
		return nil, err
	}
	rest := tc.rest()
	m := &Member{Templates: templates}

	decl := rest
	if init := initializerStart(rest); init >= 0 {
		decl = rest[:init]
		m.Initializer = rest[init:]
	}

	// bit-field width
	if colon := indexTopLevel(decl, 0, isType(TokenColon)); colon >= 0 {
		m.Suffix = decl[colon:]
		decl = decl[:colon]
	}
	// array bounds
	suffixStart := len(decl)
	for suffixStart > 0 && decl[suffixStart-1].Type == TokenRightBracket {
		o := matchOpen(decl, suffixStart-1)
		if o <= 0 || (o > 0 && decl[o-1].Type == TokenLeftBracket) {
			break
		}
		suffixStart = o
	}
	m.Suffix = concatTokens(decl[suffixStart:], m.Suffix)
	decl = decl[:suffixStart]
	if len(m.Suffix) == 0 {
		m.Suffix = nil
	}

	if len(decl) == 0 {
		return nil, grammarError(loc, text, "expected declarator")
	}

	end := len(decl)
	if decl[end-1].Type == TokenRightParen {
		// parenthesised declarator: "void (*name)(int)"
		if err := splitParenthesizedDeclarator(m, decl); err != nil {
			return nil, grammarError(loc, text, "%v", err)
		}
		return m, nil
	}

	j := end - 1
	if decl[j].Type == TokenTemplateClose {
		o := matchOpen(decl, j)
		if o < 0 {
			return nil, grammarError(loc, text, "unbalanced template arguments")
		}
		m.Name.TemplateArgs = decl[o:end]
		j = o - 1
	}
	if j < 1 || decl[j].Type != TokenIdentifier {
		return nil, grammarError(loc, text, "expected declarator name")
	}
	m.Name.Base = decl[j : j+1]
	q := qualifierStart(decl, j)
	m.Name.Qualifier = decl[q:j]
	m.Leading = decl[:q]
	if len(m.Leading) == 0 {
		return nil, grammarError(loc, text, "missing type in declaration")
	}
	return m, nil
}

// initializerStart finds a depth-0 "=", brace initializer, or parenthesised
// initializer following the declarator name.
func initializerStart(toks []Token) int {
	depth := 0
	for i, tok := range toks {
		switch {
		case tok.Type == TokenEquals && depth == 0:
			return i
		case tok.Type == TokenLeftBrace && depth == 0 && i > 0:
			return i
		case tok.Type == TokenLeftParen && depth == 0 && i > 1:
			prev := toks[i-1]
			if prev.Type == TokenIdentifier && !isCallLike(prev.Value) {
				return i
			}
		}
		switch {
		case isOpener(tok):
			depth++
		case isCloser(tok):
			depth--
		}
	}
	return -1
}

// splitParenthesizedDeclarator handles declarators such as "(*cb)(int)" or
// "(&arr)[4]" where the name sits inside the first parenthesised group.
func splitParenthesizedDeclarator(m *Member, decl []Token) error {
	open := -1
	for i := 0; i < len(decl); i++ {
		if decl[i].Type != TokenLeftParen {
			if isOpener(decl[i]) {
				i = matchClose(decl, i)
				if i < 0 {
					return fmt.Errorf("unbalanced declarator")
				}
			}
			continue
		}
		if i+1 < len(decl) && isRefOrPtr(decl[i+1].Type) {
			open = i
			break
		}
		i = matchClose(decl, i)
		if i < 0 {
			return fmt.Errorf("unbalanced declarator")
		}
	}
	if open < 0 {
		return fmt.Errorf("expected declarator name")
	}
	close := matchClose(decl, open)
	nameIdx := -1
	for k := close - 1; k > open; k-- {
		if decl[k].Type == TokenIdentifier {
			nameIdx = k
			break
		}
	}
	if nameIdx < 0 {
		return fmt.Errorf("expected declarator name")
	}
	m.Name.Base = decl[nameIdx : nameIdx+1]
	q := qualifierStart(decl, nameIdx)
	m.Name.Qualifier = decl[q:nameIdx]
	m.Leading = decl[:q]
	m.After = decl[nameIdx+1:]
	return nil
}
