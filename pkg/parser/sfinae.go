package parser

// enableIf is one occurrence of std::enable_if_t<Cond, Result> or
// std::enable_if<Cond, Result>::type within a token slice.
type enableIf struct {
	start, end int // token range [start, end)
	cond       []Token
	result     []Token // nil when defaulted to void
}

// matchEnableIf matches the construct starting exactly at i.
func matchEnableIf(toks []Token, i int) (enableIf, bool) {
	j := i
	if j < len(toks) && toks[j].Type == TokenTypename {
		j++
	}
	if j < len(toks) && toks[j].Type == TokenDoubleColon {
		j++
	}
	if j+1 < len(toks) && toks[j].Value == "std" && toks[j+1].Type == TokenDoubleColon {
		j += 2
	}
	if j+1 >= len(toks) || toks[j].Type != TokenIdentifier || toks[j+1].Type != TokenTemplateOpen {
		return enableIf{}, false
	}
	name := toks[j].Value
	if name != "enable_if_t" && name != "enable_if" {
		return enableIf{}, false
	}
	close := matchClose(toks, j+1)
	if close < 0 {
		return enableIf{}, false
	}
	args := splitTopLevel(toks[j+2:close], isComma)
	if len(args) > 2 || len(args[0]) == 0 {
		return enableIf{}, false
	}
	e := enableIf{start: i, end: close + 1, cond: args[0]}
	if len(args) == 2 {
		e.result = args[1]
	}
	if name == "enable_if" {
		if e.end+1 >= len(toks) || toks[e.end].Type != TokenDoubleColon || toks[e.end+1].Value != "type" {
			return enableIf{}, false
		}
		e.end += 2
	}
	return e, true
}

// findEnableIf returns the first depth-0 construct in toks.
func findEnableIf(toks []Token) (enableIf, bool) {
	depth := 0
	for i, tok := range toks {
		switch {
		case isOpener(tok):
			depth++
			continue
		case isCloser(tok):
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if i > 0 && (toks[i-1].Type == TokenDoubleColon || toks[i-1].Type == TokenTypename) {
			continue
		}
		if e, ok := matchEnableIf(toks, i); ok {
			return e, true
		}
	}
	return enableIf{}, false
}

// replaceEnableIf substitutes the construct with its result type.
func replaceEnableIf(toks []Token, e enableIf) []Token {
	result := e.result
	if result == nil {
		result = []Token{{Type: TokenVoid, Value: "void"}}
	}
	return concatTokens(toks[:e.start], result, toks[e.end:])
}

// extractEnableIf removes template parameters that exist only to carry an
// enable_if constraint and returns the constraints.
func (h *TemplateHead) extractEnableIf() [][]Token {
	var terms [][]Token
	kept := h.Parameters[:0:0]
	for _, p := range h.Parameters {
		if cond, ok := enableIfParameter(p); ok {
			terms = append(terms, cond)
			continue
		}
		kept = append(kept, p)
	}
	h.Parameters = kept
	return terms
}

func enableIfParameter(p *TemplateParameter) ([]Token, bool) {
	switch p.Kind {
	case TemplateNonTypeParameter:
		e, ok := matchEnableIf(p.Type, 0)
		if !ok {
			return nil, false
		}
		rest := p.Type[e.end:]
		if len(rest) == 0 || (len(rest) == 1 && rest[0].Type == TokenStar) {
			return e.cond, true
		}
	case TemplateTypeParameter:
		if p.Default == nil {
			return nil, false
		}
		if e, ok := matchEnableIf(p.Default, 0); ok && e.end == len(p.Default) {
			return e.cond, true
		}
	}
	return nil, false
}

// ExtractEnableIf rewrites SFINAE constraints of f into requires terms. The
// constraint-carrying template parameters of the innermost template head are
// removed and an enable_if return type is replaced by its result type.
func (f *Function) ExtractEnableIf() []string {
	var conds [][]Token
	if n := len(f.Templates); n > 0 {
		conds = append(conds, f.Templates[n-1].extractEnableIf()...)
	}
	if e, ok := findEnableIf(f.Leading); ok {
		conds = append(conds, e.cond)
		f.Leading = replaceEnableIf(f.Leading, e)
	}
	if arrow := indexTopLevel(f.Trailing, 0, isType(TokenArrow)); arrow >= 0 {
		ret := f.Trailing[arrow+1:]
		if e, ok := findEnableIf(ret); ok {
			conds = append(conds, e.cond)
			f.Trailing = concatTokens(f.Trailing[:arrow+1], replaceEnableIf(ret, e))
		}
	}
	return renderTerms(conds)
}

// ExtractEnableIf removes constraint-carrying template parameters of the
// innermost template head of a variable template.
func (m *Member) ExtractEnableIf() []string {
	if n := len(m.Templates); n > 0 {
		return renderTerms(m.Templates[n-1].extractEnableIf())
	}
	return nil
}

func renderTerms(conds [][]Token) []string {
	out := make([]string, 0, len(conds))
	for _, c := range conds {
		out = append(out, FormatExpr(c))
	}
	return out
}
