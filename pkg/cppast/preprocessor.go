package cppast

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cppapidoc/pkg/parser"
)

// Values of __cplusplus per -std flag.
var cplusplusVersions = map[string]string{
	"98": "199711L", "03": "199711L",
	"11": "201103L", "0x": "201103L",
	"14": "201402L", "1y": "201402L",
	"17": "201703L", "1z": "201703L",
	"20": "202002L", "2a": "202002L",
	"23": "202302L", "2b": "202302L",
	"26": "202400L", "2c": "202400L",
}

const defaultCplusplus = "201703L"

// maxExpansionDepth bounds recursive macro expansion in #if conditions.
const maxExpansionDepth = 32

type preprocessor struct {
	defines    map[string]string
	quoteDirs  []string
	includeDir []string
	systemDirs []string
}

// newPreprocessor interprets the compiler flags relevant to declaration
// visibility: macro definitions, include directories and the language level.
// Unrecognized flags are ignored.
func newPreprocessor(flags []string) *preprocessor {
	pp := &preprocessor{defines: map[string]string{
		"__cplusplus": defaultCplusplus,
	}}

	for i := 0; i < len(flags); i++ {
		flag := flags[i]
		value := func(prefix string) (string, bool) {
			if flag == prefix {
				if i+1 < len(flags) {
					i++
					return flags[i], true
				}
				return "", false
			}
			if strings.HasPrefix(flag, prefix) {
				return strings.TrimPrefix(flag, prefix), true
			}
			return "", false
		}

		switch {
		case strings.HasPrefix(flag, "-std="):
			std := strings.TrimPrefix(flag, "-std=")
			for _, dialect := range []string{"c++", "gnu++"} {
				if v, ok := cplusplusVersions[strings.TrimPrefix(std, dialect)]; ok && strings.HasPrefix(std, dialect) {
					pp.defines["__cplusplus"] = v
				}
			}
		case strings.HasPrefix(flag, "-iquote"):
			if v, ok := value("-iquote"); ok {
				pp.quoteDirs = append(pp.quoteDirs, v)
			}
		case strings.HasPrefix(flag, "-isystem"):
			if v, ok := value("-isystem"); ok {
				pp.systemDirs = append(pp.systemDirs, v)
			}
		case strings.HasPrefix(flag, "-I"):
			if v, ok := value("-I"); ok {
				pp.includeDir = append(pp.includeDir, v)
			}
		case strings.HasPrefix(flag, "-D"):
			if v, ok := value("-D"); ok {
				name, val, found := strings.Cut(v, "=")
				if !found {
					val = "1"
				}
				pp.defines[name] = val
			}
		case strings.HasPrefix(flag, "-U"):
			if v, ok := value("-U"); ok {
				delete(pp.defines, v)
			}
		}
	}
	return pp
}

func (pp *preprocessor) define(name, value string) {
	pp.defines[name] = strings.TrimSpace(value)
}

func (pp *preprocessor) undef(name string) {
	delete(pp.defines, name)
}

func (pp *preprocessor) defined(name string) bool {
	_, ok := pp.defines[name]
	return ok
}

// resolveInclude finds the file named by an #include directive. Quoted
// includes search the including file's directory first.
func (pp *preprocessor) resolveInclude(from, name string, quoted bool) (string, bool) {
	if filepath.IsAbs(name) {
		return name, fileExists(name)
	}
	var dirs []string
	if quoted {
		dirs = append(dirs, filepath.Dir(from))
		dirs = append(dirs, pp.quoteDirs...)
	}
	dirs = append(dirs, pp.includeDir...)
	dirs = append(dirs, pp.systemDirs...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// condition evaluates the controlling expression of #if or #elif. Malformed
// expressions evaluate to false.
func (pp *preprocessor) condition(expr, from string) bool {
	toks, err := parser.SignificantTokens(expr)
	if err != nil {
		return false
	}
	ev := &evaluator{pp: pp, from: from, toks: toks}
	v := ev.conditional()
	return ev.err == nil && v != 0
}

type evaluator struct {
	pp    *preprocessor
	from  string
	toks  []parser.Token
	pos   int
	depth int
	err   error
}

type evalError string

func (e evalError) Error() string { return string(e) }

func (ev *evaluator) peek() parser.Token {
	if ev.pos < len(ev.toks) {
		return ev.toks[ev.pos]
	}
	return parser.Token{Type: parser.TokenEOF}
}

func (ev *evaluator) next() parser.Token {
	tok := ev.peek()
	if ev.pos < len(ev.toks) {
		ev.pos++
	}
	return tok
}

func (ev *evaluator) fail(msg string) int64 {
	if ev.err == nil {
		ev.err = evalError(msg)
	}
	return 0
}

func (ev *evaluator) conditional() int64 {
	cond := ev.binary(0)
	if ev.peek().Type != parser.TokenQuestion {
		return cond
	}
	ev.next()
	then := ev.conditional()
	if ev.next().Type != parser.TokenColon {
		return ev.fail("expected ':'")
	}
	otherwise := ev.conditional()
	if cond != 0 {
		return then
	}
	return otherwise
}

// binaryPrecedence lists operators from loosest to tightest binding.
var binaryPrecedence = [][]parser.TokenType{
	{parser.TokenDoublePipe},
	{parser.TokenDoubleAmp},
	{parser.TokenPipe},
	{parser.TokenCaret},
	{parser.TokenAmpersand},
	{parser.TokenDoubleEquals, parser.TokenNotEquals},
	{parser.TokenLess, parser.TokenGreater, parser.TokenLessEqual, parser.TokenGreaterEqual},
	{parser.TokenLeftShift, parser.TokenRightShift},
	{parser.TokenPlus, parser.TokenMinus},
	{parser.TokenStar, parser.TokenSlash, parser.TokenPercent},
}

func (ev *evaluator) binary(level int) int64 {
	if level == len(binaryPrecedence) {
		return ev.unary()
	}
	left := ev.binary(level + 1)
	for {
		op := ev.peek().Type
		if !containsType(binaryPrecedence[level], op) {
			return left
		}
		ev.next()
		right := ev.binary(level + 1)
		left = apply(op, left, right, ev)
	}
}

func containsType(types []parser.TokenType, t parser.TokenType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func apply(op parser.TokenType, l, r int64, ev *evaluator) int64 {
	switch op {
	case parser.TokenDoublePipe:
		return boolInt(l != 0 || r != 0)
	case parser.TokenDoubleAmp:
		return boolInt(l != 0 && r != 0)
	case parser.TokenPipe:
		return l | r
	case parser.TokenCaret:
		return l ^ r
	case parser.TokenAmpersand:
		return l & r
	case parser.TokenDoubleEquals:
		return boolInt(l == r)
	case parser.TokenNotEquals:
		return boolInt(l != r)
	case parser.TokenLess:
		return boolInt(l < r)
	case parser.TokenGreater:
		return boolInt(l > r)
	case parser.TokenLessEqual:
		return boolInt(l <= r)
	case parser.TokenGreaterEqual:
		return boolInt(l >= r)
	case parser.TokenLeftShift:
		return l << uint64(r&63)
	case parser.TokenRightShift:
		return l >> uint64(r&63)
	case parser.TokenPlus:
		return l + r
	case parser.TokenMinus:
		return l - r
	case parser.TokenStar:
		return l * r
	case parser.TokenSlash, parser.TokenPercent:
		if r == 0 {
			return ev.fail("division by zero")
		}
		if op == parser.TokenSlash {
			return l / r
		}
		return l % r
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (ev *evaluator) unary() int64 {
	switch ev.peek().Type {
	case parser.TokenExclamation:
		ev.next()
		return boolInt(ev.unary() == 0)
	case parser.TokenMinus:
		ev.next()
		return -ev.unary()
	case parser.TokenPlus:
		ev.next()
		return ev.unary()
	case parser.TokenTilde:
		ev.next()
		return ^ev.unary()
	}
	return ev.primary()
}

func (ev *evaluator) primary() int64 {
	tok := ev.next()
	switch tok.Type {
	case parser.TokenLeftParen:
		v := ev.conditional()
		if ev.next().Type != parser.TokenRightParen {
			return ev.fail("expected ')'")
		}
		return v
	case parser.TokenNumber:
		return parseNumber(tok.Value)
	case parser.TokenCharLiteral:
		return parseChar(tok.Value)
	case parser.TokenTrue:
		return 1
	case parser.TokenFalse:
		return 0
	case parser.TokenIdentifier:
		return ev.identifier(tok.Value)
	case parser.TokenEOF:
		return ev.fail("unexpected end of expression")
	}
	if tok.IsKeyword() {
		return ev.identifier(tok.Value)
	}
	return ev.fail("unexpected token " + tok.Value)
}

func (ev *evaluator) identifier(name string) int64 {
	switch name {
	case "defined":
		paren := ev.peek().Type == parser.TokenLeftParen
		if paren {
			ev.next()
		}
		target := ev.next()
		if paren && ev.next().Type != parser.TokenRightParen {
			return ev.fail("expected ')' after defined")
		}
		return boolInt(ev.pp.defined(target.Value))
	case "__has_include", "__has_include_next":
		return ev.hasInclude()
	}

	if ev.peek().Type == parser.TokenLeftParen {
		// function-like macro invocations and feature-test builtins evaluate to 0
		ev.skipArguments()
		return 0
	}
	value, ok := ev.pp.defines[name]
	if !ok {
		return 0
	}
	if ev.depth >= maxExpansionDepth {
		return ev.fail("macro expansion too deep")
	}
	toks, err := parser.SignificantTokens(value)
	if err != nil || len(toks) == 0 {
		return 0
	}
	sub := &evaluator{pp: ev.pp, from: ev.from, toks: toks, depth: ev.depth + 1}
	v := sub.conditional()
	if sub.err != nil {
		return ev.fail(sub.err.Error())
	}
	return v
}

func (ev *evaluator) skipArguments() {
	depth := 0
	for {
		tok := ev.next()
		switch tok.Type {
		case parser.TokenLeftParen:
			depth++
		case parser.TokenRightParen:
			depth--
			if depth == 0 {
				return
			}
		case parser.TokenEOF:
			ev.fail("unterminated argument list")
			return
		}
	}
}

func (ev *evaluator) hasInclude() int64 {
	if ev.next().Type != parser.TokenLeftParen {
		return ev.fail("expected '(' after __has_include")
	}
	var name string
	quoted := false
	switch tok := ev.next(); tok.Type {
	case parser.TokenString:
		name, quoted = strings.Trim(tok.Value, `"`), true
	case parser.TokenLess:
		var sb strings.Builder
		for ev.peek().Type != parser.TokenGreater && ev.peek().Type != parser.TokenEOF {
			sb.WriteString(ev.next().Value)
		}
		ev.next()
		name = sb.String()
	default:
		return ev.fail("malformed __has_include")
	}
	if ev.next().Type != parser.TokenRightParen {
		return ev.fail("expected ')' after __has_include")
	}
	_, ok := ev.pp.resolveInclude(ev.from, name, quoted)
	return boolInt(ok)
}

func parseNumber(lit string) int64 {
	lit = strings.ReplaceAll(lit, "'", "")
	lit = strings.TrimRight(lit, "uUlLzZ")
	if len(lit) > 1 && lit[0] == '0' && lit[1] != 'x' && lit[1] != 'X' && lit[1] != 'b' && lit[1] != 'B' {
		lit = "0o" + lit[1:]
	}
	v, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(lit, 0, 64)
		if uerr != nil {
			return 0
		}
		return int64(u)
	}
	return v
}

func parseChar(lit string) int64 {
	start := strings.IndexByte(lit, '\'')
	if start < 0 {
		return 0
	}
	body := strings.TrimSuffix(lit[start+1:], "'")
	if v, _, _, err := strconv.UnquoteChar(body, '\''); err == nil {
		return int64(v)
	}
	return 0
}
