package config

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cppapidoc/pkg/errors"
)

// pattern is a list of regular expressions compiled into one alternation.
// The zero value matches nothing.
type pattern struct {
	re *regexp.Regexp
}

func (p pattern) match(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

func (p pattern) empty() bool {
	return p.re == nil
}

type replacement struct {
	re   *regexp.Regexp
	with string
}

type filters struct {
	allowPaths               pattern
	disallowPaths            pattern
	disallowNamespaces       pattern
	allowSymbols             pattern
	disallowSymbols          pattern
	allowMacros              pattern
	disallowMacros           pattern
	ignoreDiagnostics        pattern
	hideTypes                pattern
	hideInitializers         pattern
	ignoreTemplateParameters pattern
	typeReplacements         []replacement
}

// compilePattern joins exprs into "^(?:(?:a)|(?:b))", anchored at the end too
// when full is set.
func compilePattern(key string, exprs []string, full bool) (pattern, error) {
	if len(exprs) == 0 {
		return pattern{}, nil
	}
	for _, e := range exprs {
		if _, err := regexp.Compile(e); err != nil {
			return pattern{}, errors.Attr(errors.Wrapf(err, errors.KindConfig, "invalid pattern in %s", key), "pattern", e)
		}
	}
	src := "^(?:(?:" + strings.Join(exprs, ")|(?:") + "))"
	if full {
		src += "$"
	}
	return pattern{re: regexp.MustCompile(src)}, nil
}

func compileFilters(c *Config) (*filters, error) {
	f := &filters{}
	lists := []struct {
		key   string
		exprs []string
		full  bool
		dst   *pattern
	}{
		{"allow_paths", c.AllowPaths, false, &f.allowPaths},
		{"disallow_paths", c.DisallowPaths, false, &f.disallowPaths},
		{"disallow_namespaces", c.DisallowNamespaces, false, &f.disallowNamespaces},
		{"allow_symbols", c.AllowSymbols, false, &f.allowSymbols},
		{"disallow_symbols", c.DisallowSymbols, false, &f.disallowSymbols},
		{"allow_macros", c.AllowMacros, false, &f.allowMacros},
		{"disallow_macros", c.DisallowMacros, false, &f.disallowMacros},
		{"ignore_diagnostics", c.IgnoreDiagnostics, false, &f.ignoreDiagnostics},
		{"hide_types", c.HideTypes, true, &f.hideTypes},
		{"hide_initializers", c.HideInitializers, true, &f.hideInitializers},
		{"ignore_template_parameters", c.IgnoreTemplateParameters, true, &f.ignoreTemplateParameters},
	}
	for _, l := range lists {
		p, err := compilePattern(l.key, l.exprs, l.full)
		if err != nil {
			return nil, err
		}
		*l.dst = p
	}

	for _, r := range c.TypeReplacements {
		re, err := regexp.Compile(wordBounded(r.Pattern))
		if err != nil {
			return nil, errors.Attr(errors.Wrap(err, errors.KindConfig, "invalid pattern in type_replacements"), "pattern", r.Pattern)
		}
		f.typeReplacements = append(f.typeReplacements, replacement{re: re, with: r.Replacement})
	}
	return f, nil
}

// wordBounded adds \b on each side of expr that begins or ends with a word
// character.
func wordBounded(expr string) string {
	src := "(?:" + expr + ")"
	if expr != "" && isWordByte(expr[0]) {
		src = `\b` + src
	}
	if expr != "" && isWordByte(expr[len(expr)-1]) {
		src += `\b`
	}
	return src
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// AllowPath reports whether declarations from path are admitted. Paths are
// matched with '/' separators.
func (c *Config) AllowPath(path string) bool {
	path = filepath.ToSlash(path)
	f := c.filters
	return (f.allowPaths.empty() || f.allowPaths.match(path)) && !f.disallowPaths.match(path)
}

// AllowNamespace reports whether declarations in the namespace scope
// ("a::b::", "" for the global namespace) are admitted.
func (c *Config) AllowNamespace(scope string) bool {
	return !c.filters.disallowNamespaces.match(scope)
}

// AllowSymbol reports whether the qualified name is admitted.
func (c *Config) AllowSymbol(name string) bool {
	f := c.filters
	return (f.allowSymbols.empty() || f.allowSymbols.match(name)) && !f.disallowSymbols.match(name)
}

// AllowMacro reports whether the macro name is admitted.
func (c *Config) AllowMacro(name string) bool {
	f := c.filters
	return (f.allowMacros.empty() || f.allowMacros.match(name)) && !f.disallowMacros.match(name)
}

// IgnoreDiagnostic reports whether a parser diagnostic should be suppressed.
func (c *Config) IgnoreDiagnostic(msg string) bool {
	return c.filters.ignoreDiagnostics.match(msg)
}

// ReplaceTypes applies type_replacements in order. Replacements may refer to
// groups with $1.
func (c *Config) ReplaceTypes(s string) string {
	for _, r := range c.filters.typeReplacements {
		s = r.re.ReplaceAllString(s, r.with)
	}
	return s
}

// HideType reports whether a type should be omitted from the output.
func (c *Config) HideType(s string) bool {
	return c.filters.hideTypes.match(s)
}

// HideInitializer reports whether an initializer should be omitted.
func (c *Config) HideInitializer(s string) bool {
	return c.filters.hideInitializers.match(s)
}

// IgnoreTemplateParameter reports whether a template parameter, given as its
// declaration text, should be removed.
func (c *Config) IgnoreTemplateParameter(decl string) bool {
	return c.filters.ignoreTemplateParameters.match(decl)
}

type includeEntry struct {
	prefix, replacement string
}

// includeMap rewrites file paths by their longest matching directory prefix.
// It is not safe for concurrent use.
type includeMap struct {
	entries []includeEntry
	memo    map[string]string
}

func newIncludeMap(m map[string]string) *includeMap {
	im := &includeMap{memo: make(map[string]string)}
	for prefix, repl := range m {
		im.entries = append(im.entries, includeEntry{filepath.ToSlash(prefix), repl})
	}
	sort.Slice(im.entries, func(i, j int) bool {
		a, b := im.entries[i].prefix, im.entries[j].prefix
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return im
}

// IncludePath returns the path used to #include file, or "" when no
// include_directory_map entry covers it.
func (c *Config) IncludePath(file string) string {
	im := c.includes
	file = filepath.ToSlash(file)
	if p, ok := im.memo[file]; ok {
		return p
	}
	p := ""
	for _, e := range im.entries {
		if strings.HasPrefix(file, e.prefix) {
			p = e.replacement + file[len(e.prefix):]
			break
		}
	}
	im.memo[file] = p
	return p
}
