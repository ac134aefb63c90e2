package comments

import (
	"strings"

	"cppapidoc/pkg/parser"
)

// IsDoc reports whether tok opens a documentation comment.
func IsDoc(tok parser.Token) bool {
	return tok.Type == parser.TokenDoxygenComment
}

// IsTrailingDoc reports whether tok is a documentation comment that documents
// the declaration before it: "///<", "//!<", "/**<" or "/*!<".
func IsTrailingDoc(tok parser.Token) bool {
	if !IsDoc(tok) || len(tok.Value) < 4 {
		return false
	}
	return tok.Value[3] == '<'
}

// stripDelimiters returns the lines of one comment without comment syntax,
// doc sentinel or trailing marker. Lines keep their indentation.
func stripDelimiters(raw string) []string {
	if strings.HasPrefix(raw, "//") {
		body := raw[2:]
		if body != "" && (body[0] == '/' || body[0] == '!') {
			body = body[1:]
		}
		body = strings.TrimPrefix(body, "<")
		return []string{strings.TrimRight(body, " \t\r")}
	}

	body := strings.TrimPrefix(raw, "/*")
	body = strings.TrimSuffix(body, "*/")
	if body != "" && (body[0] == '*' || body[0] == '!') {
		body = body[1:]
	}
	body = strings.TrimPrefix(body, "<")

	lines := strings.Split(body, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	if starred(lines[1:]) {
		for i := 1; i < len(lines); i++ {
			trimmed := strings.TrimLeft(lines[i], " \t")
			lines[i] = strings.TrimPrefix(trimmed, "*")
		}
	}
	// The text after the opening delimiter sets no indentation for the
	// lines below it.
	if len(lines) > 1 {
		lines[0] = strings.TrimLeft(lines[0], " \t")
		dedent(lines[1:])
	}
	return lines
}

// starred reports whether every non-blank line begins with a '*' after its
// indentation, all at the same column.
func starred(lines []string) bool {
	col, seen := -1, false
	for _, l := range lines {
		trimmed := strings.TrimLeft(l, " \t")
		if trimmed == "" {
			continue
		}
		if trimmed[0] != '*' {
			return false
		}
		indent := len(l) - len(trimmed)
		if col >= 0 && indent != col {
			return false
		}
		col, seen = indent, true
	}
	return seen
}

// dedent removes the whitespace prefix common to all non-blank lines.
func dedent(lines []string) {
	prefix := -1
	for _, l := range lines {
		trimmed := strings.TrimLeft(l, " \t")
		if trimmed == "" {
			continue
		}
		if indent := len(l) - len(trimmed); prefix < 0 || indent < prefix {
			prefix = indent
		}
	}
	if prefix <= 0 {
		return
	}
	for i, l := range lines {
		if len(l) >= prefix {
			lines[i] = l[prefix:]
		} else {
			lines[i] = ""
		}
	}
}

// NormalizeComment returns the documentation text of a single comment token.
func NormalizeComment(raw string) string {
	text, _ := joinLines([][]string{stripDelimiters(raw)}, nil)
	return text
}

// Join normalizes a run of comment tokens into one text. Blank source lines
// between the comments are kept as empty lines. It also returns the number of
// leading lines dropped because they were empty.
func Join(toks []parser.Token) (string, int) {
	parts := make([][]string, 0, len(toks))
	gaps := make([]int, 0, len(toks))
	for i, tok := range toks {
		gap := 0
		if i > 0 {
			gap = tok.Line - toks[i-1].EndLine - 1
		}
		gaps = append(gaps, gap)
		parts = append(parts, stripDelimiters(tok.Value))
	}
	return joinLines(parts, gaps)
}

func joinLines(parts [][]string, gaps []int) (string, int) {
	var lines []string
	for i, p := range parts {
		if gaps != nil {
			for j := 0; j < gaps[i]; j++ {
				lines = append(lines, "")
			}
		}
		lines = append(lines, p...)
	}
	dedent(lines)

	skipped := 0
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
		skipped++
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n"), skipped
}
