package comments

import (
	"regexp"
	"strings"
)

var (
	briefPattern  = regexp.MustCompile(`^([ \t]*)[\\@](?:brief|short|details)\b[ \t]?`)
	paramPattern  = regexp.MustCompile(`^([ \t]*)[\\@](param|tparam)(?:\[([^\]]*)\])?[ \t]+(\S+)[ \t]*(.*)$`)
	retvalPattern = regexp.MustCompile(`^([ \t]*)[\\@]retval[ \t]+(\S+)[ \t]*(.*)$`)
	returnPattern = regexp.MustCompile(`^([ \t]*)[\\@](?:returns|return|result)\b[ \t]*(.*)$`)
	throwPattern  = regexp.MustCompile(`^([ \t]*)[\\@](?:throws|throw|exception)[ \t]+(\S+)[ \t]*(.*)$`)
)

// ConvertFields rewrites Doxygen commands into reStructuredText field lists,
// e.g. "@param[in] x Value." becomes ":param x[in]: Value.".
func ConvertFields(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = convertLine(l)
	}
	return strings.Join(lines, "\n")
}

func convertLine(l string) string {
	if m := paramPattern.FindStringSubmatch(l); m != nil {
		name := m[4]
		if m[3] != "" {
			name += "[" + direction(m[3]) + "]"
		}
		return field(m[1], m[2]+" "+name, m[5])
	}
	if m := retvalPattern.FindStringSubmatch(l); m != nil {
		return field(m[1], "retval "+m[2], m[3])
	}
	if m := throwPattern.FindStringSubmatch(l); m != nil {
		return field(m[1], "throws "+m[2], m[3])
	}
	if m := returnPattern.FindStringSubmatch(l); m != nil {
		return field(m[1], "returns", m[2])
	}
	if loc := briefPattern.FindStringSubmatchIndex(l); loc != nil {
		return l[loc[2]:loc[3]] + l[loc[1]:]
	}
	return l
}

func field(indent, name, desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return indent + ":" + name + ":"
	}
	return indent + ":" + name + ": " + desc
}

// direction normalizes "in,out" to "in, out".
func direction(dir string) string {
	parts := strings.Split(dir, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}
