package organize

import (
	"regexp"
	"strings"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/extract"
)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// PageComponent returns the last component of the page name of e, without
// any special id.
func PageComponent(e *apidata.Entity) string {
	switch e.Kind {
	case apidata.KindConstructor:
		return "constructor"
	case apidata.KindDestructor:
		return "destructor"
	}
	if e.Kind.IsFunctionLike() && strings.HasPrefix(e.Name, "operator") {
		operands := e.Arity
		if e.Kind == apidata.KindMethod {
			operands++
		}
		if name, ok := extract.OperatorPageName(e.Name, operands); ok {
			return name
		}
	}
	return strings.Trim(nonWord.ReplaceAllString(e.Name, "-"), "-")
}

// DefaultLabel is the member group label used when no \membergroup is given.
func DefaultLabel(e *apidata.Entity) string {
	switch e.Kind {
	case apidata.KindConstructor, apidata.KindDestructor:
		return "Constructors"
	case apidata.KindMethod:
		return "Methods"
	case apidata.KindConversionFunction:
		return "Conversion operators"
	case apidata.KindFunction:
		return "Functions"
	case apidata.KindVar:
		if e.Parent != "" {
			return "Data members"
		}
		return "Variables"
	case apidata.KindClass:
		return "Classes"
	case apidata.KindAlias, apidata.KindEnum:
		return "Types"
	case apidata.KindMacro:
		return "Macros"
	}
	return "Other"
}
