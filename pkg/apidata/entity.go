// Package apidata defines the JSON Api Data produced for a translation unit.
package apidata

import (
	"encoding/json"
	"fmt"
)

// Kind is the normalized entity kind.
type Kind string

const (
	KindClass              Kind = "class"
	KindFunction           Kind = "function"
	KindMethod             Kind = "method"
	KindConstructor        Kind = "constructor"
	KindDestructor         Kind = "destructor"
	KindConversionFunction Kind = "conversion_function"
	KindVar                Kind = "var"
	KindAlias              Kind = "alias"
	KindEnum               Kind = "enum"
	KindMacro              Kind = "macro"
)

// IsFunctionLike reports whether k is one of the function kinds.
func (k Kind) IsFunctionLike() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor, KindDestructor, KindConversionFunction:
		return true
	}
	return false
}

// Location is a source position.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Doc is normalized documentation text and the location of the comment.
type Doc struct {
	Text     string   `json:"text"`
	Location Location `json:"location"`
}

// TemplateParameter is one template parameter of an entity.
type TemplateParameter struct {
	Declaration string `json:"declaration"`
	Name        string `json:"name"`
	Kind        string `json:"kind"` // type, template or non_type
	Pack        bool   `json:"pack"`
}

// Base is a base class of a class entity.
type Base struct {
	Type   string `json:"type"`
	Access string `json:"access"`
}

// Enumerator is one enumerator of an enum entity.
type Enumerator struct {
	Kind     string   `json:"kind"`
	Name     string   `json:"name"`
	Doc      *Doc     `json:"doc"`
	Location Location `json:"location"`
}

// Entity is one C++ declaration in the output schema. Fields that do not
// apply to the entity's kind are left empty.
type Entity struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Name     string   `json:"name"`
	Parent   string   `json:"parent,omitempty"`
	Scope    string   `json:"-"` // only meaningful without Parent
	Location Location `json:"location"`
	Doc      *Doc     `json:"doc"`

	TemplateParameters []TemplateParameter `json:"-"` // nil for non-templates
	Requires           []string            `json:"requires,omitempty"`
	Specializes        *Specialization     `json:"specializes,omitempty"`
	DocumentWith       string              `json:"document_with,omitempty"`
	Siblings           []string            `json:"siblings,omitempty"`

	Declaration    string       `json:"declaration,omitempty"`
	NameSubstitute string       `json:"name_substitute,omitempty"`
	Arity          int          `json:"-"`
	Keyword        string       `json:"keyword,omitempty"`
	Prefix         []string     `json:"prefix,omitempty"`
	Bases          []Base       `json:"bases,omitempty"`
	Initializer    string       `json:"initializer,omitempty"`
	UnderlyingType string       `json:"underlying_type,omitempty"`
	Enumerators    []Enumerator `json:"enumerators,omitempty"`
	Parameters     []string     `json:"-"` // nil for object-like macros

	SpecialID          string `json:"special_id,omitempty"`
	SpecialMembergroup string `json:"special_membergroup,omitempty"`
	SpecialIngroup     string `json:"special_ingroup,omitempty"`
	SpecialRelates     string `json:"special_relates,omitempty"`

	PageName       string `json:"page_name,omitempty"`
	DocumentPrefix string `json:"document_prefix,omitempty"`
	ObjectName     string `json:"object_name,omitempty"`
	IncludePath    string `json:"include_path,omitempty"`

	Members           map[string][]string `json:"members,omitempty"`
	RelatedMembers    map[string][]string `json:"related_members,omitempty"`
	RelatedNonmembers map[string][]string `json:"related_nonmembers,omitempty"`

	Friend    bool        `json:"-"`
	Nonitpick []Nonitpick `json:"-"`
}

// MarshalJSON writes the fields whose absence is meaningful: scope only for
// namespace-scope entities, arity only for functions, template_parameters and
// parameters only when present (an empty list stays an empty list).
func (e Entity) MarshalJSON() ([]byte, error) {
	type plain Entity
	p := plain(e)
	out := struct {
		*plain
		Scope              *string              `json:"scope,omitempty"`
		TemplateParameters *[]TemplateParameter `json:"template_parameters,omitempty"`
		Arity              *int                 `json:"arity,omitempty"`
		Parameters         *[]string            `json:"parameters,omitempty"`
	}{plain: &p}

	if e.Parent == "" {
		out.Scope = &e.Scope
	}
	if e.TemplateParameters != nil {
		out.TemplateParameters = &e.TemplateParameters
	}
	if e.Kind.IsFunctionLike() {
		out.Arity = &e.Arity
	}
	if e.Parameters != nil {
		out.Parameters = &e.Parameters
	}
	return json.Marshal(out)
}

// Specialization records that an entity specializes a primary template. It is
// either resolved to the primary's id or still pending resolution.
type Specialization struct {
	id string
}

// Unresolved returns a specialization whose primary is not yet known.
func Unresolved() *Specialization {
	return &Specialization{}
}

// ResolvedTo returns a specialization of the entity with the given id.
func ResolvedTo(id string) *Specialization {
	return &Specialization{id: id}
}

// Pending reports whether the primary template is still unknown.
func (s *Specialization) Pending() bool {
	return s.id == ""
}

// ID returns the primary template's id, or "" while pending.
func (s *Specialization) ID() string {
	return s.id
}

// MarshalJSON writes the id, or true while pending.
func (s Specialization) MarshalJSON() ([]byte, error) {
	if s.id == "" {
		return []byte("true"), nil
	}
	return json.Marshal(s.id)
}

// UnmarshalJSON accepts an id string or true.
func (s *Specialization) UnmarshalJSON(data []byte) error {
	if string(data) == "true" {
		s.id = ""
		return nil
	}
	return json.Unmarshal(data, &s.id)
}
