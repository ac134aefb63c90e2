package apidata

import (
	"encoding/json"
	"io"
)

// Diagnostic is a recorded error or warning.
type Diagnostic struct {
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
}

// Nonitpick suppresses reference warnings for target in file at line.
type Nonitpick struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Target string `json:"target"`
}

// Output is the JSON Api Data of one translation unit.
type Output struct {
	Entities  map[string]*Entity  `json:"entities"`
	Groups    map[string][]string `json:"groups"`
	Errors    []Diagnostic        `json:"errors"`
	Warnings  []Diagnostic        `json:"warnings"`
	Nonitpick []Nonitpick         `json:"nonitpick"`
}

// NewOutput returns an empty output whose collections marshal as {} and [].
func NewOutput() *Output {
	return &Output{
		Entities:  map[string]*Entity{},
		Groups:    map[string][]string{},
		Errors:    []Diagnostic{},
		Warnings:  []Diagnostic{},
		Nonitpick: []Nonitpick{},
	}
}

// HasErrors reports whether any error was recorded.
func (o *Output) HasErrors() bool {
	return len(o.Errors) > 0
}

// WriteJSON writes the output as indented JSON.
func (o *Output) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
