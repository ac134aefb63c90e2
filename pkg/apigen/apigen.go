// Package apigen runs the whole pipeline for one translation unit: walk the
// declarations, extract entities and organize them into the JSON Api Data.
package apigen

import (
	"context"

	"github.com/charmbracelet/log"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/cppast"
	"cppapidoc/pkg/errors"
	"cppapidoc/pkg/extract"
	"cppapidoc/pkg/organize"
	"cppapidoc/pkg/parser"
)

// virtualPath names the main file when only input_content is configured.
const virtualPath = "input.hpp"

type options struct {
	walker  ast.DeclarationWalker
	grammar parser.DeclarationGrammar
	logger  *log.Logger
}

// Option customizes GenerateOutput.
type Option func(*options)

// WithWalker replaces the tree-sitter declaration walker.
func WithWalker(w ast.DeclarationWalker) Option {
	return func(o *options) { o.walker = w }
}

// WithGrammar replaces the secondary declaration grammar.
func WithGrammar(g parser.DeclarationGrammar) Option {
	return func(o *options) { o.grammar = g }
}

// WithLogger sets the logger passed to every stage.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// GenerateOutput parses the input described by cfg and returns its API data.
// cfg must have been compiled. Recorded errors are returned in the output;
// a non-nil error means the run was aborted.
func GenerateOutput(ctx context.Context, cfg *config.Config, opts ...Option) (*apidata.Output, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.grammar == nil {
		o.grammar = parser.NewGrammar()
	}
	if o.walker == nil {
		o.walker = cppast.New(o.logger)
	}

	po := ast.ParseOptions{Path: cfg.InputPath, Flags: cfg.CompilerFlags}
	if cfg.InputContent != "" {
		content := cfg.InputContent
		po.Content = &content
		if po.Path == "" {
			po.Path = virtualPath
		}
	}

	logger := o.logger.With("input", po.Path)
	logger.Info("parsing translation unit")
	tu, err := o.walker.Parse(ctx, po)
	if err != nil {
		return nil, err
	}

	reg, err := extract.New(cfg, o.grammar, logger).Run(ctx, tu)
	if err != nil {
		return nil, errors.Attr(err, "input", po.Path)
	}
	recordDiagnostics(cfg, reg, tu.Diagnostics)

	out, err := organize.New(cfg, o.grammar, logger).Organize(reg)
	if err != nil {
		return nil, errors.Attr(err, "input", po.Path)
	}
	logger.Info("generated api data",
		"entities", len(out.Entities), "errors", len(out.Errors), "warnings", len(out.Warnings))
	return out, nil
}

func recordDiagnostics(cfg *config.Config, reg *apidata.Registry, diags []ast.Diagnostic) {
	for _, d := range diags {
		if cfg.IgnoreDiagnostic(d.Message) {
			continue
		}
		loc := apidata.Location{File: d.Location.File, Line: d.Location.Line, Col: d.Location.Column}
		if d.Severity == ast.SeverityError {
			reg.Error(d.Message, &loc)
		} else {
			reg.Warn(d.Message, &loc)
		}
	}
}
