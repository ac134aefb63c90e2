// Package config loads and compiles the settings of an API data generation run.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"cppapidoc/pkg/errors"
)

// Replacement rewrites whole-word matches of Pattern in emitted type text.
type Replacement struct {
	Pattern     string `yaml:"pattern" toml:"pattern" json:"pattern" validate:"required"`
	Replacement string `yaml:"replacement" toml:"replacement" json:"replacement"`
}

// Config holds the settings of one generation run.
type Config struct {
	InputPath     string   `yaml:"input_path" toml:"input_path" json:"input_path" validate:"required_without=InputContent"`
	InputContent  string   `yaml:"input_content" toml:"input_content" json:"input_content"`
	CompilerFlags []string `yaml:"compiler_flags" toml:"compiler_flags" json:"compiler_flags"`

	AllowPaths         []string `yaml:"allow_paths" toml:"allow_paths" json:"allow_paths" validate:"dive,required"`
	DisallowPaths      []string `yaml:"disallow_paths" toml:"disallow_paths" json:"disallow_paths" validate:"dive,required"`
	DisallowNamespaces []string `yaml:"disallow_namespaces" toml:"disallow_namespaces" json:"disallow_namespaces" validate:"dive,required"`
	AllowSymbols       []string `yaml:"allow_symbols" toml:"allow_symbols" json:"allow_symbols" validate:"dive,required"`
	DisallowSymbols    []string `yaml:"disallow_symbols" toml:"disallow_symbols" json:"disallow_symbols" validate:"dive,required"`
	AllowMacros        []string `yaml:"allow_macros" toml:"allow_macros" json:"allow_macros" validate:"dive,required"`
	DisallowMacros     []string `yaml:"disallow_macros" toml:"disallow_macros" json:"disallow_macros" validate:"dive,required"`
	IgnoreDiagnostics  []string `yaml:"ignore_diagnostics" toml:"ignore_diagnostics" json:"ignore_diagnostics" validate:"dive,required"`

	TypeReplacements         []Replacement `yaml:"type_replacements" toml:"type_replacements" json:"type_replacements" validate:"dive"`
	HideTypes                []string      `yaml:"hide_types" toml:"hide_types" json:"hide_types" validate:"dive,required"`
	HideInitializers         []string      `yaml:"hide_initializers" toml:"hide_initializers" json:"hide_initializers" validate:"dive,required"`
	IgnoreTemplateParameters []string      `yaml:"ignore_template_parameters" toml:"ignore_template_parameters" json:"ignore_template_parameters" validate:"dive,required"`

	IncludeDirectoryMap map[string]string `yaml:"include_directory_map" toml:"include_directory_map" json:"include_directory_map" validate:"dive,keys,required,endkeys"`
	DocumentPrefix      string            `yaml:"document_prefix" toml:"document_prefix" json:"document_prefix"`

	filters  *filters
	includes *includeMap
}

// validate caches struct info between calls.
var validate = validator.New()

// Load reads a YAML, TOML or JSON config file selected by extension, resolves
// relative paths against the file's directory and compiles it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Attr(errors.Wrapf(err, errors.KindIO, "failed to read config"), "path", path)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Attr(err, "path", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to resolve config path")
	}
	cfg.resolvePaths(filepath.Dir(abs))

	if err := cfg.Compile(); err != nil {
		return nil, errors.Attr(err, "path", path)
	}
	return cfg, nil
}

// Parse decodes a config in the format named by ext (".yaml", ".yml", ".toml"
// or ".json"). The result is not compiled.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &cfg)
	case ".toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), &cfg)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = errors.Errorf(errors.KindConfig, "unknown key %q", undecoded[0].String())
			}
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	default:
		return nil, errors.Errorf(errors.KindConfig, "unsupported config format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to decode config")
	}
	return &cfg, nil
}

// Default returns a compiled config that parses path with flags and no filters.
func Default(path string, flags ...string) (*Config, error) {
	cfg := &Config{InputPath: path, CompilerFlags: flags}
	if err := cfg.Compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Compile validates the config and compiles its pattern lists. It must be
// called before any of the matching methods.
func (c *Config) Compile() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, errors.KindConfig, "invalid config")
	}
	f, err := compileFilters(c)
	if err != nil {
		return err
	}
	c.filters = f
	c.includes = newIncludeMap(c.IncludeDirectoryMap)
	return nil
}

// includeFlags take a directory argument, attached or as the next argument.
var includeFlags = []string{"-iquote", "-isystem", "-I"}

// resolvePaths makes the input path, include directories and
// include_directory_map prefixes absolute relative to dir.
func (c *Config) resolvePaths(dir string) {
	if c.InputPath != "" && !filepath.IsAbs(c.InputPath) {
		c.InputPath = filepath.Join(dir, c.InputPath)
	}

	flags := make([]string, 0, len(c.CompilerFlags))
	for i := 0; i < len(c.CompilerFlags); i++ {
		flag := c.CompilerFlags[i]
		for _, prefix := range includeFlags {
			if !strings.HasPrefix(flag, prefix) {
				continue
			}
			if flag == prefix && i+1 < len(c.CompilerFlags) {
				flags = append(flags, flag)
				i++
				flag = resolveDir(dir, c.CompilerFlags[i])
			} else if flag != prefix {
				flag = prefix + resolveDir(dir, flag[len(prefix):])
			}
			break
		}
		flags = append(flags, flag)
	}
	c.CompilerFlags = flags

	if len(c.IncludeDirectoryMap) > 0 {
		m := make(map[string]string, len(c.IncludeDirectoryMap))
		for prefix, repl := range c.IncludeDirectoryMap {
			resolved := resolveDir(dir, prefix)
			if strings.HasSuffix(prefix, "/") && !strings.HasSuffix(resolved, "/") {
				resolved += "/"
			}
			m[resolved] = repl
		}
		c.IncludeDirectoryMap = m
	}
}

func resolveDir(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
