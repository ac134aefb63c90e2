package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/apigen"
	"cppapidoc/pkg/ast"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/cppast"
	"cppapidoc/pkg/extract"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a C++ header file and list its API entities",
	Long: `Parse a C++ header file with the default configuration and list the
entities found. By default only documented entities are shown, as they appear
in the generated API data; --all lists every extracted declaration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]
		format, _ := cmd.Flags().GetString("format")
		showAll, _ := cmd.Flags().GetBool("all")

		entities, err := parseEntities(cmd.Context(), filename, showAll)
		if err != nil {
			return err
		}

		switch format {
		case "json":
			return outputJSON(cmd.OutOrStdout(), filename, entities)
		default:
			return outputHuman(cmd.OutOrStdout(), filename, entities)
		}
	},
}

func init() {
	parseCmd.Flags().StringP("format", "f", "human", "Output format (human, json)")
	parseCmd.Flags().BoolP("all", "a", false, "Show all entities including undocumented ones")
}

// parseEntities returns the entities of filename ordered by location.
func parseEntities(ctx context.Context, filename string, showAll bool) ([]*apidata.Entity, error) {
	logger := loggerFromContext(ctx)
	cfg, err := config.Default(filename)
	if err != nil {
		return nil, err
	}

	var entities []*apidata.Entity
	if showAll {
		tu, err := cppast.New(logger).Parse(ctx, ast.ParseOptions{Path: filename})
		if err != nil {
			return nil, err
		}
		reg, err := extract.New(cfg, nil, logger).Run(ctx, tu)
		if err != nil {
			return nil, err
		}
		entities = reg.Entities()
	} else {
		out, err := apigen.GenerateOutput(ctx, cfg, apigen.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		for _, e := range out.Entities {
			entities = append(entities, e)
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i].Location, entities[j].Location
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return entities, nil
}

func displayName(e *apidata.Entity) string {
	if e.ObjectName != "" {
		return e.ObjectName
	}
	return e.Scope + e.Name
}

func outputJSON(w io.Writer, filename string, entities []*apidata.Entity) error {
	type JSONEntity struct {
		Kind        string `json:"kind"`
		Name        string `json:"name"`
		FullName    string `json:"fullName"`
		Declaration string `json:"declaration,omitempty"`
		PageName    string `json:"pageName,omitempty"`
		HasComment  bool   `json:"hasComment"`
		Line        int    `json:"line"`
		Column      int    `json:"column"`
	}

	jsonEntities := make([]JSONEntity, 0, len(entities))
	for _, e := range entities {
		jsonEntities = append(jsonEntities, JSONEntity{
			Kind:        string(e.Kind),
			Name:        e.Name,
			FullName:    displayName(e),
			Declaration: e.Declaration,
			PageName:    e.PageName,
			HasComment:  e.Doc != nil,
			Line:        e.Location.Line,
			Column:      e.Location.Col,
		})
	}

	output := map[string]interface{}{
		"filename": filename,
		"entities": jsonEntities,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func outputHuman(w io.Writer, filename string, entities []*apidata.Entity) error {
	fmt.Fprintf(w, "Parsed file: %s\n", filename)
	fmt.Fprintf(w, "=====================================\n\n")

	for _, e := range entities {
		printEntity(w, e)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "--------\n")
	fmt.Fprintf(w, "Total entities: %d\n", len(entities))

	kindCounts := make(map[apidata.Kind]int)
	documented := 0
	for _, e := range entities {
		kindCounts[e.Kind]++
		if e.Doc != nil {
			documented++
		}
	}
	kinds := make([]string, 0, len(kindCounts))
	for k := range kindCounts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "%s: %d\n", k, kindCounts[apidata.Kind(k)])
	}

	if len(entities) > 0 {
		fmt.Fprintf(w, "Documented: %d (%.1f%%)\n", documented, float64(documented)/float64(len(entities))*100)
	}
	return nil
}

func printEntity(w io.Writer, e *apidata.Entity) {
	fmt.Fprintf(w, "%s: %s", e.Kind, e.Name)
	if full := displayName(e); full != e.Name {
		fmt.Fprintf(w, " (%s)", full)
	}
	if e.Doc != nil {
		fmt.Fprintf(w, " [documented]")
	}
	if e.DocumentWith != "" {
		fmt.Fprintf(w, " [documented with %s]", e.DocumentWith)
	}

	if e.Declaration != "" {
		fmt.Fprintf(w, "\n  Declaration: %s", e.Declaration)
	}
	fmt.Fprintf(w, "\n  Location: Line %d, Column %d\n", e.Location.Line, e.Location.Col)

	if e.Doc != nil {
		brief, _, _ := strings.Cut(e.Doc.Text, "\n")
		fmt.Fprintf(w, "  Documentation: %s\n", brief)
	}
}
