package sql

import (
	"fmt"
	"regexp"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

// placeholderRegex matches {parameter_name} placeholders in dashboard queries.
// Names start with a letter or underscore followed by word characters.
var placeholderRegex = regexp.MustCompile(`\{([a-zA-Z_]\w*)\}`)

// ExtractParameters returns the placeholder names used in a parametrized
// query, deduplicated, in order of first appearance.
//
//	ExtractParameters("SELECT * FROM t WHERE region = {region} LIMIT {limit}")
//	// []string{"region", "limit"}
func ExtractParameters(query string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(query, -1)
	seen := make(map[string]bool)
	var names []string

	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

// ValidateParameterDefinitions checks that the placeholders in the query and
// the declared parameters match exactly, and that parameter names are unique.
func ValidateParameterDefinitions(query string, params []models.QueryParameter) error {
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return fmt.Errorf("parameter name must not be empty")
		}
		if declared[p.Name] {
			return fmt.Errorf("parameter '%s' is declared more than once", p.Name)
		}
		declared[p.Name] = true
	}

	used := make(map[string]bool)
	for _, name := range ExtractParameters(query) {
		used[name] = true
		if !declared[name] {
			return fmt.Errorf("parameter {%s} used in SQL but not defined", name)
		}
	}

	for _, p := range params {
		if !used[p.Name] {
			return fmt.Errorf("parameter '%s' is defined but not used in SQL", p.Name)
		}
	}

	return nil
}

// FindParametersInStringLiterals returns placeholders that sit inside single
// quoted literals. The evaluation service quotes string values itself, so a
// placeholder inside quotes ends up double-quoted.
//
//	FindParametersInStringLiterals("SELECT * FROM t WHERE name = '{name}'")
//	// []string{"name"}
func FindParametersInStringLiterals(query string) []string {
	var problems []string
	seen := make(map[string]bool)

	inString := false
	start := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '\'' {
			continue
		}
		if !inString {
			inString = true
			start = i
			continue
		}
		// '' is an escaped quote inside a literal
		if i+1 < len(query) && query[i+1] == '\'' {
			i++
			continue
		}
		for _, match := range placeholderRegex.FindAllStringSubmatch(query[start+1:i], -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				problems = append(problems, match[1])
			}
		}
		inString = false
	}

	return problems
}
