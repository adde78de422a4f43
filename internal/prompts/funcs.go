package prompts

import (
	"strings"
	"text/template"
)

// FuncMap returns the functions available to prompt templates. Every
// function returns a safe default instead of panicking, since a template
// panic would abort a whole pipeline stage.
//
//	{{add $i 1}}           1-based numbering
//	{{join .Hints "; "}}   joins a string list
//	{{trim .Text}}         strips surrounding whitespace
//	{{quote .Original}}    wraps in double quotes
//	{{truncate .Text 80}}  caps length, adding "..."
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"join": func(items []string, sep string) string {
			return strings.Join(items, sep)
		},
		"trim": strings.TrimSpace,
		"quote": func(s string) string {
			return `"` + strings.TrimSpace(s) + `"`
		},
		"lower": strings.ToLower,
		"truncate": func(s string, length int) string {
			if length <= 0 {
				return ""
			}
			if len(s) <= length {
				return s
			}
			if length > 3 {
				return s[:length-3] + "..."
			}
			return s[:length]
		},
	}
}
