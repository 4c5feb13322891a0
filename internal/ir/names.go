package ir

import (
	"regexp"
	"strings"
	"unicode"
)

func GoName(protoName string) string {
	parts := splitParts(protoName)
	if len(parts) == 0 {
		return ""
	}
	for i := range parts {
		if i == len(parts)-1 && parts[i] == "id" {
			parts[i] = "ID"
			continue
		}
		parts[i] = title(parts[i])
	}
	name := strings.Join(parts, "")
	if n := len(name); len(parts) == 1 && n > 2 && strings.HasSuffix(name, "Id") && unicode.IsLower(rune(name[n-3])) {
		name = name[:n-2] + "ID"
	}
	return name
}

// EnumValueGoName is GoName for enum value names, which are usually
// SHOUTING_SNAKE_CASE.
func EnumValueGoName(protoName string) string {
	if protoName == strings.ToUpper(protoName) {
		return GoName(strings.ToLower(protoName))
	}
	return GoName(protoName)
}

// CamelCase converts a field name to the protobuf map entry style: foo_bar
// becomes FooBar.
func CamelCase(name string) string {
	var out strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			out.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

var (
	nonAlnum       = regexp.MustCompile(`[^a-zA-Z0-9]`)
	upperWord      = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	underscoreRuns = regexp.MustCompile(`_+`)
	lowerUpper     = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Canonical replaces anything but a-z, A-Z and 0-9 with an underscore.
func Canonical(name string) string {
	return nonAlnum.ReplaceAllString(name, "_")
}

// SnakeCase normalizes an identifier for output: non-alphanumerics become
// underscores, camel humps are split and the result is lowercased.
func SnakeCase(name string) string {
	name = Canonical(name)
	name = upperWord.ReplaceAllString(name, "${1}_${2}")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = lowerUpper.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(name)
}

func splitParts(name string) []string {
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, "_-.") {
		parts := strings.FieldsFunc(name, func(r rune) bool {
			return r == '_' || r == '-' || r == '.'
		})
		for i := range parts {
			parts[i] = strings.ToLower(parts[i])
		}
		return parts
	}
	return []string{name}
}

func title(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
