// File path: internal/schema/describe.go
package schema

import (
	"strings"
	"unicode"
)

// Descriptions are derived from names alone so that generated schemas stay
// free of anything sampled from the data.

func fieldDescription(path string) string {
	name := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		name = path[idx+1:]
	}
	if name == "_id" {
		return "Unique document identifier"
	}
	switch {
	case strings.HasSuffix(name, "_ids"):
		return sentence(identWords(strings.TrimSuffix(name, "_ids")), "identifiers")
	case strings.HasSuffix(name, "_id"):
		return sentence(identWords(strings.TrimSuffix(name, "_id")), "identifier")
	case strings.HasSuffix(name, "_at"):
		return sentence(identWords(strings.TrimSuffix(name, "_at")), "timestamp")
	case strings.HasSuffix(name, "_ref"):
		return sentence(identWords(strings.TrimSuffix(name, "_ref")), "reference")
	case strings.HasSuffix(name, "_key"):
		return sentence(identWords(strings.TrimSuffix(name, "_key")), "key")
	default:
		return sentence(identWords(name), "")
	}
}

func collectionDescription(name string) string {
	words := identWords(name)
	if len(words) == 0 {
		return "Collection"
	}
	return "Collection containing " + strings.Join(words, " ") + " data"
}

// identWords splits snake_case and camelCase identifiers into lowercase
// words.
func identWords(name string) []string {
	var words []string
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		start := 0
		runes := []rune(part)
		for i := 1; i < len(runes); i++ {
			if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
				words = append(words, strings.ToLower(string(runes[start:i])))
				start = i
			}
		}
		words = append(words, strings.ToLower(string(runes[start:])))
	}
	return words
}

func sentence(words []string, suffix string) string {
	if suffix != "" {
		words = append(words, suffix)
	}
	if len(words) == 0 {
		return ""
	}
	text := strings.Join(words, " ")
	return strings.ToUpper(text[:1]) + text[1:]
}
