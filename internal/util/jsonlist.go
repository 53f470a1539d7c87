package util

import (
	"encoding/json"
	"strings"
)

// StringsToJSON encodes a string list as a JSON array, "[]" when empty.
func StringsToJSON(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	bytes, _ := json.Marshal(items)
	return string(bytes)
}

// JSONToStrings decodes a JSON array of strings. Malformed input yields an
// empty list.
func JSONToStrings(jsonStr string) []string {
	var items []string
	if jsonStr == "" || jsonStr == "null" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil || items == nil {
		return []string{}
	}
	return items
}

// LikeContains builds a LIKE pattern matching q anywhere, escaping the
// wildcard characters with a backslash (use with ESCAPE '\').
func LikeContains(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
