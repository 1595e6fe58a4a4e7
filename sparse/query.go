package sparse

import (
	"strings"
	"unicode"
)

// CleanQuery trims the query and, when it is longer than maxLen characters,
// cuts it back to the last word boundary within the cap. A maxLen of zero or
// less leaves the length alone.
func CleanQuery(query string, maxLen int) string {
	query = strings.TrimSpace(query)
	if maxLen <= 0 {
		return query
	}

	runes := []rune(query)
	if len(runes) <= maxLen {
		return query
	}

	runes = runes[:maxLen]
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			runes = runes[:i]
			break
		}
	}
	return strings.TrimSpace(string(runes))
}
