package verification

import "strings"

// nicknames maps common name abbreviations in both directions.
var nicknames = map[string]string{
	"JON": "JOHN", "JOHN": "JON",
	"BOB": "ROBERT", "ROBERT": "BOB",
	"BILL": "WILLIAM", "WILLIAM": "BILL",
	"MIKE": "MICHAEL", "MICHAEL": "MIKE",
	"JIM": "JAMES", "JAMES": "JIM",
}

// Equivalent reports whether two field values should be treated as the same
// for database matching. Comparison is case-insensitive, strips separator
// punctuation, accepts known nickname pairs, and tolerates up to two
// character edits between values longer than three characters.
func Equivalent(a, b string) bool {
	v1 := normalize(a)
	v2 := normalize(b)

	if v1 == v2 {
		return true
	}

	if nicknames[v1] == v2 || nicknames[v2] == v1 {
		return true
	}

	if len(v1) > 3 && len(v2) > 3 {
		if levenshtein(v1, v2) <= 2 {
			return true
		}
	}

	return false
}

func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	replacer := strings.NewReplacer("-", "", " ", "", ".", "")
	return replacer.Replace(s)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(s1, s2 string) int {
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}

	previous := make([]int, len(s2)+1)
	current := make([]int, len(s2)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 0; i < len(s1); i++ {
		current[0] = i + 1
		for j := 0; j < len(s2); j++ {
			insertions := previous[j+1] + 1
			deletions := current[j] + 1
			substitutions := previous[j]
			if s1[i] != s2[j] {
				substitutions++
			}
			current[j+1] = min(insertions, deletions, substitutions)
		}
		previous, current = current, previous
	}

	return previous[len(s2)]
}
