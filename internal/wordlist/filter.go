package wordlist

import "strings"

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// Drillable keeps plain English words that are easy to say in isolation:
// lowercase ASCII letters with at most one inner apostrophe, 2-14 letters.
func Drillable(word string) bool {
	if len(word) < 2 || len(word) > 14 {
		return false
	}
	if strings.Count(word, "'") > 1 || word[0] == '\'' || word[len(word)-1] == '\'' {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch == '\'' {
			continue
		}
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return true
}

// All keeps every word.
func All(string) bool { return true }
