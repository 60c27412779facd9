package reconcile

import (
	"strings"
	"unicode"
)

// TitleMatch reports whether a requested meeting title and a provider-reported
// title refer to the same meeting. After lowercasing and trimming, titles match
// when equal, when one contains the other, or when they share at least
// min(2, |words(a)|, |words(b)|) distinct words.
func TitleMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return false
	}
	need := min(2, len(wa), len(wb))
	common := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			common++
			if common >= need {
				return true
			}
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
