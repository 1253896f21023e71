package conversation

import (
	"regexp"
	"strings"
)

// keywordSet matches any of a fixed list of keywords, case-insensitively.
// Single words must match a whole word ("step" does not match "steps");
// phrases must start on a word boundary but may run into a longer word
// ("how do" matches "how does").
type keywordSet struct {
	words []string
	re    *regexp.Regexp
}

func newKeywordSet(words ...string) keywordSet {
	alts := make([]string, len(words))
	for i, w := range words {
		pat := regexp.QuoteMeta(strings.ToLower(w))
		pat = strings.ReplaceAll(pat, " ", `\s+`)
		if !strings.Contains(w, " ") {
			pat += `\b`
		}
		alts[i] = pat
	}
	return keywordSet{
		words: words,
		re:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)`),
	}
}

// match reports whether s contains any keyword.
func (k keywordSet) match(s string) bool {
	return k.re.MatchString(s)
}
