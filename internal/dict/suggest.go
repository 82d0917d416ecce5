// Suggest-on-OOV support, grounded on internal/transcript/phonetic/phonetic.go
// in the teacher codebase: Double Metaphone phonetic filtering narrows the
// candidate set, then Jaro-Winkler similarity ranks within it.
package dict

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultSuggestThreshold is the minimum Jaro-Winkler score required for a
// phonetic suggestion to be returned.
const defaultSuggestThreshold = 0.70

// Suggest returns the dictionary word most phonetically similar to word,
// for use when the result extractor or a caller encounters a word string
// that fails [Dictionary.ToID] (e.g. logging "did you mean ...?" at warn
// level). Returns ("", 0, false) if no registered word clears the
// similarity threshold.
func (d *Dictionary) Suggest(word string) (match string, confidence float64, ok bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || len(d.byStr) == 0 {
		return "", 0, false
	}
	wp, ws := matchr.DoubleMetaphone(word)

	var best string
	var bestScore float64
	for str := range d.byStr {
		lower := strings.ToLower(str)
		if lower == word {
			continue
		}
		ep, es := matchr.DoubleMetaphone(lower)
		phoneticMatch := (wp != "" && (wp == ep || wp == es)) ||
			(ws != "" && (ws == ep || ws == es))
		if !phoneticMatch {
			continue
		}
		score := matchr.JaroWinkler(word, lower, false)
		if score > bestScore {
			bestScore = score
			best = str
		}
	}
	if best == "" || bestScore < defaultSuggestThreshold {
		return "", 0, false
	}
	return best, bestScore, true
}
