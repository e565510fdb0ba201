// Package words implements the dictionary collaborator: normalization,
// guess validity and random target-word selection.
//
// Two lists back it:
//   - answers: the restricted pool targets are drawn from
//   - allowed: the full guessable vocabulary (always a superset of answers)
//
// Lists load from WORDS_ANSWERS_FILE / WORDS_ALLOWED_FILE when set,
// otherwise from small embedded defaults. Words are canonicalized to
// lowercase ASCII a-z with diacritics folded, so an accented submission
// matches its plain form.
package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"errors"
	"math/big"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// WordLength is the fixed length of every target and guess.
const WordLength = 5

//go:embed default_answers.txt
var embeddedAnswers string

//go:embed default_allowed.txt
var embeddedAllowed string

// List holds the loaded corpus. Immutable after Load, safe for
// concurrent readers.
type List struct {
	answers []string
	allowed map[string]struct{}
}

// Load builds a List from the given files, or from the embedded
// defaults when both paths are empty. An answers file alone is its own
// vocabulary; an allowed file alone extends the embedded answers.
// Fails if the answer pool ends up empty.
func Load(answersPath, allowedPath string) (*List, error) {
	var ansList, allowList []string
	var err error

	switch {
	case answersPath != "" && allowedPath != "":
		if ansList, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
	case answersPath != "":
		if ansList, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		allowList = ansList
	case allowedPath != "":
		ansList = parseLines(embeddedAnswers)
		if allowList, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
	default:
		ansList = parseLines(embeddedAnswers)
		allowList = parseLines(embeddedAllowed)
	}

	l := &List{
		answers: ansList,
		allowed: make(map[string]struct{}, len(ansList)+len(allowList)),
	}
	// Answers are always guessable.
	for _, w := range ansList {
		l.allowed[w] = struct{}{}
	}
	for _, w := range allowList {
		l.allowed[w] = struct{}{}
	}
	if len(l.answers) == 0 {
		return nil, errors.New("words: answer list is empty")
	}
	return l, nil
}

// Normalize maps a submission to its canonical key: trimmed,
// lowercased, diacritics folded. Idempotent.
func (l *List) Normalize(word string) string {
	return Fold(strings.ToLower(strings.TrimSpace(word)))
}

// IsValidGuess reports whether the word, after normalization, is in
// the guessable vocabulary.
func (l *List) IsValidGuess(word string) bool {
	_, ok := l.allowed[l.Normalize(word)]
	return ok
}

// RandomTarget draws uniformly from the answer pool. Empty string only
// when the pool is empty.
func (l *List) RandomTarget() string {
	if len(l.answers) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.answers))))
	if err != nil {
		return l.answers[0]
	}
	return l.answers[n.Int64()]
}

// Stats returns the loaded counts: answers, total allowed.
func (l *List) Stats() (answers, allowed int) {
	return len(l.answers), len(l.allowed)
}

// Fold strips combining marks so "sagáz" and "sagaz" share one key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w, ok := canonical(sc.Text()); ok {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

func parseLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if w, ok := canonical(line); ok {
			out = append(out, w)
		}
	}
	return out
}

// canonical normalizes one raw list entry and keeps it only if it is a
// WordLength run of a-z afterwards.
func canonical(raw string) (string, bool) {
	w := Fold(strings.ToLower(strings.TrimSpace(raw)))
	if len(w) != WordLength || !isLowerAlpha(w) {
		return "", false
	}
	return w, true
}

func isLowerAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
