// Package suggest provides prefix completion over a sorted word list.
package suggest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMax is the number of suggestions returned per lookup.
const DefaultMax = 10

// Dictionary is an immutable, sorted, upper-cased word list.
type Dictionary struct {
	words []string
	limit int
}

// New builds a dictionary from raw words. Words are trimmed, upper-cased,
// sorted and de-duplicated; blanks are dropped.
func New(words []string, limit int) *Dictionary {
	if limit <= 0 {
		limit = DefaultMax
	}
	upper := cases.Upper(language.Und)

	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, upper.String(w))
	}
	sort.Strings(out)
	out = slices.Compact(out)

	return &Dictionary{words: out, limit: limit}
}

// Empty returns a dictionary with no words.
func Empty(limit int) *Dictionary {
	return New(nil, limit)
}

// Read builds a dictionary from newline-delimited words.
func Read(r io.Reader, limit int) (*Dictionary, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return New(words, limit), nil
}

// ReadFile builds a dictionary from a newline-delimited file.
func ReadFile(path string, limit int) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return Read(f, limit)
}

// Lookup returns up to Max words starting with the upper-cased prefix, in
// ascending order. The empty prefix matches every word.
func (d *Dictionary) Lookup(prefix string) []string {
	prefix = cases.Upper(language.Und).String(prefix)

	i := sort.SearchStrings(d.words, prefix)
	var out []string
	for ; i < len(d.words) && len(out) < d.limit; i++ {
		if !strings.HasPrefix(d.words[i], prefix) {
			break
		}
		out = append(out, d.words[i])
	}
	return out
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Max returns the suggestion limit.
func (d *Dictionary) Max() int {
	return d.limit
}

// Words returns a copy of the sorted word list.
func (d *Dictionary) Words() []string {
	return slices.Clone(d.words)
}
