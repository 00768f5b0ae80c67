package suggest

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionary_Lookup_Scenario(t *testing.T) {
	d := New([]string{"CAT", "CATALOG", "CATCH", "DOG"}, DefaultMax)

	assert.Equal(t, []string{"CAT", "CATALOG", "CATCH"}, d.Lookup("CAT"))
}

func TestDictionary_Lookup(t *testing.T) {
	d := New([]string{"dog", "Cat", "catch", "catalog", "apple", "  ", "cat"}, DefaultMax)

	tests := []struct {
		prefix string
		want   []string
	}{
		{"cat", []string{"CAT", "CATALOG", "CATCH"}},
		{"Ca", []string{"CAT", "CATALOG", "CATCH"}},
		{"catc", []string{"CATCH"}},
		{"z", nil},
		{"catalogue", nil},
		{"", []string{"APPLE", "CAT", "CATALOG", "CATCH", "DOG"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("prefix %q", tt.prefix), func(t *testing.T) {
			assert.Equal(t, tt.want, d.Lookup(tt.prefix))
		})
	}
}

func TestDictionary_NormalizesInput(t *testing.T) {
	d := New([]string{"b", "A", "a", " c "}, DefaultMax)
	assert.Equal(t, []string{"A", "B", "C"}, d.Words())
}

func TestDictionary_LookupProperties(t *testing.T) {
	var words []string
	for _, a := range "ABC" {
		for _, b := range "ABCDEFGHIJKL" {
			words = append(words, string(a)+string(b), string(a)+string(b)+"X")
		}
	}
	d := New(words, DefaultMax)
	all := d.Words()
	require.True(t, sort.StringsAreSorted(all))

	for _, prefix := range []string{"", "a", "AB", "abx", "B", "CL", "Q"} {
		got := d.Lookup(prefix)

		assert.LessOrEqual(t, len(got), DefaultMax, "prefix %q", prefix)
		assert.True(t, sort.StringsAreSorted(got), "prefix %q", prefix)
		for _, w := range got {
			assert.True(t, strings.HasPrefix(w, strings.ToUpper(prefix)), "%q lacks prefix %q", w, prefix)
		}

		// Result is a contiguous run of the sorted list starting at the first match.
		if len(got) > 0 {
			start := sort.SearchStrings(all, got[0])
			assert.Equal(t, all[start:start+len(got)], got)
		}
	}
}

func TestDictionary_MaxSuggestions(t *testing.T) {
	var words []string
	for i := 0; i < 30; i++ {
		words = append(words, fmt.Sprintf("WORD%02d", i))
	}

	assert.Len(t, New(words, DefaultMax).Lookup("WORD"), 10)
	assert.Len(t, New(words, 3).Lookup("WORD"), 3)
	assert.Equal(t, DefaultMax, New(words, 0).Max())
}

func TestRead(t *testing.T) {
	d, err := Read(strings.NewReader("zebra\nant\r\n\nmoose\n"), DefaultMax)
	require.NoError(t, err)
	assert.Equal(t, []string{"ANT", "MOOSE", "ZEBRA"}, d.Words())
}

func TestEmpty(t *testing.T) {
	d := Empty(DefaultMax)
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Lookup("A"))
}
