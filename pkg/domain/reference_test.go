package domain

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplicationReference(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	refs := make([]string, 0, 50)
	for range 50 {
		refs = append(refs, NewApplicationReference(at))
	}
	assert.True(t, sort.StringsAreSorted(refs), "references within one millisecond must sort in issue order")

	ref := refs[0]
	assert.True(t, strings.HasPrefix(ref, "LA-"))
	assert.Len(t, ref, len("LA-")+26)

	issued, ok := ReferenceTime(ref)
	require.True(t, ok)
	assert.Equal(t, at, issued)
}

func TestReferenceTimeRejectsGarbage(t *testing.T) {
	_, ok := ReferenceTime("01HZX")
	assert.False(t, ok)
	_, ok = ReferenceTime("LA-not-a-ulid")
	assert.False(t, ok)
}
