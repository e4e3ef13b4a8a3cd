package idx_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/collab/pkg/idx"
)

func TestNew_RoundTrips(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())
	require.Len(t, id.String(), 26)

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestNewAt_SortsByTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// Messages are listed oldest first by id, so ids minted later must sort later.
	ids := []idx.ID{
		idx.NewAt(base.Add(2 * time.Second)),
		idx.NewAt(base),
		idx.NewAt(base.Add(time.Second)),
	}
	slices.SortFunc(ids, idx.Compare)

	for i, want := range []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)} {
		require.WithinDuration(t, want, ids[i].Time(), time.Millisecond)
	}
	require.Zero(t, idx.Compare(ids[0], ids[0]))
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, s)
	}
}

func TestMustParse(t *testing.T) {
	require.NotPanics(t, func() { idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV") })
	require.Panics(t, func() { idx.MustParse("nope") })
}
