package idx_test

import (
	"testing"
	"time"

	"github.com/mothertree-labs/mothertree-oss/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesSortableIDs(t *testing.T) {
	t.Parallel()

	a := idx.New()
	b := idx.New()

	require.False(t, a.IsZero())
	require.False(t, b.IsZero())
	require.Less(t, a.String(), b.String())
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("round trips a generated ID", func(t *testing.T) {
		id := idx.New()
		parsed, err := idx.Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("rejects empty and malformed input", func(t *testing.T) {
		_, err := idx.Parse("")
		require.ErrorIs(t, err, idx.ErrInvalid)

		_, err = idx.Parse("not-a-ulid")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})
}

func TestTimeEmbedsGenerationTime(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	id := idx.New()
	after := time.Now().Add(time.Second)

	ts := id.Time()
	require.True(t, ts.After(before))
	require.True(t, ts.Before(after))
}
