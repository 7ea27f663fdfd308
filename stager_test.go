package stager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dyncontent/stager/internal/testutil"
	"github.com/dyncontent/stager/store/disk"
)

func newDiskController(t *testing.T) (*Controller, string) {
	t.Helper()

	dir := t.TempDir()
	st, err := disk.New(dir)
	require.NoError(t, err)

	c, err := New(WithStore(st))
	require.NoError(t, err)
	return c, dir
}

func fetchBytes(t *testing.T, c *Controller, id string) []byte {
	t.Helper()

	rc, ok := c.Fetch(id)
	require.True(t, ok, "Fetch(%q) missed", id)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func TestFetchFreshSlotMiss(t *testing.T) {
	t.Parallel()

	c, _ := newDiskController(t)

	id := c.CurrentIdentifier("never-staged")
	require.NotEmpty(t, id)

	_, ok := c.Fetch(id)
	assert.False(t, ok, "generation-zero identifier must miss before any stage")
}

func TestStageRoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newDiskController(t)
	content := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	id := c.Stage(context.Background(), "slot", BytesSource(content))
	assert.Equal(t, content, fetchBytes(t, c, id))
}

func TestStageUnchangedIdempotent(t *testing.T) {
	t.Parallel()

	st := testutil.NewMemStore()
	c, err := New(WithStore(st))
	require.NoError(t, err)

	id := c.Stage(context.Background(), "slot", BytesSource([]byte("v1")))
	require.Equal(t, 1, st.Len())

	for i := 0; i < 5; i++ {
		got := c.Stage(context.Background(), "slot", Unchanged)
		assert.Equal(t, id, got, "refresh must reuse the identifier")
	}
	assert.Equal(t, 1, st.Len(), "refresh must not mutate the store")
	assert.Equal(t, []byte("v1"), fetchBytes(t, c, id))
}

func TestStageMonotonicFreshness(t *testing.T) {
	t.Parallel()

	c, _ := newDiskController(t)
	ctx := context.Background()

	id1 := c.Stage(ctx, "slot", BytesSource([]byte("first")))
	id2 := c.Stage(ctx, "slot", BytesSource([]byte("second")))
	require.NotEqual(t, id1, id2)

	_, ok := c.Fetch(id1)
	assert.False(t, ok, "superseded identifier must miss")
	assert.Equal(t, []byte("second"), fetchBytes(t, c, id2))
}

func TestStageScenario(t *testing.T) {
	t.Parallel()

	c, _ := newDiskController(t)
	ctx := context.Background()

	x1 := c.Stage(ctx, "img1", BytesSource([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x01, 0x02}, fetchBytes(t, c, x1))

	again := c.Stage(ctx, "img1", Unchanged)
	assert.Equal(t, x1, again)
	assert.Equal(t, []byte{0x01, 0x02}, fetchBytes(t, c, x1))

	x2 := c.Stage(ctx, "img1", BytesSource([]byte{0x03}))
	require.NotEqual(t, x1, x2)

	_, ok := c.Fetch(x1)
	assert.False(t, ok)
	assert.Equal(t, []byte{0x03}, fetchBytes(t, c, x2))
}

func TestCrossInstanceNonCollision(t *testing.T) {
	t.Parallel()

	a, _ := newDiskController(t)
	b, _ := newDiskController(t)
	ctx := context.Background()

	assert.NotEqual(t, a.CurrentIdentifier("slot"), b.CurrentIdentifier("slot"))

	idA := a.Stage(ctx, "slot", BytesSource([]byte("same")))
	idB := b.Stage(ctx, "slot", BytesSource([]byte("same")))
	assert.NotEqual(t, idA, idB,
		"identical slot and generation in different instances must not collide")
}

func TestStageConcurrentSameSlot(t *testing.T) {
	t.Parallel()

	const n = 16

	c, _ := newDiskController(t)
	ids := make([]string, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ids[i] = c.Stage(context.Background(), "slot",
				BytesSource(fmt.Appendf(nil, "payload-%d", i)))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n, "each concurrent stage must issue a distinct identifier")

	// The generation advanced exactly n times: the slot's current
	// identifier is the one issued by whichever call advanced it last.
	assert.Contains(t, ids, c.CurrentIdentifier("slot"))

	// Only the last winner is still stored; every earlier identifier was
	// superseded and must miss.
	live := 0
	for _, id := range ids {
		if rc, ok := c.Fetch(id); ok {
			rc.Close()
			live++
		}
	}
	assert.Equal(t, 1, live, "exactly one identifier remains fetchable")
	assert.NotEmpty(t, fetchBytes(t, c, c.CurrentIdentifier("slot")))
}

func TestTeardown(t *testing.T) {
	t.Parallel()

	c, dir := newDiskController(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, c.Stage(ctx, fmt.Sprintf("slot-%d", i),
			BytesSource([]byte{byte(i)})))
	}

	c.Teardown()

	for _, id := range ids {
		_, ok := c.Fetch(id)
		assert.False(t, ok, "Fetch(%q) must miss after teardown", id)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no backing file may survive teardown")

	// Second teardown sweeps an empty index.
	c.Teardown()
}

func TestStagePutFailureIssuesMissingIdentifier(t *testing.T) {
	t.Parallel()

	c, err := New(WithStore(testutil.NewFailingPutStore()))
	require.NoError(t, err)

	old := c.CurrentIdentifier("slot")
	id := c.Stage(context.Background(), "slot", BytesSource([]byte("doomed")))

	assert.NotEqual(t, old, id, "generation still advances on copy failure")
	_, ok := c.Fetch(id)
	assert.False(t, ok, "failed copy must surface as a miss, not a partial blob")
}

func TestStageRemoveFailureNeverServesNewBytesUnderOldID(t *testing.T) {
	t.Parallel()

	st := testutil.NewMemStore()
	c, err := New(WithStore(st))
	require.NoError(t, err)
	ctx := context.Background()

	id1 := c.Stage(ctx, "slot", BytesSource([]byte("old")))

	st.RemoveFails = true
	id2 := c.Stage(ctx, "slot", BytesSource([]byte("new")))
	require.NotEqual(t, id1, id2)

	// The old blob could not be reclaimed, so the old identifier may keep
	// serving the old bytes, but never the new ones.
	assert.Equal(t, []byte("old"), fetchBytes(t, c, id1))
	assert.Equal(t, []byte("new"), fetchBytes(t, c, id2))
}

type errOpenSource struct{}

func (errOpenSource) Available() bool              { return true }
func (errOpenSource) Open() (io.ReadCloser, error) { return nil, errors.New("open failed") }

func TestStageSourceOpenFailure(t *testing.T) {
	t.Parallel()

	c, _ := newDiskController(t)

	old := c.CurrentIdentifier("slot")
	id := c.Stage(context.Background(), "slot", errOpenSource{})

	assert.NotEqual(t, old, id)
	_, ok := c.Fetch(id)
	assert.False(t, ok)
}

func TestNewOptionErrors(t *testing.T) {
	t.Parallel()

	_, err := New(WithNonce(""))
	assert.Error(t, err)

	_, err = New(WithLogger(nil))
	assert.Error(t, err)

	_, err = New(WithStore(nil))
	assert.Error(t, err)
}
