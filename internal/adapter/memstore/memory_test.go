package memstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

var _ port.ReportStore = (*MemoryStore)(nil)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(maxSize int, ttl time.Duration) (*MemoryStore, *clock) {
	c := &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(maxSize, ttl)
	s.now = c.now
	return s, c
}

func TestMemoryStore_PutGet(t *testing.T) {
	s, c := newTestStore(10, time.Hour)

	require.NoError(t, s.Put("a", domain.Report{Text: "report a"}))

	got, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.SessionID)
	assert.Equal(t, "report a", got.Report.Text)
	assert.Equal(t, c.t, got.CreatedAt)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestStore(2, time.Hour)

	require.NoError(t, s.Put("a", domain.Report{Text: "a"}))
	require.NoError(t, s.Put("b", domain.Report{Text: "b"}))

	// touching a makes b the eviction candidate
	_, ok, _ := s.Get("a")
	require.True(t, ok)

	require.NoError(t, s.Put("c", domain.Report{Text: "c"}))
	assert.Equal(t, 2, s.Size())

	_, ok, _ = s.Get("b")
	assert.False(t, ok)
	_, ok, _ = s.Get("a")
	assert.True(t, ok)
	_, ok, _ = s.Get("c")
	assert.True(t, ok)
}

func TestMemoryStore_ReplaceDoesNotEvict(t *testing.T) {
	s, _ := newTestStore(2, time.Hour)

	require.NoError(t, s.Put("a", domain.Report{Text: "1"}))
	require.NoError(t, s.Put("b", domain.Report{Text: "b"}))
	require.NoError(t, s.Put("a", domain.Report{Text: "2"}))

	assert.Equal(t, 2, s.Size())
	got, ok, _ := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", got.Report.Text)
}

func TestMemoryStore_TTL(t *testing.T) {
	s, c := newTestStore(10, time.Hour)
	require.NoError(t, s.Put("a", domain.Report{}))

	c.t = c.t.Add(59 * time.Minute)
	_, ok, _ := s.Get("a")
	assert.True(t, ok)

	c.t = c.t.Add(2 * time.Minute)
	_, ok, _ = s.Get("a")
	assert.False(t, ok)
	assert.Zero(t, s.Size())
}

func TestMemoryStore_Sweep(t *testing.T) {
	s, c := newTestStore(10, 24*time.Hour)
	start := c.t

	require.NoError(t, s.Put("old", domain.Report{}))
	c.t = start.Add(2 * time.Hour)
	require.NoError(t, s.Put("new", domain.Report{}))

	removed, err := s.Sweep(start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Size())

	_, ok, _ := s.Get("new")
	assert.True(t, ok)
}

func TestMemoryStore_Delete(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	require.NoError(t, s.Put("a", domain.Report{}))
	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("never-existed"))
	assert.Zero(t, s.Size())
}
