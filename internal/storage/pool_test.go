package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	dm, err := OpenMemDiskManager()
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return NewPool(dm, capacity)
}

func TestNewPagePinsAndDirties(t *testing.T) {
	p := newTestPool(t, 4)
	h, err := p.NewPage()
	require.NoError(t, err)
	require.Equal(t, 1, p.Resident())
	require.NoError(t, h.Unpin(true))
}

func TestPinMissLoadsFromDisk(t *testing.T) {
	p := newTestPool(t, 4)
	h, err := p.NewPage()
	require.NoError(t, err)
	id := h.PageId()
	copy(h.Data(), []byte("hello"))
	require.NoError(t, h.Unpin(true))
	require.NoError(t, p.FlushAll())

	// Evict it from the in-memory pool by filling every other slot.
	for i := 0; i < 4; i++ {
		h2, err := p.NewPage()
		require.NoError(t, err)
		require.NoError(t, h2.Unpin(false))
	}

	h3, err := p.Pin(id)
	require.NoError(t, err)
	require.Equal(t, "hello", string(h3.Data()[:5]))
	require.NoError(t, h3.Unpin(false))
}

func TestPinnedFrameNeverEvicted(t *testing.T) {
	p := newTestPool(t, 2)
	h1, err := p.NewPage()
	require.NoError(t, err)
	require.NoError(t, h1.Unpin(false))

	h2, err := p.NewPage()
	require.NoError(t, err) // h2 pinned, not unpinned

	// Pool is full (capacity 2): both slots resident, h2 still pinned.
	// A third NewPage must evict h1 (unpinned), never h2.
	h3, err := p.NewPage()
	require.NoError(t, err)
	require.NoError(t, h3.Unpin(false))

	// h2 is still valid and pinned.
	require.Equal(t, int32(1), h2.frame.pin)
	require.NoError(t, h2.Unpin(false))
}

func TestPoolExhaustedWhenAllPinned(t *testing.T) {
	p := newTestPool(t, 2)
	h1, err := p.NewPage()
	require.NoError(t, err)
	h2, err := p.NewPage()
	require.NoError(t, err)

	_, err = p.NewPage()
	require.ErrorIs(t, err, ErrPoolExhausted)

	require.NoError(t, h1.Unpin(false))
	require.NoError(t, h2.Unpin(false))
}

func TestUnpinWithZeroPinIsError(t *testing.T) {
	p := newTestPool(t, 2)
	h, err := p.NewPage()
	require.NoError(t, err)
	require.NoError(t, h.Unpin(false))
	require.ErrorIs(t, h.Unpin(false), ErrUnpinNotPinned)
}

func TestFlushAllThenFlushAllIsNoop(t *testing.T) {
	p := newTestPool(t, 2)
	h, err := p.NewPage()
	require.NoError(t, err)
	require.NoError(t, h.Unpin(true))

	require.NoError(t, p.FlushAll())
	require.False(t, h.frame.dirty)
	require.NoError(t, p.FlushAll())
	require.False(t, h.frame.dirty)
}

func TestClosePinnedFails(t *testing.T) {
	p := newTestPool(t, 2)
	_, err := p.NewPage()
	require.NoError(t, err)
	require.ErrorIs(t, p.Close(), ErrPinnedOnClose)
}

func TestResidentNeverExceedsCapacity(t *testing.T) {
	p := newTestPool(t, 3)
	for i := 0; i < 10; i++ {
		h, err := p.NewPage()
		require.NoError(t, err)
		require.LessOrEqual(t, p.Resident(), 3)
		require.NoError(t, h.Unpin(false))
	}
}

func TestDiskManagerZeroFillsUnwrittenPages(t *testing.T) {
	dm, err := OpenMemDiskManager()
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	id := dm.AllocatePage()
	buf := make([]byte, PageSize)
	require.NoError(t, dm.ReadPage(id, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestDiskManagerInvalidPageId(t *testing.T) {
	dm, err := OpenMemDiskManager()
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	buf := make([]byte, PageSize)
	require.ErrorIs(t, dm.ReadPage(InvalidPageId, buf), ErrInvalidPageId)
	require.ErrorIs(t, dm.ReadPage(PageId(999), buf), ErrInvalidPageId)
}
