package catalog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tuannm99/graphdb/internal/storage"
)

// MaxCatalogPages bounds the reserved catalog page chain. Exceeding it
// on Persist is a hard failure, not a silent resize, since the chain's
// head is recorded once in the superblock.
const MaxCatalogPages = 64

// catalogPageHeader occupies the first 8 bytes of every catalog page:
// the PageId of the next page in the chain, or storage.InvalidPageId
// for the last page.
const catalogPageHeaderSize = 8

type wireSchema struct {
	Nodes []NodeTableSchema `json:"nodes"`
	Rels  []RelTableSchema  `json:"rels"`
}

// Snapshot returns the catalog's current contents in persistence
// order (stable, sorted by name) for serialization.
func (c *Catalog) snapshot() wireSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var w wireSchema
	for _, s := range c.nodes {
		w.Nodes = append(w.Nodes, *s)
	}
	for _, s := range c.rels {
		w.Rels = append(w.Rels, *s)
	}
	sort.Slice(w.Nodes, func(i, j int) bool { return w.Nodes[i].Name < w.Nodes[j].Name })
	sort.Slice(w.Rels, func(i, j int) bool { return w.Rels[i].Name < w.Rels[j].Name })
	return w
}

// Persist serializes the catalog and writes it across a chain of
// pages allocated from pool, returning the id of the first (head)
// page. Each page holds an 8-byte "next page id" header followed by
// a chunk of the JSON payload. Exceeding MaxCatalogPages fails with
// ErrMetadataOverflow and allocates no pages beyond the limit.
func (c *Catalog) Persist(pool *storage.Pool) (storage.PageId, error) {
	payload, err := json.Marshal(c.snapshot())
	if err != nil {
		return storage.InvalidPageId, fmt.Errorf("catalog: marshal: %w", err)
	}

	chunkSize := storage.PageSize - catalogPageHeaderSize
	numPages := (len(payload) + chunkSize - 1) / chunkSize
	if numPages == 0 {
		numPages = 1
	}
	if numPages > MaxCatalogPages {
		return storage.InvalidPageId, fmt.Errorf("%w: need %d pages, max %d", ErrMetadataOverflow, numPages, MaxCatalogPages)
	}

	handles := make([]*storage.Handle, 0, numPages)
	defer func() {
		for _, h := range handles {
			if err := h.Unpin(true); err != nil {
				slog.Warn("catalog: unpin after persist failed (leak accepted)", "page", h.PageId(), "err", err)
			}
		}
	}()

	var head storage.PageId
	var prev *storage.Handle
	for i := 0; i < numPages; i++ {
		h, err := pool.NewPage()
		if err != nil {
			return storage.InvalidPageId, err
		}
		handles = append(handles, h)
		if i == 0 {
			head = h.PageId()
		}
		if prev != nil {
			binary.LittleEndian.PutUint64(prev.Data()[:8], uint64(h.PageId()))
		}
		prev = h
	}
	if prev != nil {
		binary.LittleEndian.PutUint64(prev.Data()[:8], uint64(storage.InvalidPageId))
	}

	slog.Debug("catalog: persisting snapshot", "pages", numPages, "bytes", len(payload))
	for i, h := range handles {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		buf := h.Data()
		for j := range buf[catalogPageHeaderSize:] {
			buf[catalogPageHeaderSize+j] = 0
		}
		copy(buf[catalogPageHeaderSize:], payload[start:end])
	}

	return head, nil
}

// Load reconstructs a Catalog from the page chain starting at head.
// head == storage.InvalidPageId yields an empty catalog (a fresh
// database with no catalog persisted yet).
func Load(pool *storage.Pool, head storage.PageId) (*Catalog, error) {
	c := New()
	if head == storage.InvalidPageId {
		slog.Debug("catalog: no persisted snapshot, starting empty")
		return c, nil
	}

	var payload []byte
	id := head
	for id != storage.InvalidPageId {
		h, err := pool.Pin(id)
		if err != nil {
			return nil, err
		}
		buf := h.Data()
		next := storage.PageId(binary.LittleEndian.Uint64(buf[:8]))
		payload = append(payload, buf[catalogPageHeaderSize:]...)
		if err := h.Unpin(false); err != nil {
			return nil, err
		}
		id = next
	}

	// Trailing NUL padding from the last page must be trimmed before
	// unmarshalling; JSON objects are never NUL-terminated so scan
	// back to the last '}'.
	if i := lastNonZero(payload); i >= 0 {
		payload = payload[:i+1]
	} else {
		payload = nil
	}
	if len(payload) == 0 {
		return c, nil
	}

	var w wireSchema
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal: %w", err)
	}
	for _, n := range w.Nodes {
		c.nodes[n.Name] = &NodeTableSchema{Name: n.Name, Columns: n.Columns, PrimaryKey: n.PrimaryKey}
	}
	for _, r := range w.Rels {
		c.rels[r.Name] = &RelTableSchema{Name: r.Name, SrcTable: r.SrcTable, DstTable: r.DstTable, Columns: r.Columns}
	}
	return c, nil
}

func lastNonZero(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return i
		}
	}
	return -1
}
