package storage

// chainHeaderSize is the 8-byte "next page id" header every chain
// page carries ahead of its payload chunk, the same framing
// internal/catalog uses for the catalog's own page chain.
const chainHeaderSize = 8

// WriteChain serializes payload across freshly allocated pages, each
// holding an 8-byte next-page-id header followed by a chunk of
// payload, and returns the head page id. Used for any page-backed
// blob that isn't the catalog itself (e.g. a table's row data).
func WriteChain(pool *Pool, payload []byte) (PageId, error) {
	chunkSize := PageSize - chainHeaderSize
	numPages := (len(payload) + chunkSize - 1) / chunkSize
	if numPages == 0 {
		numPages = 1
	}

	handles := make([]*Handle, 0, numPages)
	defer func() {
		for _, h := range handles {
			_ = h.Unpin(true)
		}
	}()

	var head PageId
	var prev *Handle
	for i := 0; i < numPages; i++ {
		h, err := pool.NewPage()
		if err != nil {
			return InvalidPageId, err
		}
		handles = append(handles, h)
		if i == 0 {
			head = h.PageId()
		}
		if prev != nil {
			putChainNext(prev.Data(), h.PageId())
		}
		prev = h
	}
	if prev != nil {
		putChainNext(prev.Data(), InvalidPageId)
	}

	for i, h := range handles {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		buf := h.Data()
		for j := range buf[chainHeaderSize:] {
			buf[chainHeaderSize+j] = 0
		}
		copy(buf[chainHeaderSize:], payload[start:end])
	}
	return head, nil
}

// ReadChain reconstructs a payload previously written by WriteChain.
// head == InvalidPageId yields a nil payload.
func ReadChain(pool *Pool, head PageId) ([]byte, error) {
	if head == InvalidPageId {
		return nil, nil
	}
	var payload []byte
	id := head
	for id != InvalidPageId {
		h, err := pool.Pin(id)
		if err != nil {
			return nil, err
		}
		buf := h.Data()
		next := getChainNext(buf)
		payload = append(payload, buf[chainHeaderSize:]...)
		if err := h.Unpin(false); err != nil {
			return nil, err
		}
		id = next
	}
	if i := lastNonZeroByte(payload); i >= 0 {
		return payload[:i+1], nil
	}
	return nil, nil
}

func putChainNext(buf []byte, id PageId) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
}

func getChainNext(buf []byte) PageId {
	var id PageId
	for i := 7; i >= 0; i-- {
		id = (id << 8) | PageId(buf[i])
	}
	return id
}

func lastNonZeroByte(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return i
		}
	}
	return -1
}
