// Package walx implements a write-ahead redo log of full page images:
// magic/version/CRC32 framed records, appended to a single log file
// and replayed on recovery. Page images are zstd-compressed before
// append, since these pages are small and mostly zero-filled.
package walx

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/tuannm99/graphdb/internal/storage"
)

var (
	ErrBadMagic  = errors.New("walx: bad magic")
	ErrBadCRC    = errors.New("walx: bad crc")
	ErrShortRead = errors.New("walx: short read")
)

const (
	magicU32   uint32 = 0x47524157 // "GRAW"
	versionU16 uint16 = 1
)

// PageWriter applies redo records during recovery.
type PageWriter interface {
	WritePage(id storage.PageId, buf []byte) error
}

// Manager appends and replays page-image redo records. It implements
// storage.PageLogger.
type Manager struct {
	mu      sync.Mutex
	f       *os.File
	lsn     uint64
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

// Open opens (creating if necessary) the WAL file at path.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Manager{f: f, enc: enc, dec: dec}, nil
}

// Close releases the WAL file and codec resources.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dec.Close()
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}

// AppendPageImage logs a compressed copy of a PageSize page image and
// returns its assigned LSN.
func (m *Manager) AppendPageImage(pageID uint64, page []byte) (uint64, error) {
	if len(page) != storage.PageSize {
		return 0, errors.New("walx: page must be storage.PageSize bytes")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.f == nil {
		return 0, errors.New("walx: manager closed")
	}

	m.lsn++
	lsn := m.lsn

	compressed := m.enc.EncodeAll(page, nil)

	// header: magic(4) ver(2) crc(4) lsn(8) pageID(8) rawLen(4) compLen(4)
	header := make([]byte, 4+2+4+8+8+4+4)
	binary.LittleEndian.PutUint32(header[0:4], magicU32)
	binary.LittleEndian.PutUint16(header[4:6], versionU16)
	// crc placeholder at [6:10]
	binary.LittleEndian.PutUint64(header[10:18], lsn)
	binary.LittleEndian.PutUint64(header[18:26], pageID)
	binary.LittleEndian.PutUint32(header[26:30], uint32(len(page)))
	binary.LittleEndian.PutUint32(header[30:34], uint32(len(compressed)))

	crc := crc32.ChecksumIEEE(header[10:])
	crc = crc32.Update(crc, crc32.IEEETable, compressed)
	binary.LittleEndian.PutUint32(header[6:10], crc)

	if _, err := m.f.Write(header); err != nil {
		return 0, err
	}
	if _, err := m.f.Write(compressed); err != nil {
		return 0, err
	}
	return lsn, nil
}

// Recover replays every logged page image into writer, in log order
// (later images for the same page id overwrite earlier ones, which is
// correct since the log only ever holds pre-eviction/pre-flush
// images written in dirty order).
func (m *Manager) Recover(writer PageWriter) error {
	m.mu.Lock()
	path := m.f.Name()
	m.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReaderSize(f, 1<<20)
	for {
		pageID, page, err := m.readOne(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, ErrShortRead) {
				return nil
			}
			return err
		}
		if err := writer.WritePage(storage.PageId(pageID), page); err != nil {
			return err
		}
	}
}

func (m *Manager) readOne(r *bufio.Reader) (pageID uint64, page []byte, err error) {
	header := make([]byte, 4+2+4+8+8+4+4)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != magicU32 {
		return 0, nil, ErrBadMagic
	}
	wantCRC := binary.LittleEndian.Uint32(header[6:10])
	pageID = binary.LittleEndian.Uint64(header[18:26])
	rawLen := binary.LittleEndian.Uint32(header[26:30])
	compLen := binary.LittleEndian.Uint32(header[30:34])

	compressed := make([]byte, compLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return 0, nil, ErrShortRead
	}

	gotCRC := crc32.ChecksumIEEE(header[10:])
	gotCRC = crc32.Update(gotCRC, crc32.IEEETable, compressed)
	if gotCRC != wantCRC {
		return 0, nil, ErrBadCRC
	}

	raw, err := m.dec.DecodeAll(compressed, make([]byte, 0, rawLen))
	if err != nil {
		return 0, nil, err
	}
	return pageID, raw, nil
}
