// Package graphdb is the top-level facade over the query engine: it
// owns the catalog, the live table instances, the buffer pool, and
// the write-ahead log, and sequences a query text through
// parse -> bind -> plan -> execute.
package graphdb

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tuannm99/graphdb/internal/binder"
	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/config"
	"github.com/tuannm99/graphdb/internal/executor"
	"github.com/tuannm99/graphdb/internal/parser"
	"github.com/tuannm99/graphdb/internal/planner"
	"github.com/tuannm99/graphdb/internal/storage"
	"github.com/tuannm99/graphdb/internal/table"
	"github.com/tuannm99/graphdb/internal/value"
	"github.com/tuannm99/graphdb/internal/walx"
)

// ErrClosed is returned by any Database method called after Close.
var ErrClosed = errors.New("graphdb: database is closed")

// superblockPageID is reserved for the two chain-head pointers this
// facade tracks on top of the catalog's own page-chain persistence:
// the catalog's head and the table-data directory's head. It is
// always the first page AllocatePage hands out.
const superblockPageID = storage.PageId(1)

// QueryResult is the outcome of executing one statement: either the
// projected output columns and rows of a query, or the number of rows
// a DDL/DML statement affected.
type QueryResult = executor.QueryResult

// Database is one open graph database: a catalog, its live node and
// relationship tables, and the storage beneath them.
type Database struct {
	cfg  *config.Config
	dm   *storage.DiskManager
	pool *storage.Pool
	wal  *walx.Manager

	env    *executor.Env
	id     uuid.UUID
	closed bool
}

// ID returns the database's stable identifier, generated once when
// the file is first created and read back unchanged on every reopen.
// Front ends can use it to detect a path that got swapped out for a
// different database between opens.
func (db *Database) ID() uuid.UUID { return db.id }

// Open opens (creating if necessary) the database described by cfg.
// An empty cfg.Storage.Path opens an in-memory database backed by an
// unlinked temp file.
func Open(cfg *config.Config) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	dm, err := openDiskManager(cfg)
	if err != nil {
		return nil, err
	}

	pool := storage.NewPool(dm, cfg.Storage.PoolCapacity)

	walPath := cfg.Storage.WALPath
	if walPath == "" && cfg.Storage.Path != "" {
		walPath = cfg.Storage.Path + ".wal"
	}
	var wal *walx.Manager
	if walPath != "" {
		wal, err = walx.Open(walPath)
		if err != nil {
			return nil, fmt.Errorf("graphdb: open wal: %w", err)
		}
		if err := wal.Recover(diskManagerPageWriter{dm}); err != nil {
			_ = wal.Close()
			return nil, fmt.Errorf("graphdb: recover wal: %w", err)
		}
		pool.SetPageLogger(wal)
	}

	cat, dirHead, dbID, err := loadOrInitSuperblock(pool, dm)
	if err != nil {
		if wal != nil {
			_ = wal.Close()
		}
		return nil, err
	}

	env := &executor.Env{Catalog: cat, Nodes: map[string]*table.NodeTable{}, Rels: map[string]*table.RelTable{}}
	for _, name := range cat.NodeTableNames() {
		schema, _ := cat.GetNodeTable(name)
		env.Nodes[name] = table.NewNodeTable(schema)
	}
	for _, name := range cat.RelTableNames() {
		schema, _ := cat.GetRelTable(name)
		env.Rels[name] = table.NewRelTable(schema)
	}

	if err := loadTableData(pool, cat, env, dirHead); err != nil {
		if wal != nil {
			_ = wal.Close()
		}
		return nil, err
	}

	return &Database{cfg: cfg, dm: dm, pool: pool, wal: wal, env: env, id: dbID}, nil
}

// tableDir maps a node or relationship table name to the head page id
// of its row-data chain.
type tableDir map[string]storage.PageId

// loadTableData reads the table directory at dirHead (if any) and
// replays each table's row-data chain into the freshly built, empty
// NodeTable/RelTable instances in env. Node tables are decoded before
// relationship tables, since a relationship row's recorded src/dst
// row ids only resolve correctly once its endpoint tables hold the
// same rows, in the same order, they held when encoded.
func loadTableData(pool *storage.Pool, cat *catalog.Catalog, env *executor.Env, dirHead storage.PageId) error {
	raw, err := storage.ReadChain(pool, dirHead)
	if err != nil {
		return fmt.Errorf("graphdb: read table directory: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var dir tableDir
	if err := json.Unmarshal(raw, &dir); err != nil {
		return fmt.Errorf("graphdb: decode table directory: %w", err)
	}

	for _, name := range cat.NodeTableNames() {
		head, ok := dir[name]
		if !ok {
			continue
		}
		data, err := storage.ReadChain(pool, head)
		if err != nil {
			return fmt.Errorf("graphdb: read table %s: %w", name, err)
		}
		if err := env.Nodes[name].DecodeRowsInto(data); err != nil {
			return fmt.Errorf("graphdb: decode table %s: %w", name, err)
		}
	}
	for _, name := range cat.RelTableNames() {
		head, ok := dir[name]
		if !ok {
			continue
		}
		data, err := storage.ReadChain(pool, head)
		if err != nil {
			return fmt.Errorf("graphdb: read rel table %s: %w", name, err)
		}
		rel := env.Rels[name]
		src := env.Nodes[rel.Schema.SrcTable]
		dst := env.Nodes[rel.Schema.DstTable]
		if err := rel.DecodeRowsInto(data, src, dst); err != nil {
			return fmt.Errorf("graphdb: decode rel table %s: %w", name, err)
		}
	}
	return nil
}

func openDiskManager(cfg *config.Config) (*storage.DiskManager, error) {
	if cfg.Storage.Path == "" {
		return storage.OpenMemDiskManager()
	}
	return storage.OpenDiskManager(cfg.Storage.Path)
}

// diskManagerPageWriter adapts *storage.DiskManager to walx.PageWriter
// for WAL replay, which runs before any buffer pool frame exists.
type diskManagerPageWriter struct {
	dm *storage.DiskManager
}

func (w diskManagerPageWriter) WritePage(id storage.PageId, buf []byte) error {
	return w.dm.WritePage(id, buf)
}

// loadOrInitSuperblock reads the catalog chain head, table directory
// chain head, and database id from the superblock page. A disk
// manager with no pages yet is a brand-new database: the superblock
// is allocated with both chain pointers empty and a freshly generated
// id, and an empty catalog is returned.
func loadOrInitSuperblock(pool *storage.Pool, dm *storage.DiskManager) (*catalog.Catalog, storage.PageId, uuid.UUID, error) {
	if dm.NumPages() == 0 {
		h, err := pool.NewPage()
		if err != nil {
			return nil, storage.InvalidPageId, uuid.Nil, err
		}
		if h.PageId() != superblockPageID {
			return nil, storage.InvalidPageId, uuid.Nil, fmt.Errorf("graphdb: expected superblock at page %d, got %d", superblockPageID, h.PageId())
		}
		id := uuid.New()
		putPageID(h.Data()[0:8], storage.InvalidPageId)
		putPageID(h.Data()[8:16], storage.InvalidPageId)
		copy(h.Data()[16:32], id[:])
		if err := h.Unpin(true); err != nil {
			return nil, storage.InvalidPageId, uuid.Nil, err
		}
		return catalog.New(), storage.InvalidPageId, id, nil
	}

	h, err := pool.Pin(superblockPageID)
	if err != nil {
		return nil, storage.InvalidPageId, uuid.Nil, fmt.Errorf("graphdb: read superblock: %w", err)
	}
	catalogHead := getPageID(h.Data()[0:8])
	dirHead := getPageID(h.Data()[8:16])
	id, err := uuid.FromBytes(h.Data()[16:32])
	if err != nil {
		_ = h.Unpin(false)
		return nil, storage.InvalidPageId, uuid.Nil, fmt.Errorf("graphdb: decode database id: %w", err)
	}
	if err := h.Unpin(false); err != nil {
		return nil, storage.InvalidPageId, uuid.Nil, err
	}
	cat, err := catalog.Load(pool, catalogHead)
	if err != nil {
		return nil, storage.InvalidPageId, uuid.Nil, err
	}
	return cat, dirHead, id, nil
}

func putPageID(buf []byte, id storage.PageId) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
}

func getPageID(buf []byte) storage.PageId {
	var id storage.PageId
	for i := 7; i >= 0; i-- {
		id = (id << 8) | storage.PageId(buf[i])
	}
	return id
}

// Execute parses, binds, plans, and runs query against the database.
func (db *Database) Execute(query string) (*QueryResult, error) {
	if db.closed {
		return nil, ErrClosed
	}

	stmt, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	bound, err := binder.Bind(stmt, db.env.Catalog)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Build(bound)
	if err != nil {
		return nil, err
	}
	return executor.Execute(plan, db.env)
}

// BulkInsertNodes inserts rows directly into tableName's live
// NodeTable, bypassing the parser: the fast path COPY's bulk-load
// front end uses once it has already parsed and type-converted a CSV
// file, rather than round-tripping every row through query text.
func (db *Database) BulkInsertNodes(tableName string, rows []map[string]value.Value) (int64, error) {
	if db.closed {
		return 0, ErrClosed
	}
	nt, ok := db.env.Nodes[tableName]
	if !ok {
		return 0, fmt.Errorf("graphdb: no such node table %s", tableName)
	}
	var n int64
	for _, row := range rows {
		if _, err := nt.Insert(row); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// NodeTableSchema returns the schema of a registered node table, for
// front ends that need to type-convert raw input (e.g. CSV fields)
// before calling BulkInsertNodes.
func (db *Database) NodeTableSchema(tableName string) (*catalog.NodeTableSchema, bool) {
	return db.env.Catalog.GetNodeTable(tableName)
}

// Stats reports buffer-pool occupancy for monitoring and tests.
type Stats struct {
	PoolCapacity int
	PoolResident int
}

// Stats returns current buffer-pool occupancy.
func (db *Database) Stats() Stats {
	return Stats{PoolCapacity: db.pool.Capacity(), PoolResident: db.pool.Resident()}
}

// persistTableData writes every node and relationship table's row
// data to its own page chain, then writes a directory of name -> head
// page id and returns the directory's own head page id. Every close
// writes fresh chains; nothing frees the previous generation's pages,
// since page ids are never reused (a documented limitation, not a
// correctness gap: the superblock only ever points at the latest
// chains, so the old pages are simply unreachable garbage).
func persistTableData(pool *storage.Pool, env *executor.Env) (storage.PageId, error) {
	dir := make(tableDir, len(env.Nodes)+len(env.Rels))

	for name, nt := range env.Nodes {
		payload, err := nt.EncodeRows()
		if err != nil {
			return storage.InvalidPageId, err
		}
		head, err := storage.WriteChain(pool, payload)
		if err != nil {
			return storage.InvalidPageId, err
		}
		dir[name] = head
	}
	for name, rt := range env.Rels {
		payload, err := rt.EncodeRows()
		if err != nil {
			return storage.InvalidPageId, err
		}
		head, err := storage.WriteChain(pool, payload)
		if err != nil {
			return storage.InvalidPageId, err
		}
		dir[name] = head
	}

	raw, err := json.Marshal(dir)
	if err != nil {
		return storage.InvalidPageId, fmt.Errorf("graphdb: marshal table directory: %w", err)
	}
	return storage.WriteChain(pool, raw)
}

// Close persists the catalog, flushes the buffer pool and disk
// manager, and releases the WAL. Close fails without releasing
// anything if a page handle obtained from the pool is still pinned
// somewhere, since flushing while pinned could race a concurrent
// writer.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}

	h, err := db.pool.Pin(superblockPageID)
	if err != nil {
		return fmt.Errorf("graphdb: pin superblock: %w", err)
	}

	catalogHead, err := db.env.Catalog.Persist(db.pool)
	if err != nil {
		_ = h.Unpin(false)
		return err
	}

	dirHead, err := persistTableData(db.pool, db.env)
	if err != nil {
		_ = h.Unpin(false)
		return err
	}

	putPageID(h.Data()[0:8], catalogHead)
	putPageID(h.Data()[8:16], dirHead)
	if err := h.Unpin(true); err != nil {
		return err
	}

	if err := db.pool.Close(); err != nil {
		return err
	}
	if err := db.dm.Close(); err != nil {
		return err
	}
	if db.wal != nil {
		if err := db.wal.Close(); err != nil {
			return err
		}
	}

	db.closed = true
	return nil
}
