// Command graphdb-bulkload loads a CSV file into an existing node
// table, converting each field to the column's declared type before
// handing batches to the engine. Reading the file and converting
// field text is this front end's job; the core engine only validates
// a COPY statement's options, it never touches the filesystem itself.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tuannm99/graphdb/internal/config"
	"github.com/tuannm99/graphdb/internal/value"
	"github.com/tuannm99/graphdb/pkg/graphdb"
)

const defaultBatchSize = 500

// nullLiterals are CSV field values treated as NULL regardless of
// declared column type.
var nullLiterals = map[string]bool{"": true, "NULL": true, "null": true, `\N`: true}

func convertField(raw string, kind value.Kind) (value.Value, error) {
	if nullLiterals[raw] {
		return value.Null(), nil
	}
	switch kind {
	case value.KindInt64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("not an INT64: %q", raw)
		}
		return value.Int64(n), nil
	case value.KindString:
		return value.String(raw), nil
	case value.KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return value.Value{}, fmt.Errorf("not a BOOL: %q", raw)
		}
		return value.Bool(b), nil
	default:
		return value.Null(), nil
	}
}

func run(dbPath, table, csvPath string, hasHeader bool, strict bool, batchSize int) error {
	cfg := config.Default()
	cfg.Storage.Path = dbPath
	db, err := graphdb.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	schema, ok := db.NodeTableSchema(table)
	if !ok {
		return fmt.Errorf("no such node table %q", table)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	colNames := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		colNames[i] = c.Name
	}
	if hasHeader {
		if _, err := r.Read(); err != nil && err != io.EOF {
			return fmt.Errorf("read header: %w", err)
		}
	}

	var (
		batch     []map[string]value.Value
		inserted  int64
		skipped   int64
		rowNum    int
		flushBatch = func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := db.BulkInsertNodes(table, batch)
			inserted += n
			batch = batch[:0]
			return err
		}
	)

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("row %d: read error: %w", rowNum+1, err)
		}
		rowNum++

		row := make(map[string]value.Value, len(colNames))
		rowErr := error(nil)
		for i, name := range colNames {
			var raw string
			if i < len(rec) {
				raw = rec[i]
			}
			v, err := convertField(raw, schema.Columns[i].Type)
			if err != nil {
				rowErr = fmt.Errorf("row %d, column %s: %w", rowNum, name, err)
				break
			}
			row[name] = v
		}
		if rowErr != nil {
			if strict {
				return rowErr
			}
			fmt.Fprintf(os.Stderr, "%v (skipped)\n", rowErr)
			skipped++
			continue
		}

		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flushBatch(); err != nil {
				return fmt.Errorf("insert batch: %w", err)
			}
		}
	}
	if err := flushBatch(); err != nil {
		return fmt.Errorf("insert final batch: %w", err)
	}

	fmt.Printf("inserted %d rows into %s (%d skipped)\n", inserted, table, skipped)
	return nil
}

func main() {
	var (
		dbPath    = flag.String("db", "", "database file path")
		table     = flag.String("table", "", "node table to load into")
		csvPath   = flag.String("csv", "", "CSV file to load")
		header    = flag.Bool("header", true, "CSV has a header row to skip")
		strict    = flag.Bool("strict", false, "abort on the first malformed row instead of skipping it")
		batchSize = flag.Int("batch-size", defaultBatchSize, "rows per insert batch")
	)
	flag.Parse()

	if *dbPath == "" || *table == "" || *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: graphdb-bulkload -db <path> -table <name> -csv <file> [-header] [-strict] [-batch-size N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *table, *csvPath, *header, *strict, *batchSize); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
