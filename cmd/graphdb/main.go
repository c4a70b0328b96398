// Command graphdb is an interactive shell over an embedded graph
// database: read a statement, run it, print the result.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"

	"github.com/tuannm99/graphdb/internal/config"
	"github.com/tuannm99/graphdb/internal/value"
	"github.com/tuannm99/graphdb/pkg/graphdb"
)

// ---- History (own file) ----

type History struct {
	path  string
	lines []string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *History) Append(stmt string) error {
	stmt = compactOneLine(strings.TrimSpace(stmt))
	if stmt == "" || h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := fmt.Fprintln(f, stmt); err != nil {
		return err
	}
	h.lines = append(h.lines, stmt)
	return nil
}

func compactOneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// ---- REPL helpers ----

// statementComplete reports whether buf has a terminating ';' outside
// a quoted string literal.
func statementComplete(buf string) bool {
	inQuote := false
	escaped := false
	for _, r := range buf {
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if r == '\'' {
			inQuote = !inQuote
			continue
		}
		if r == ';' && !inQuote {
			return true
		}
	}
	return false
}

func isMetaCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

func printResult(res *graphdb.QueryResult) {
	if len(res.Columns) == 0 {
		fmt.Printf("OK (%s affected)\n", humanize.Comma(res.RowsAffected))
		return
	}

	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = len(c)
	}
	cellText := func(row []value.Value, i int) string {
		if i >= len(row) || row[i].IsNull() {
			return "NULL"
		}
		return row[i].String()
	}
	for _, row := range res.Rows {
		for i := range res.Columns {
			if s := cellText(row, i); len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Print(padRight(c, widths[i]))
		}
		fmt.Println()
	}

	printRow(res.Columns)
	for i, w := range widths {
		if i > 0 {
			fmt.Print("-+-")
		}
		fmt.Print(strings.Repeat("-", w))
	}
	fmt.Println()
	for _, row := range res.Rows {
		cells := make([]string, len(res.Columns))
		for i := range res.Columns {
			cells[i] = cellText(row, i)
		}
		printRow(cells)
	}
	fmt.Printf("(%s rows)\n", humanize.Comma(int64(len(res.Rows))))
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".graphdb_history"
	}
	return filepath.Join(home, ".graphdb_history")
}

func main() {
	var (
		dbPath     = flag.String("db", "", "database file path (empty = in-memory)")
		poolCap    = flag.Int("pool-capacity", 256, "buffer pool frame capacity")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
		oneShotSQL = flag.String("c", "", "execute one statement and exit (must end with ';')")
	)
	flag.Parse()

	cfg := config.Default()
	cfg.Storage.Path = *dbPath
	cfg.Storage.PoolCapacity = *poolCap

	db, err := graphdb.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if strings.TrimSpace(*oneShotSQL) != "" {
		res, err := db.Execute(*oneShotSQL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printResult(res)
		return
	}

	h := NewHistory(*histPath)
	_ = h.Load(*histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "graphdb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	var buf strings.Builder

	if *dbPath == "" {
		fmt.Println("connected to an in-memory database")
	} else {
		fmt.Printf("connected to %s\n", *dbPath)
	}
	fmt.Println("type \\help for help")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt("graphdb> ")
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return
			case "\\help":
				fmt.Println(`meta commands:
  \q | quit | exit       quit
  \stats                 buffer pool occupancy
  \history               print history
  \help                  show help

statements:
  end statement with ';'
  multiline is supported (CLI waits until ';')`)
			case "\\stats":
				s := db.Stats()
				fmt.Printf("pool: %d/%d frames resident\n", s.PoolResident, s.PoolCapacity)
			case "\\history":
				last := 50
				if last > len(h.lines) {
					last = len(h.lines)
				}
				for i := len(h.lines) - last; i < len(h.lines); i++ {
					fmt.Printf("%5d  %s\n", i+1, h.lines[i])
				}
			default:
				fmt.Printf("unknown command: %s\n", line)
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt("graphdb> ")

		_ = h.Append(stmt)
		_ = rl.SaveHistory(compactOneLine(stmt))

		res, err := db.Execute(stmt)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResult(res)
	}
}
