// MeriDB interactive shell
// Drives the storage core through the SQL front-end
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/meridb/meridb/internal/logger"
	"github.com/meridb/meridb/internal/metrics"
	"github.com/meridb/meridb/pkg/catalog"
	"github.com/meridb/meridb/pkg/exec"
	"github.com/meridb/meridb/pkg/sql"
)

const historyFile = ".meridb_history"

var sqlKeywords = []string{
	"CREATE", "DATABASE", "DATABASES", "TABLE", "TABLES", "USE", "SHOW",
	"INSERT", "INTO", "VALUES", "SELECT", "FROM", "WHERE", "UPDATE", "SET",
	"DELETE", "AND", "OR", "NOT", "NULL", "INTEGER", "FLOAT", "TEXT",
	"BOOLEAN", "CHAR", "BLOB", "JSON",
}

// Exit codes: 0 success, 1 execution error, 2 parse error.
const (
	exitOK    = 0
	exitExec  = 1
	exitParse = 2
)

func main() {
	dataDir := pflag.String("data-dir", "./data", "root directory for databases")
	database := pflag.String("database", "", "database to USE on startup")
	execSQL := pflag.String("exec", "", "execute statements and exit")
	logLevel := pflag.String("log-level", "warn", "log level (debug, info, warn, error)")
	pretty := pflag.Bool("pretty", true, "pretty-print log output")
	pflag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: *pretty})

	cat := catalog.NewFileCatalog(*dataDir)
	defer cat.Close()
	session := exec.New(cat, log, metrics.New())

	if *database != "" {
		if err := cat.UseDatabase(*database); err != nil {
			log.Error().Str("database", *database).Err(err).Msg("cannot open database")
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(exitExec)
		}
	}

	if *execSQL != "" {
		os.Exit(runBatch(session, *execSQL))
	}

	os.Exit(runREPL(session, cat, log))
}

// runBatch executes semicolon-separated statements non-interactively.
func runBatch(session *exec.Executor, input string) int {
	for _, stmtText := range splitStatements(input) {
		stmt, err := sql.Parse(stmtText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitParse
		}
		res, err := session.Execute(stmt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitExec
		}
		fmt.Println(res.Render())
	}
	return exitOK
}

func runREPL(session *exec.Executor, cat *catalog.FileCatalog, log zerolog.Logger) int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSQL)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("MeriDB shell. Statements end with ';'. Type 'exit' to leave.")

	var pending strings.Builder
	for {
		prompt := "meridb> "
		if db, ok := cat.CurrentDatabase(); ok {
			prompt = db + "> "
		}
		if pending.Len() > 0 {
			prompt = "     -> "
		}

		input, err := line.Prompt(prompt)
		if err != nil {
			// Ctrl-C clears the pending statement, Ctrl-D leaves.
			if err == liner.ErrPromptAborted {
				pending.Reset()
				continue
			}
			break
		}

		trimmed := strings.TrimSpace(input)
		if pending.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
		}

		pending.WriteString(input)
		pending.WriteByte('\n')
		if !strings.Contains(input, ";") {
			continue
		}

		full := pending.String()
		pending.Reset()
		line.AppendHistory(strings.TrimSpace(full))

		for _, stmtText := range splitStatements(full) {
			stmt, err := sql.Parse(stmtText)
			if err != nil {
				fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
				continue
			}
			res, err := session.Execute(stmt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(res.Render())
		}
	}

	saveHistory(line, histPath, log)
	return exitOK
}

// saveHistory rewrites the history file atomically so an interrupted exit
// never truncates it.
func saveHistory(line *liner.State, path string, log zerolog.Logger) {
	var buf bytes.Buffer
	if _, err := line.WriteHistory(&buf); err != nil {
		log.Warn().Err(err).Msg("cannot serialize history")
		return
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("cannot save history")
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

func completeSQL(line string) []string {
	i := strings.LastIndexAny(line, " \t(")
	head, word := line[:i+1], line[i+1:]
	if word == "" {
		return nil
	}
	var out []string
	upper := strings.ToUpper(word)
	for _, kw := range sqlKeywords {
		if strings.HasPrefix(kw, upper) {
			out = append(out, head+kw)
		}
	}
	return out
}

// splitStatements splits on semicolons outside single-quoted strings.
func splitStatements(input string) []string {
	var out []string
	var cur strings.Builder
	inString := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case ch == '\'':
			inString = !inString
			cur.WriteByte(ch)
		case ch == ';' && !inString:
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
