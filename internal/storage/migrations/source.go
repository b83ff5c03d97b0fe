package migrations

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// script is one embedded migration file, already split into statements.
type script struct {
	name  string
	stmts []string
}

// loadScripts reads every .sql file under dir in lexical order. Files that
// hold only comments or whitespace yield no statements and are skipped.
func loadScripts(fsys fs.FS, dir string) ([]script, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]script, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		stmts, err := splitStatements(string(data))
		if err != nil {
			return nil, fmt.Errorf("split migration %s: %w", name, err)
		}
		if len(stmts) == 0 {
			continue
		}
		scripts = append(scripts, script{name: name, stmts: stmts})
	}
	return scripts, nil
}

// splitStatements drops "--" comment lines and splits on ';'. Migration files
// must not put ';' inside string literals or block comments.
func splitStatements(input string) ([]string, error) {
	if pos := semicolonInString(input); pos >= 0 {
		return nil, fmt.Errorf("semicolon inside string literal at offset %d", pos)
	}

	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// semicolonInString returns the offset of the first ';' inside a
// single-quoted literal, or -1. Doubled quotes ('') are an escape.
func semicolonInString(sql string) int {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return i
			}
		}
	}
	return -1
}
