package repository

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"MarketLog/pkg/util"
)

// quoteRow renders fields with every value quoted. encoding/csv only quotes
// when needed, and the header check compares the quoted form byte for byte.
func quoteRow(fields []string) []byte {
	var b bytes.Buffer
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// appendRow appends one row with a single write on an O_APPEND descriptor so
// concurrent writers never interleave within a row. The header goes in the
// same write when the file is new or empty.
func appendRow(path string, header, row []string, bom bool) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		if bom {
			buf.Write(util.UTF8BOM)
		}
		buf.Write(quoteRow(header))
	}
	buf.Write(quoteRow(row))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}

// appendLine appends a pre-rendered line in a single write.
func appendLine(path string, line []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}
