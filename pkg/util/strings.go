package util

import (
	"bytes"
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ParseBoolDefault accepts 1/0, true/false, yes/no.
func ParseBoolDefault(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Preview returns at most n runes of s with CR/LF escaped so it fits on one line.
func Preview(s string, n int) string {
	r := []rune(s)
	if n >= 0 && len(r) > n {
		r = r[:n]
	}
	out := strings.ReplaceAll(string(r), "\r", `\r`)
	return strings.ReplaceAll(out, "\n", `\n`)
}

// UTF8BOM is the byte order mark some spreadsheet tools expect at file start.
var UTF8BOM = []byte{0xEF, 0xBB, 0xBF}

// TrimBOM drops a leading UTF-8 byte order mark.
func TrimBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, UTF8BOM)
}
