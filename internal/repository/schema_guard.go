package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"
)

// GuardResult describes what EnsureOrQuarantine did.
type GuardResult struct {
	Quarantined bool
	Reason      string
	MovedTo     string
}

// SchemaGuard keeps fixed-schema CSV logs structurally sound. A file that does
// not match the expected columns is renamed aside, never repaired in place.
type SchemaGuard struct {
	metrics drepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewSchemaGuard(metrics drepo.Metrics, log *logger.Logger) *SchemaGuard {
	if log == nil {
		log = logger.Nop()
	}
	return &SchemaGuard{
		metrics: metrics,
		log:     log.With(logger.String("component", "schema_guard")),
		now:     time.Now,
	}
}

// EnsureOrQuarantine checks path against expected. A missing or empty file is
// left alone. An error is returned only when the file cannot be inspected or
// moved; schema problems are absorbed by quarantine.
func (g *SchemaGuard) EnsureOrQuarantine(path string, expected []string) (GuardResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return GuardResult{}, nil
		}
		return GuardResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return GuardResult{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return g.quarantine(path, models.ReasonReadFail+":"+models.KindOf(err))
	}
	data = util.TrimBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return GuardResult{}, nil
	}

	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	firstLine = bytes.TrimRight(firstLine, "\r")
	wantLine := bytes.TrimRight(quoteRow(expected), "\n")

	if !bytes.Equal(firstLine, wantLine) {
		header, err := csv.NewReader(bytes.NewReader(data)).Read()
		if err != nil {
			return g.quarantine(path, models.ReasonReadFail+":"+csvErrorKind(err))
		}
		if !sameColumns(header, expected) {
			return g.quarantine(path, models.ReasonHeaderMismatch)
		}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(expected)
	for {
		_, err := r.Read()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		return g.quarantine(path, models.ReasonParseFail+":"+csvErrorKind(err))
	}
	return GuardResult{}, nil
}

func (g *SchemaGuard) quarantine(path, reason string) (GuardResult, error) {
	target := g.quarantinePath(path)
	if err := os.Rename(path, target); err != nil {
		return GuardResult{}, models.NewFailure(models.ClassSchema, reason, fmt.Errorf("quarantine %s: %w", path, err))
	}
	if g.metrics != nil {
		g.metrics.RecordQuarantine(reasonClass(reason))
	}
	g.log.Warn("log quarantined",
		logger.String("path", path),
		logger.String("moved_to", target),
		logger.String("reason", reason),
	)
	return GuardResult{Quarantined: true, Reason: reason, MovedTo: target}, nil
}

// quarantinePath returns "<stem>.quarantine-<ts><ext>", adding a counter if
// that name is already taken.
func (g *SchemaGuard) quarantinePath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	base := fmt.Sprintf("%s.quarantine-%s", stem, g.now().UTC().Format("20060102T150405"))
	candidate := base + ext
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func reasonClass(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}

func csvErrorKind(err error) string {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		switch {
		case errors.Is(pe.Err, csv.ErrFieldCount):
			return "FieldCount"
		case errors.Is(pe.Err, csv.ErrQuote):
			return "Quote"
		case errors.Is(pe.Err, csv.ErrBareQuote):
			return "BareQuote"
		}
		return models.KindOf(pe.Err)
	}
	if errors.Is(err, io.EOF) {
		return "EOF"
	}
	return models.KindOf(err)
}
