// Package catalog reads the flat-file catalog seed, one CSV file per item kind.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/core/domain"
)

// Files maps each item kind to its seed file and the minimum column count of a row.
var Files = []struct {
	Kind    domain.ItemKind
	Name    string
	Columns int
}{
	{domain.KindBook, "books.csv", 5},
	{domain.KindCD, "cds.csv", 3},
	{domain.KindDVD, "dvds.csv", 3},
	{domain.KindAudiobook, "audiobooks.csv", 3},
}

// LoadCSV parses rows of kind from r. Rows with too few columns are skipped;
// a non-numeric id fails the whole file.
func LoadCSV(r io.Reader, kind domain.ItemKind) ([]*domain.Item, error) {
	columns, ok := minColumns(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownItemKind, kind)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var items []*domain.Item
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", kind, err)
		}
		if len(rec) < columns {
			continue
		}
		line, _ := reader.FieldPos(0)

		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("catalog: %s line %d: invalid id %q", kind, line, rec[0])
		}
		items = append(items, newItem(kind, id, trimAll(rec)))
	}
}

// LoadDir reads every seed file in dir. A missing file leaves its kind empty.
func LoadDir(dir string, log zerolog.Logger) ([]*domain.Item, error) {
	var all []*domain.Item
	for _, f := range Files {
		path := filepath.Join(dir, f.Name)
		items, err := loadFile(path, f.Kind)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("file", path).Msg("catalog file missing, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", path).Int("items", len(items)).Msg("catalog file loaded")
		all = append(all, items...)
	}
	return all, nil
}

func loadFile(path string, kind domain.ItemKind) ([]*domain.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, kind)
}

func minColumns(kind domain.ItemKind) (int, bool) {
	for _, f := range Files {
		if f.Kind == kind {
			return f.Columns, true
		}
	}
	return 0, false
}

func newItem(kind domain.ItemKind, id int, rec []string) *domain.Item {
	switch kind {
	case domain.KindBook:
		return domain.NewBook(id, rec[1], rec[2], rec[3], rec[4])
	case domain.KindCD:
		return domain.NewCD(id, rec[1], rec[2])
	case domain.KindDVD:
		return domain.NewDVD(id, rec[1], rec[2])
	default:
		return domain.NewAudiobook(id, rec[1], rec[2])
	}
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
