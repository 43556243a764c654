package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bioforge/organclock/internal/config"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// LoadTables loads every declared survey table, dispatching on the file
// extension. Returns tables keyed by logical name together with the
// document order, which the merge consumes left to right.
func LoadTables(paths *config.Paths) (map[string]*Frame, []string, error) {
	logger := log.With("dataset")

	tables := make(map[string]*Frame, len(paths.TableOrder))
	for _, name := range paths.TableOrder {
		path := paths.File(name)

		file, err := os.Open(path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "data file not found: %s", path)
		}

		var frame *Frame
		switch strings.ToUpper(filepath.Ext(path)) {
		case ".XPT":
			frame, err = ReadXPT(file)
		case ".CSV":
			frame, err = ReadCSV(file)
		default:
			_ = file.Close()
			return nil, nil, errors.NewValueError("LoadTables", "unsupported file format: "+filepath.Ext(path))
		}
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", path)
		}

		tables[name] = frame
		logger.Info().
			Str("table", name).
			Int("rows", frame.NumRows()).
			Int("columns", frame.NumCols()).
			Msg("loaded table")
	}
	return tables, paths.TableOrder, nil
}

// LoadAndMerge loads all declared tables and inner-joins them on SEQN.
func LoadAndMerge(paths *config.Paths) (*Frame, error) {
	tables, order, err := LoadTables(paths)
	if err != nil {
		return nil, err
	}
	return Merge(tables, order)
}
