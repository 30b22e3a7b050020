package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/domainrecon/internal/database"
)

// DirName is the directory, relative to the data directory, that holds
// exported files.
const DirName = "csv"

// Source lists tables and streams their rows. *database.ResultDB implements it.
type Source interface {
	Tables(ctx context.Context) ([]string, error)
	Rows(ctx context.Context, table string, header func(columns []string) error, fn database.RowFunc) error
}

// WriteTables writes every table of src to dir/<table>.csv and returns the
// paths written. Each file is written to a temporary name first and renamed
// into place, so a failed export never leaves a truncated file behind.
func WriteTables(ctx context.Context, src Source, dir string) ([]string, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	paths := make([]string, 0, len(tables))
	for _, table := range tables {
		path, err := writeTable(ctx, src, dir, table)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTable(ctx context.Context, src Source, dir, table string) (string, error) {
	dst := filepath.Join(dir, table+".csv")

	tmp, err := os.CreateTemp(dir, "."+table+".*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for %s: %w", table, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	w := NewWriter(tmp)
	err = src.Rows(ctx, table, w.WriteHeader, w.WriteRow)
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to export %s: %w", table, err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", table, err)
	}
	return dst, nil
}
