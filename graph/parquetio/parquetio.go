// Package parquetio loads parquet files into in-memory columnar tables so
// they can be queried as datasets.
package parquetio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/table"
)

// ReadTable reads one parquet file fully into a memory table. Column
// order follows the file schema.
func ReadTable(path string) (*table.MemoryTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	names := make([]string, 0, len(pqFile.Schema().Fields()))
	for _, field := range pqFile.Schema().Fields() {
		names = append(names, field.Name())
	}

	columns := make(map[string][]graph.Value, len(names))
	for _, name := range names {
		columns[name] = nil
	}

	reader := parquet.NewReader(pqFile)
	defer func() { _ = reader.Close() }()

	rows := 0
	for {
		row := make(map[string]interface{})
		err := reader.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		for _, name := range names {
			columns[name] = append(columns[name], toValue(row[name]))
		}
		rows++
	}

	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = table.Column{Name: name, Values: columns[name]}
	}
	return table.NewMemoryTable(cols...)
}

// LoadDir reads every .parquet file in a directory into a dataset map
// keyed by the file name without extension.
func LoadDir(dir string) (table.Datasets, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("invalid directory pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no parquet files in %s", dir)
	}
	datasets := make(table.Datasets, len(matches))
	for _, path := range matches {
		tbl, err := ReadTable(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".parquet")
		datasets[name] = tbl
	}
	return datasets, nil
}

// toValue narrows a decoded parquet value to the engine's value types.
func toValue(v interface{}) graph.Value {
	switch t := v.(type) {
	case nil:
		return nil
	case int32:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	case string:
		return t
	case bool:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
