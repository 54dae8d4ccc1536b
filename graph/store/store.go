// Package store persists named columnar tables in BadgerDB so datasets
// survive between sessions. Each table is stored as one metadata record
// describing its columns plus one record per row.
package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/table"
)

// Store is a BadgerDB-backed table store.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store, mainly for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const keyPrefix = "tbl:"

func metaKey(name string) []byte {
	return []byte(keyPrefix + name + ":meta")
}

func rowKey(name string, i int) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(name)+9)
	key = append(key, keyPrefix...)
	key = append(key, name...)
	key = append(key, ":row:"...)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(i))
	return append(key, idx[:]...)
}

// PutTable writes a table under a name, replacing any previous contents.
func (s *Store) PutTable(name string, tbl table.Table) error {
	if err := s.DeleteTable(name); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(name), encodeMeta(tbl.Columns())); err != nil {
			return fmt.Errorf("failed to write table metadata: %w", err)
		}
		for i := 0; i < tbl.NumRows(); i++ {
			encoded, err := encodeRow(tbl.Row(i))
			if err != nil {
				return err
			}
			if err := txn.Set(rowKey(name, i), encoded); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetTable loads a named table. A missing name is a MissingDataset error.
func (s *Store) GetTable(name string) (*table.MemoryTable, error) {
	var columns []string
	var rows [][]graph.Value

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err == badger.ErrKeyNotFound {
			return graph.Errorf(graph.MissingDataset, "table %q not in store", name)
		}
		if err != nil {
			return fmt.Errorf("failed to read table metadata: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			columns, err = decodeMeta(val)
			return err
		}); err != nil {
			return err
		}

		prefix := []byte(keyPrefix + name + ":row:")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				row, err := decodeRow(val, len(columns))
				if err != nil {
					return err
				}
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cols := make([]table.Column, len(columns))
	for i, name := range columns {
		values := make([]graph.Value, len(rows))
		for ri, row := range rows {
			values[ri] = row[i]
		}
		cols[i] = table.Column{Name: name, Values: values}
	}
	return table.NewMemoryTable(cols...)
}

// DeleteTable removes a named table. Deleting an absent table is a no-op.
func (s *Store) DeleteTable(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix + name + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete key: %w", err)
			}
		}
		return nil
	})
}

// ListTables returns the stored table names, sorted.
func (s *Store) ListTables() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if bytes.HasSuffix(key, []byte(":meta")) {
				name := string(key[len(keyPrefix) : len(key)-len(":meta")])
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Datasets loads every stored table into a dataset map.
func (s *Store) Datasets() (table.Datasets, error) {
	names, err := s.ListTables()
	if err != nil {
		return nil, err
	}
	datasets := make(table.Datasets, len(names))
	for _, name := range names {
		tbl, err := s.GetTable(name)
		if err != nil {
			return nil, err
		}
		datasets[name] = tbl
	}
	return datasets, nil
}

// Value encoding: 1 type byte + 4-byte big-endian length + payload.
const (
	typeNull byte = iota
	typeInt
	typeFloat
	typeString
	typeBool
	typeTime
)

func encodeMeta(columns []string) []byte {
	var buf bytes.Buffer
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(columns)))
	buf.Write(n[:])
	for _, name := range columns {
		binary.BigEndian.PutUint16(n[:], uint16(len(name)))
		buf.Write(n[:])
		buf.WriteString(name)
	}
	return buf.Bytes()
}

func decodeMeta(data []byte) ([]string, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("corrupt table metadata")
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	columns := make([]string, 0, count)
	pos := 2
	for i := 0; i < count; i++ {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("corrupt table metadata")
		}
		size := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+size > len(data) {
			return nil, fmt.Errorf("corrupt table metadata")
		}
		columns = append(columns, string(data[pos:pos+size]))
		pos += size
	}
	return columns, nil
}

func encodeRow(row []graph.Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range row {
		tag, payload, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(tag)
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(payload)))
		buf.Write(size[:])
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

func encodeValue(v graph.Value) (byte, []byte, error) {
	switch t := v.(type) {
	case nil:
		return typeNull, nil, nil
	case int64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(t))
		return typeInt, b[:], nil
	case float64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(t))
		return typeFloat, b[:], nil
	case string:
		return typeString, []byte(t), nil
	case bool:
		if t {
			return typeBool, []byte{1}, nil
		}
		return typeBool, []byte{0}, nil
	case time.Time:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(t.UnixNano()))
		return typeTime, b[:], nil
	}
	return 0, nil, fmt.Errorf("cannot encode value of type %T", v)
}

func decodeRow(data []byte, columns int) ([]graph.Value, error) {
	row := make([]graph.Value, 0, columns)
	pos := 0
	for pos < len(data) {
		if pos+5 > len(data) {
			return nil, fmt.Errorf("corrupt row data")
		}
		tag := data[pos]
		size := int(binary.BigEndian.Uint32(data[pos+1 : pos+5]))
		pos += 5
		if pos+size > len(data) {
			return nil, fmt.Errorf("corrupt row data")
		}
		v, err := decodeValue(tag, data[pos:pos+size])
		if err != nil {
			return nil, err
		}
		row = append(row, v)
		pos += size
	}
	if len(row) != columns {
		return nil, fmt.Errorf("row has %d values, expected %d", len(row), columns)
	}
	return row, nil
}

func decodeValue(tag byte, payload []byte) (graph.Value, error) {
	switch tag {
	case typeNull:
		return nil, nil
	case typeInt, typeFloat, typeTime:
		if len(payload) != 8 {
			return nil, fmt.Errorf("corrupt value payload for tag %d", tag)
		}
	}
	switch tag {
	case typeInt:
		return int64(binary.BigEndian.Uint64(payload)), nil
	case typeFloat:
		return math.Float64frombits(binary.BigEndian.Uint64(payload)), nil
	case typeString:
		return string(payload), nil
	case typeBool:
		return len(payload) == 1 && payload[0] == 1, nil
	case typeTime:
		return time.Unix(0, int64(binary.BigEndian.Uint64(payload))).UTC(), nil
	}
	return nil, fmt.Errorf("unknown value tag %d", tag)
}
