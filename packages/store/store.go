// Package store persists judgment records keyed by case name or URL.
package store

import (
	"bytes"
	"caselaw/packages/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

var ErrEmptyKey = errors.New("record key must not be empty")

// Upserter sets one record under key, replacing whatever was stored there.
type Upserter interface {
	Upsert(ctx context.Context, key string, rec domain.Record) error
}

// Loader reads back every record a sink holds.
type Loader interface {
	Load(ctx context.Context) (map[string]domain.Record, error)
}

type Store interface {
	Upserter
	Loader
}

// JSONFile keeps the whole key→record map in one JSON object on disk. Every
// Upsert rereads and rewrites the file, so it is O(n) in stored records.
type JSONFile struct {
	Path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

func (s *JSONFile) Upsert(_ context.Context, key string, rec domain.Record) error {
	return UpsertFile(s.Path, key, rec)
}

// Load reads the file, which must exist and hold a JSON object.
func (s *JSONFile) Load(_ context.Context) (map[string]domain.Record, error) {
	return ReadRecords(s.Path)
}

// Current returns the stored records, reading a missing or unparseable file
// as empty.
func (s *JSONFile) Current() map[string]domain.Record {
	records := map[string]domain.Record{}
	for key, raw := range s.loadRaw() {
		rec, err := decodeRecord(raw)
		if err != nil {
			slog.Warn("Skipping record that is not an object", "path", s.Path, "key", key)
			continue
		}
		records[key] = rec
	}
	return records
}

// loadRaw keeps each stored record as raw JSON so values written by other
// tools survive an upsert untouched.
func (s *JSONFile) loadRaw() map[string]json.RawMessage {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Could not read store file, starting empty", "path", s.Path, "error", err)
		}
		return map[string]json.RawMessage{}
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("Store file is corrupt, starting empty", "path", s.Path, "error", err)
		return map[string]json.RawMessage{}
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	return raw
}

// UpsertFile merges rec into the JSON map stored at path. The write is not
// atomic: a crash mid-write can leave a corrupt file, which the next call
// treats as empty.
func UpsertFile(path, key string, rec domain.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	encoded, err := encodeJSON(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}
	s := JSONFile{Path: path}
	raw := s.loadRaw()
	raw[key] = encoded
	return writeJSON(path, raw)
}

// ReadRecords loads a records file that must exist and hold a JSON object.
// Non-string field values are kept as their JSON text.
func ReadRecords(path string) (map[string]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode records file %s: %w", path, err)
	}
	records := make(map[string]domain.Record, len(raw))
	for key, value := range raw {
		rec, err := decodeRecord(value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %q in %s: %w", key, path, err)
		}
		records[key] = rec
	}
	return records, nil
}

// decodeRecord reads one JSON object into a Record. String values are taken
// as is; numbers, booleans, arrays and objects keep their compact JSON text
// and null fields are dropped.
func decodeRecord(raw json.RawMessage) (domain.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("record is null")
	}
	rec := make(domain.Record, len(fields))
	for name, value := range fields {
		var str string
		if err := json.Unmarshal(value, &str); err == nil {
			rec[name] = str
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, value); err != nil {
			return nil, err
		}
		if compact.String() == "null" {
			continue
		}
		rec[name] = compact.String()
	}
	return rec, nil
}

func WriteRecords(path string, records map[string]domain.Record) error {
	return writeJSON(path, records)
}

func ReadURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("failed to decode url list %s: %w", path, err)
	}
	return urls, nil
}

func WriteURLs(path string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	return writeJSON(path, urls)
}

// ReportPath is where the run report for a records file is written.
func ReportPath(outputPath string) string {
	return outputPath + ".report.json"
}

func WriteReport(outputPath string, report *domain.Report) error {
	return writeJSON(ReportPath(outputPath), report)
}

func encodeJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteAll stores a complete record set. A JSON file sink is rewritten in one
// go; other sinks receive one upsert per record in key order.
func WriteAll(ctx context.Context, sink Upserter, records map[string]domain.Record) error {
	if f, ok := sink.(*JSONFile); ok {
		return WriteRecords(f.Path, records)
	}
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := sink.Upsert(ctx, key, records[key]); err != nil {
			return err
		}
	}
	return nil
}
