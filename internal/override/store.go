package override

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed record_schema.json
var recordSchemaJSON string

// Store reads and writes override records in a single directory, one JSON
// file per known form. The directory is re-scanned on every lookup so
// records dropped in by hand are picked up without a restart.
type Store struct {
	dir       string
	validator *jsonschema.Schema
	logger    *log.Logger
}

// NewStore opens a store over dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating override directory: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record_schema.json", strings.NewReader(recordSchemaJSON)); err != nil {
		return nil, fmt.Errorf("loading override record schema: %w", err)
	}
	validator, err := compiler.Compile("record_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling override record schema: %w", err)
	}

	return &Store{dir: dir, validator: validator, logger: log.Default()}, nil
}

// Lookup finds the best record for an identity. Precedence is content hash,
// then exact filename, then filename stem. Records that fail to parse or
// validate are logged and treated as absent.
func (s *Store) Lookup(id Identity) (*Record, bool) {
	records := s.loadAll()

	for _, r := range records {
		if id.Hash != "" && r.Metadata.Hash == id.Hash {
			return r, true
		}
	}
	for _, r := range records {
		if id.Filename != "" && strings.EqualFold(r.Metadata.Filename, filepath.Base(id.Filename)) {
			return r, true
		}
	}
	for _, r := range records {
		if id.Filename != "" && (Identity{Filename: r.Metadata.Filename}).Stem() == id.Stem() {
			return r, true
		}
	}
	return nil, false
}

// Save writes a record for the given identity, replacing any previous one
// for the same hash. The write goes through a temp file and a rename so a
// concurrent Lookup never sees a half-written record.
func (s *Store) Save(rec *Record) error {
	if rec.Metadata.Hash == "" || rec.Metadata.Filename == "" {
		return fmt.Errorf("override record needs both hash and filename")
	}
	if rec.Metadata.CreatedAt.IsZero() {
		rec.Metadata.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding override record: %w", err)
	}
	if err := s.validate(data); err != nil {
		return fmt.Errorf("override record failed validation: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "record-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp record file: %w", err)
	}

	final := filepath.Join(s.dir, s.recordName(rec))
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("installing record file: %w", err)
	}
	return nil
}

// recordName keys files by hash so re-saving the same form replaces the
// old record instead of accumulating copies.
func (s *Store) recordName(rec *Record) string {
	sum := sha256.Sum256([]byte(rec.Metadata.Hash))
	return hex.EncodeToString(sum[:8]) + ".json"
}

func (s *Store) loadAll() []*Record {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Printf("override: reading %s: %v", s.dir, err)
		return nil
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		rec, err := s.loadOne(path)
		if err != nil {
			s.logger.Printf("override: skipping %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *Store) loadOne(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.validate(data); err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Schema != nil {
		if err := rec.Schema.Validate(); err != nil {
			return nil, fmt.Errorf("embedded schema: %w", err)
		}
	}
	return &rec, nil
}

func (s *Store) validate(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.validator.Validate(v)
}
