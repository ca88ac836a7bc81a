// Package storage persists association models as single snapshot files.
//
// A snapshot is gzip-compressed JSON holding a metadata header and the model
// body. The header carries a SHA-256 checksum of the body so a truncated or
// edited file is rejected on load instead of being served.
package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/yishak-cs/basket-recommender/internal/association"
)

// FormatVersion is bumped when the snapshot layout changes
const FormatVersion = 1

var (
	ErrNotFound           = errors.New("snapshot not found")
	ErrChecksumMismatch   = errors.New("snapshot checksum mismatch")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Metadata describes a stored snapshot
type Metadata struct {
	Version      int       `json:"version"`
	BuiltAt      time.Time `json:"builtAt"`
	SavedAt      time.Time `json:"savedAt"`
	Source       string    `json:"source"`
	Products     int       `json:"products"`
	Pairs        int       `json:"pairs"`
	Transactions int       `json:"transactions"`
	Checksum     string    `json:"checksum"`
	SizeBytes    int64     `json:"sizeBytes"`
}

type envelope struct {
	Metadata Metadata        `json:"metadata"`
	Model    json.RawMessage `json:"model"`
}

// Store reads and writes one snapshot file
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store for the snapshot at path
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the snapshot location
func (s *Store) Path() string { return s.path }

// Save writes the model, replacing any previous snapshot atomically
func (s *Store) Save(m *association.Model) (Metadata, error) {
	body, err := json.Marshal(m.Snapshot())
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to encode model: %w", err)
	}

	st := m.Status()
	meta := Metadata{
		Version:      FormatVersion,
		BuiltAt:      m.BuiltAt(),
		SavedAt:      s.now().UTC(),
		Source:       m.Source(),
		Products:     st.Products,
		Pairs:        st.Pairs,
		Transactions: st.Transactions,
		Checksum:     checksum(body),
	}

	raw, err := json.Marshal(envelope{Metadata: meta, Model: body})
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return Metadata{}, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return Metadata{}, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	meta.SizeBytes = int64(buf.Len())

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Load reads and validates the snapshot
func (s *Store) Load() (*association.Model, Metadata, error) {
	env, err := s.read()
	if err != nil {
		return nil, Metadata{}, err
	}

	if got := checksum(env.Model); got != env.Metadata.Checksum {
		return nil, env.Metadata, fmt.Errorf("%w: have %s, want %s", ErrChecksumMismatch, got, env.Metadata.Checksum)
	}

	var snap association.Snapshot
	if err := json.Unmarshal(env.Model, &snap); err != nil {
		return nil, env.Metadata, fmt.Errorf("failed to decode model: %w", err)
	}

	m, err := association.FromSnapshot(snap)
	if err != nil {
		return nil, env.Metadata, fmt.Errorf("corrupted snapshot %s: %w", s.path, err)
	}
	return m, env.Metadata, nil
}

// Metadata reads only the snapshot header
func (s *Store) Metadata() (Metadata, error) {
	env, err := s.read()
	if err != nil {
		return Metadata{}, err
	}
	return env.Metadata, nil
}

func (s *Store) read() (envelope, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return envelope{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return envelope{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}
	if env.Metadata.Version != FormatVersion {
		return envelope{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Metadata.Version)
	}
	return env, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes to a temp file in the target directory and renames it
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
