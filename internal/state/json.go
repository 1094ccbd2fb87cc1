package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

// JSONStore persists per-domain progress as JSON files under a directory.
type JSONStore struct {
	dir string
}

// NewJSONStore creates a JSON progress store rooted at dir.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

// progressEnvelope wraps progress with integrity metadata.
type progressEnvelope struct {
	Version   int            `json:"version"`
	Checksum  string         `json:"checksum"`
	UpdatedAt time.Time      `json:"updated_at"`
	Progress  *core.Progress `json:"progress"`
}

// Save persists progress atomically.
func (s *JSONStore) Save(_ context.Context, domain string, p *core.Progress) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating progress directory: %w", err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling progress: %w", err)
	}
	hash := sha256.Sum256(body)

	envelope := progressEnvelope{
		Version:   1,
		Checksum:  hex.EncodeToString(hash[:]),
		UpdatedAt: time.Now(),
		Progress:  p,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	if err := atomicWriteFile(s.path(domain), data, 0o644); err != nil {
		return fmt.Errorf("writing progress file: %w", err)
	}
	return nil
}

// Load retrieves progress for a domain, or nil if none was saved.
func (s *JSONStore) Load(_ context.Context, domain string) (*core.Progress, error) {
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading progress file: %w", err)
	}

	var envelope progressEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if envelope.Progress == nil {
		return nil, core.ErrSystem("progress envelope has no payload")
	}

	body, err := json.Marshal(envelope.Progress)
	if err != nil {
		return nil, fmt.Errorf("marshaling progress for checksum: %w", err)
	}
	hash := sha256.Sum256(body)
	if hex.EncodeToString(hash[:]) != envelope.Checksum {
		return nil, core.ErrSystem("progress checksum mismatch")
	}

	return envelope.Progress, nil
}

// Delete removes persisted progress for a domain.
func (s *JSONStore) Delete(_ context.Context, domain string) error {
	err := os.Remove(s.path(domain))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing progress file: %w", err)
	}
	return nil
}

func (s *JSONStore) path(domain string) string {
	return filepath.Join(s.dir, "automation-progress-"+sanitizeDomain(domain)+".json")
}

// sanitizeDomain keeps only characters safe in a file name.
func sanitizeDomain(domain string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, domain)
}

var _ core.ProgressStore = (*JSONStore)(nil)
