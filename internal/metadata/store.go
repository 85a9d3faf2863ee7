// Package metadata persists token metadata documents as immutable JSON files
// addressed by random identifiers.
package metadata

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"go.uber.org/zap"
)

// Metadata is the document a token's metadata URI resolves to.
type Metadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ShowName    bool   `json:"showName"`
	Twitter     string `json:"twitter,omitempty"`
	Website     string `json:"website,omitempty"`
}

// Validate reports every missing required field.
func (m Metadata) Validate() error {
	var reasons []string
	for _, f := range []struct{ name, value string }{
		{"name", m.Name},
		{"symbol", m.Symbol},
		{"description", m.Description},
		{"image", m.Image},
	} {
		if strings.TrimSpace(f.value) == "" {
			reasons = append(reasons, f.name+" is required")
		}
	}
	if len(reasons) > 0 {
		return apperr.Validation("Missing required fields", reasons...)
	}
	return nil
}

// Stored is the result of a successful Put.
type Stored struct {
	ID       string   `json:"metadataId"`
	URI      string   `json:"metadataUri"`
	Metadata Metadata `json:"metadata"`
}

// PathPrefix is the URL path documents are served under.
const PathPrefix = "/metadata/"

const idBytes = 16

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Store keeps documents as <dir>/<id>.json.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	return &Store{dir: dir, logger: logger.Named("metadata")}, nil
}

// Put writes m under a fresh 128 bit identifier and returns the URI the
// identifier resolves to under baseURL. showName is always set.
func (s *Store) Put(ctx context.Context, m Metadata, baseURL string) (*Stored, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ShowName = true

	id, err := newID()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := writeFileAtomic(s.dir, id+".json", data); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	uri := strings.TrimRight(baseURL, "/") + PathPrefix + id + ".json"
	s.logger.Info("Metadata stored",
		zap.String("metadata_id", id),
		zap.String("symbol", m.Symbol))

	return &Stored{ID: id, URI: uri, Metadata: m}, nil
}

// Get returns the document stored under id. A trailing .json is accepted.
func (s *Store) Get(ctx context.Context, id string) (*Metadata, error) {
	raw, err := s.GetRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata %s: %w", id, err)
	}
	return &m, nil
}

// GetRaw returns the stored bytes of id unchanged.
func (s *Store) GetRaw(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id = strings.TrimSuffix(id, ".json")
	if !idPattern.MatchString(id) {
		return nil, notFound()
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("failed to read metadata %s: %w", id, err)
	}
	return data, nil
}

func notFound() *apperr.Error {
	return apperr.NotFound("Metadata not found")
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate metadata id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// writeFileAtomic writes data to dir/name through a temp file and rename so
// readers never observe a partial document.
func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-"+name+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
