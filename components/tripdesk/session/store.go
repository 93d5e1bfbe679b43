package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryStore keeps tokens in memory. It counts deletions so tests can assert idempotence.
type MemoryStore struct {
	mu      sync.Mutex
	tokens  map[string]string
	deletes int
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: map[string]string{}}
}

// Load implements TokenStore.
func (m *MemoryStore) Load(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[key], nil
}

// Save implements TokenStore.
func (m *MemoryStore) Save(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	return nil
}

// Delete implements TokenStore.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	m.deletes++
	return nil
}

// Deletes returns how many times Delete ran.
func (m *MemoryStore) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

// FileStore persists tokens in a YAML map of storage key to token, shared by every area.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore builds a store backed by path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath returns ~/.config/tripdesk/session.yaml.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "tripdesk", "session.yaml"), nil
}

// Load implements TokenStore.
func (f *FileStore) Load(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, err := f.read()
	if err != nil {
		return "", err
	}
	return tokens[key], nil
}

// Save implements TokenStore.
func (f *FileStore) Save(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, err := f.read()
	if err != nil {
		return err
	}
	tokens[key] = token
	return f.write(tokens)
}

// Delete implements TokenStore. Deleting a missing key is a no-op.
func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := tokens[key]; !ok {
		return nil
	}
	delete(tokens, key)
	return f.write(tokens)
}

func (f *FileStore) read() (map[string]string, error) {
	tokens := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tokens, nil
		}
		return nil, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", f.path, err)
	}
	if tokens == nil {
		tokens = map[string]string{}
	}
	return tokens, nil
}

func (f *FileStore) write(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir %s: %w", filepath.Dir(f.path), err)
	}
	data, err := yaml.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("session: encode tokens: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", f.path, err)
	}
	return nil
}
