package tokenstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/fxamacker/cbor/v2"
)

// File is a Store persisted to a single file on disk. The whole map is
// CBOR-encoded and encrypted to an age X25519 recipient on every write.
type File struct {
	mu       sync.Mutex
	path     string
	identity *age.X25519Identity
	data     map[string]string
}

// LoadOrCreateIdentity reads the age identity at path, generating and
// writing a new one (mode 0600) if the file does not exist.
func LoadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		id, err := age.ParseX25519Identity(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("tokenstore: parse identity %s: %w", path, err)
		}
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("tokenstore: read identity %s: %w", path, err)
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("tokenstore: generate identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("tokenstore: create identity dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id.String()+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("tokenstore: write identity %s: %w", path, err)
	}
	return id, nil
}

// OpenFile loads the encrypted store at path, or starts empty if it does not exist yet.
func OpenFile(path string, identity *age.X25519Identity) (*File, error) {
	if identity == nil {
		return nil, fmt.Errorf("tokenstore: identity is required")
	}
	f := &File{path: path, identity: identity, data: make(map[string]string)}

	ciphertext, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: read %s: %w", path, err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: decrypt %s: %w", path, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: decrypt %s: %w", path, err)
	}
	if err := cbor.Unmarshal(plaintext, &f.data); err != nil {
		return nil, fmt.Errorf("tokenstore: decode %s: %w", path, err)
	}
	if f.data == nil {
		f.data = make(map[string]string)
	}
	return f, nil
}

func (f *File) Save(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	f.data[key] = value
	if err := f.persistLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, ok := f.data[key]
	if !ok {
		return nil
	}
	delete(f.data, key)
	if err := f.persistLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

func (f *File) ClearAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := maps.Clone(f.data)
	clear(f.data)
	if err := f.persistLocked(); err != nil {
		f.data = prev
		return err
	}
	return nil
}

func (f *File) Has(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

// persistLocked rewrites the file via a temp file and rename so a crash
// never leaves a truncated store behind.
func (f *File) persistLocked() error {
	plaintext, err := cbor.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("tokenstore: encode: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, f.identity.Recipient())
	if err != nil {
		return fmt.Errorf("tokenstore: encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("tokenstore: encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("tokenstore: encrypt: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("tokenstore: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: chmod: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("tokenstore: rename: %w", err)
	}
	return nil
}
