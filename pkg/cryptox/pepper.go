package cryptox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu sync.RWMutex
	pepper   string
)

// Pepper returns the process-wide pepper mixed into every password hash.
// It is empty until LoadPepper or SetPepper has been called.
func Pepper() string {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	return pepper
}

// SetPepper replaces the pepper. Digests created under a different pepper
// stop verifying, so this is only meant for startup and tests.
func SetPepper(p string) {
	pepperMu.Lock()
	pepper = p
	pepperMu.Unlock()
}

// LoadPepper reads the pepper from file, generating and persisting a new one
// with mode 0600 when the file does not exist yet.
func LoadPepper(file string) error {
	file = filepath.Clean(file)

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		p := strings.TrimSpace(string(data))
		if p == "" {
			return fmt.Errorf("cryptox: pepper file %s is empty", file)
		}
		SetPepper(p)
		return nil

	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
			return fmt.Errorf("cryptox: create pepper dir: %w", err)
		}
		p, err := GenerateToken(keyLength)
		if err != nil {
			return err
		}
		if err := os.WriteFile(file, []byte(p), 0o600); err != nil {
			return fmt.Errorf("cryptox: write pepper: %w", err)
		}
		SetPepper(p)
		return nil

	default:
		return fmt.Errorf("cryptox: read pepper: %w", err)
	}
}
