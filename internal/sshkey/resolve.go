package sshkey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolution is the outcome of public key resolution.
type Resolution struct {
	// PublicKey is the authorized-keys line handed to the backend.
	PublicKey string
	// Path is the file that supplied the key, empty when the key material
	// was given explicitly.
	Path string
}

// Finder resolves SSH public key material. The filesystem probes are
// injectable so the candidate walk can be tested without a real home
// directory, and so tests can assert that explicit material causes no
// filesystem access at all.
type Finder struct {
	Exists   func(path string) bool
	ReadFile func(path string) ([]byte, error)
}

// NewFinder returns a Finder backed by the real filesystem.
func NewFinder() *Finder {
	return &Finder{
		Exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		ReadFile: os.ReadFile,
	}
}

// DefaultCandidates is the fixed, ordered list of public key locations
// searched when no explicit key material is supplied. The order is part of
// the protocol: the first existing path wins and later paths are never
// consulted.
func DefaultCandidates() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519.pub"),
		filepath.Join(home, ".ssh", "id_rsa.pub"),
		filepath.Join(home, ".ssh", "id_ecdsa.pub"),
	}
}

// Resolve returns the public key material for a run. Explicit material is
// used verbatim and skips the candidate walk entirely. Otherwise the
// candidates are checked in order and the first existing file supplies the
// key. When nothing is found the error explains why a key is needed, how to
// create one, and every path that was checked.
func (f *Finder) Resolve(explicit string, candidates []string) (Resolution, error) {
	if explicit != "" {
		return Resolution{PublicKey: explicit}, nil
	}

	for _, path := range candidates {
		if !f.Exists(path) {
			continue
		}
		data, err := f.ReadFile(path)
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to read SSH public key %s: %w", path, err)
		}
		return Resolution{
			PublicKey: strings.TrimSpace(string(data)),
			Path:      path,
		}, nil
	}

	return Resolution{}, fmt.Errorf(
		"an SSH public key is required to log into the created VM, but none was configured and no key was found on this machine; "+
			"generate one with `ssh-keygen -t ed25519` (or run `vmforge keygen`) and retry; checked paths: %s",
		strings.Join(candidates, ", "))
}
