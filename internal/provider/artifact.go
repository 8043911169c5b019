package provider

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Vars accumulates the variables artifact for one generation run. Insertion
// order is preserved so repeated generations from the same inputs produce
// byte-identical output (modulo the audit timestamp the backend appends).
type Vars struct {
	pairs []pair
}

type pair struct {
	key   string
	value string
}

// NewVars starts an artifact tagged with the producing provider's identity.
// The tag is what lets the consuming engine select backend-specific resource
// definitions.
func NewVars(providerName string) *Vars {
	v := &Vars{}
	v.Set("provider", providerName)
	return v
}

// Set adds a string variable.
func (v *Vars) Set(key, value string) {
	v.pairs = append(v.pairs, pair{key: key, value: fmt.Sprintf("%q", value)})
}

// SetInt adds a numeric variable.
func (v *Vars) SetInt(key string, value int64) {
	v.pairs = append(v.pairs, pair{key: key, value: fmt.Sprintf("%d", value)})
}

// Render serializes the artifact as flat `key = value` assignments.
func (v *Vars) Render() []byte {
	width := 0
	for _, p := range v.pairs {
		if len(p.key) > width {
			width = len(p.key)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# Generated by vmforge. Do not edit; rerun generation to change values.\n")
	for _, p := range v.pairs {
		fmt.Fprintf(&buf, "%-*s = %s\n", width, p.key, p.value)
	}
	return buf.Bytes()
}

// WriteArtifact replaces the artifact at path with content. The write goes
// through a temp file in the same directory and a rename, so a failure
// mid-write leaves the previous artifact (or no artifact) intact, never a
// half-written one.
func WriteArtifact(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vmforge-vars-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact in %s: %v", dir, err)
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact: %v", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to chmod artifact: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close artifact: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace artifact %s: %v", path, err)
	}
	return nil
}
