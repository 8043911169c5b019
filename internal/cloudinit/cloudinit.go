package cloudinit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const userDataTemplate = `#cloud-config
hostname: {{.Hostname}}
ssh_pwauth: no
users:
  - name: {{.Username}}
    sudo: ALL=(ALL) NOPASSWD:ALL
    shell: /bin/bash
    ssh_authorized_keys:
      - "{{.PublicKey}}"`

// Data holds the fields interpolated into the first-boot configuration. The
// template syntax itself belongs to the guest tooling; this package only
// fills in identity and key material.
type Data struct {
	Hostname  string
	Username  string
	PublicKey string
}

// Render generates first-boot user-data.
func Render(data Data) (string, error) {
	tmpl, err := template.New("user-data").Parse(userDataTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse user-data template: %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute user-data template: %v", err)
	}

	return buf.String(), nil
}

// RenderFile writes the rendered user-data to path, replacing it atomically
// so a failed render never leaves a truncated file behind.
func RenderFile(path string, data Data) error {
	content, err := Render(data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".user-data-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write user-data: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close user-data: %v", err)
	}

	return os.Rename(tmp.Name(), path)
}
