package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// KeyPair represents a generated SSH key pair on disk.
type KeyPair struct {
	PrivateKeyPath string
	PublicKeyPath  string
	PublicKey      string
}

// Generate writes a new ed25519 key pair under keyDir. Existing key files are
// reused rather than overwritten, so repeated runs are safe.
func Generate(keyDir string) (*KeyPair, error) {
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %v", err)
	}

	privateKeyPath := filepath.Join(keyDir, "vmforge_key")
	publicKeyPath := filepath.Join(keyDir, "vmforge_key.pub")

	if _, err := os.Stat(privateKeyPath); err == nil {
		if _, err := os.Stat(publicKeyPath); err == nil {
			publicKeyBytes, err := os.ReadFile(publicKeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read existing public key: %v", err)
			}
			return &KeyPair{
				PrivateKeyPath: privateKeyPath,
				PublicKeyPath:  publicKeyPath,
				PublicKey:      string(publicKeyBytes),
			}, nil
		}
		return nil, fmt.Errorf("private key %s exists but its public key is missing; regenerate it with `ssh-keygen -y -f %s > %s`",
			privateKeyPath, privateKeyPath, publicKeyPath)
	}

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %v", err)
	}

	block, err := ssh.MarshalPrivateKey(privateKey, "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %v", err)
	}

	if err := os.WriteFile(privateKeyPath, pem.EncodeToMemory(block), 0600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %v", err)
	}

	sshPublicKey, err := ssh.NewPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %v", err)
	}

	publicKeyString := string(ssh.MarshalAuthorizedKey(sshPublicKey))
	if err := os.WriteFile(publicKeyPath, []byte(publicKeyString), 0644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %v", err)
	}

	return &KeyPair{
		PrivateKeyPath: privateKeyPath,
		PublicKeyPath:  publicKeyPath,
		PublicKey:      publicKeyString,
	}, nil
}

// Cleanup removes the generated key files
func (kp *KeyPair) Cleanup() error {
	if err := os.Remove(kp.PrivateKeyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove private key: %v", err)
	}
	if err := os.Remove(kp.PublicKeyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove public key: %v", err)
	}
	return nil
}
