package libvirt

import (
	"context"
	"fmt"
	"os"
	"time"

	"vmforge/internal/config"
	"vmforge/internal/execx"
	"vmforge/internal/logging"
	"vmforge/internal/provider"
	"vmforge/internal/sshkey"

	"go.uber.org/zap"
)

// Name is the registry name of this backend.
const Name = "libvirt"

const libvirtURI = "qemu:///system"

// defaultImageURL is the base cloud image used when libvirt.image_url is not
// set. Pinned to a release URL so generation stays deterministic.
const defaultImageURL = "https://cloud-images.ubuntu.com/noble/current/noble-server-cloudimg-amd64.img"

// Documented defaults for optional VM fields.
const (
	defaultMemoryMB   = 2048
	defaultCPUs       = 2
	defaultDiskGB     = 20
	defaultDataDiskGB = 10
	defaultUsername   = "testvm"
	defaultPool       = "default"
	defaultNetwork    = "default"
)

// Provider manages local KVM virtual machines through libvirt. All host
// interaction goes through injectable seams so the decision logic is testable
// without virsh.
type Provider struct {
	runner     execx.Runner
	keys       *sshkey.Finder
	candidates []string
	exists     func(path string) bool
	now        func() time.Time
	log        *zap.Logger
}

// New creates the libvirt provider backed by the real host.
func New() *Provider {
	return &Provider{
		runner:     execx.Local{},
		keys:       sshkey.NewFinder(),
		candidates: sshkey.DefaultCandidates(),
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		now: time.Now,
		log: logging.Logger(),
	}
}

// Describe reports descriptive backend info.
func (p *Provider) Describe() provider.Info {
	return provider.Info{
		Name:        Name,
		Description: "Local KVM virtual machines managed through libvirt",
		Details: map[string]string{
			"uri":           libvirtURI,
			"default_image": defaultImageURL,
			"acceleration":  "kvm",
		},
	}
}

// Status reports the libvirt domain state for the configured VM name.
func (p *Provider) Status(ctx context.Context, cfg config.Source) (string, error) {
	if cfg.VM.Name == "" {
		return "", fmt.Errorf("required field vm.name is missing")
	}

	out, err := p.runner.Run(ctx, "virsh", "--connect", libvirtURI, "domstate", cfg.VM.Name)
	if err != nil {
		return "", fmt.Errorf("failed to query domain %q: %v", cfg.VM.Name, err)
	}
	return out, nil
}
