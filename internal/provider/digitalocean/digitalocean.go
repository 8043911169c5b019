package digitalocean

import (
	"context"
	"fmt"
	"time"

	"vmforge/internal/config"
	"vmforge/internal/execx"
	"vmforge/internal/logging"
	"vmforge/internal/provider"
	"vmforge/internal/sshkey"

	"github.com/digitalocean/godo"
	"go.uber.org/zap"
)

// Name is the registry name of this backend.
const Name = "digitalocean"

const (
	defaultRegion     = "nyc1"
	defaultImage      = "ubuntu-24-04-x64"
	defaultMemoryMB   = 2048
	defaultCPUs       = 2
	defaultDataDiskGB = 10
	defaultUsername   = "testvm"
)

// dropletLister is the slice of the godo client used for status queries.
type dropletLister interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.Droplet, *godo.Response, error)
}

// Provider targets DigitalOcean droplets through the external provisioning
// engine. The API client is only used for read-only status queries; the token
// itself never enters the variables artifact (the engine reads it from the
// environment).
type Provider struct {
	runner     execx.Runner
	keys       *sshkey.Finder
	candidates []string
	newClient  func(token string) dropletLister
	now        func() time.Time
	log        *zap.Logger
}

// New creates the droplet provider backed by the real API client.
func New() *Provider {
	return &Provider{
		runner:     execx.Local{},
		keys:       sshkey.NewFinder(),
		candidates: sshkey.DefaultCandidates(),
		newClient: func(token string) dropletLister {
			return godo.NewFromToken(token).Droplets
		},
		now: time.Now,
		log: logging.Logger(),
	}
}

// ValidatePrerequisites confirms the engine binary is installed and an API
// token is configured.
func (p *Provider) ValidatePrerequisites(ctx context.Context, cfg config.Source) error {
	engineBinary := cfg.Engine.Binary
	if engineBinary == "" {
		engineBinary = "tofu"
	}
	if _, err := p.runner.LookPath(engineBinary); err != nil {
		return fmt.Errorf("required tool %q not found in PATH: install OpenTofu or point engine.binary at your provisioning tool", engineBinary)
	}

	if cfg.DigitalOcean.Token == "" {
		return fmt.Errorf("required field digitalocean.token is missing (set it in the config file or export DIGITALOCEAN_TOKEN)")
	}

	return nil
}

// GenerateVariables produces the variables artifact for droplet resources.
func (p *Provider) GenerateVariables(ctx context.Context, outputPath string, cfg config.Source) error {
	if cfg.VM.Name == "" {
		return fmt.Errorf("required field vm.name is missing")
	}

	key, err := p.keys.Resolve(cfg.SSH.PublicKey, p.candidates)
	if err != nil {
		return err
	}

	region := cfg.DigitalOcean.Region
	if region == "" {
		region = defaultRegion
	}
	image := cfg.DigitalOcean.Image
	if image == "" {
		image = defaultImage
	}
	username := cfg.VM.Username
	if username == "" {
		username = defaultUsername
	}
	dataDisk := cfg.VM.DataDiskGB
	if dataDisk == 0 {
		dataDisk = defaultDataDiskGB
	}
	size := cfg.DigitalOcean.Size
	if size == "" {
		memory := cfg.VM.MemoryMB
		if memory == 0 {
			memory = defaultMemoryMB
		}
		cpus := cfg.VM.CPUs
		if cpus == 0 {
			cpus = defaultCPUs
		}
		size = mapSize(cpus, memory)
	}

	vars := provider.NewVars(Name)
	vars.Set("vm_name", cfg.VM.Name)
	vars.Set("vm_username", username)
	vars.SetInt("vm_data_disk_size", dataDisk)
	vars.Set("ssh_public_key", key.PublicKey)
	vars.Set("do_region", region)
	vars.Set("do_size", size)
	vars.Set("do_image", image)
	// Audit only; nothing reads this back.
	vars.Set("generated_at", p.now().UTC().Format(time.RFC3339))

	return provider.WriteArtifact(outputPath, vars.Render())
}

// Describe reports descriptive backend info.
func (p *Provider) Describe() provider.Info {
	return provider.Info{
		Name:        Name,
		Description: "DigitalOcean droplets provisioned through the external engine",
		Details: map[string]string{
			"default_region": defaultRegion,
			"default_image":  defaultImage,
			"credentials":    "API token (digitalocean.token or DIGITALOCEAN_TOKEN)",
		},
	}
}

// Status reports the droplet state for the configured VM name.
func (p *Provider) Status(ctx context.Context, cfg config.Source) (string, error) {
	if cfg.VM.Name == "" {
		return "", fmt.Errorf("required field vm.name is missing")
	}
	if cfg.DigitalOcean.Token == "" {
		return "", fmt.Errorf("required field digitalocean.token is missing (set it in the config file or export DIGITALOCEAN_TOKEN)")
	}

	droplets, _, err := p.newClient(cfg.DigitalOcean.Token).List(ctx, &godo.ListOptions{PerPage: 200})
	if err != nil {
		return "", fmt.Errorf("failed to list droplets: %v", err)
	}

	for _, droplet := range droplets {
		if droplet.Name == cfg.VM.Name {
			return droplet.Status, nil
		}
	}
	return "absent", nil
}

// mapSize picks the smallest shared-CPU slug that covers the requested
// resources.
func mapSize(cpus int, memoryMB int64) string {
	if cpus <= 1 && memoryMB <= 2048 {
		return "s-1vcpu-2gb"
	}
	if cpus <= 2 && memoryMB <= 2048 {
		return "s-2vcpu-2gb"
	}
	if cpus <= 2 && memoryMB <= 4096 {
		return "s-2vcpu-4gb"
	}
	return "s-4vcpu-8gb"
}
