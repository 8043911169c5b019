package libvirt

import (
	"context"
	"fmt"
	"time"

	"vmforge/internal/config"
	"vmforge/internal/provider"
)

// GenerateVariables produces the variables artifact the provisioning engine
// consumes for libvirt resources. Required fields are validated and the SSH
// key resolved before anything touches the output path, so a failed
// generation never leaves a partial artifact.
func (p *Provider) GenerateVariables(ctx context.Context, outputPath string, cfg config.Source) error {
	if cfg.VM.Name == "" {
		return fmt.Errorf("required field vm.name is missing")
	}

	key, err := p.keys.Resolve(cfg.SSH.PublicKey, p.candidates)
	if err != nil {
		return err
	}

	memory := cfg.VM.MemoryMB
	if memory == 0 {
		memory = defaultMemoryMB
	}
	cpus := cfg.VM.CPUs
	if cpus == 0 {
		cpus = defaultCPUs
	}
	disk := cfg.VM.DiskGB
	if disk == 0 {
		disk = defaultDiskGB
	}
	dataDisk := cfg.VM.DataDiskGB
	if dataDisk == 0 {
		dataDisk = defaultDataDiskGB
	}
	username := cfg.VM.Username
	if username == "" {
		username = defaultUsername
	}
	imageURL := cfg.Libvirt.ImageURL
	if imageURL == "" {
		imageURL = defaultImageURL
	}
	pool := cfg.Libvirt.Pool
	if pool == "" {
		pool = defaultPool
	}
	network := cfg.Libvirt.Network
	if network == "" {
		network = defaultNetwork
	}

	vars := provider.NewVars(Name)
	vars.Set("vm_name", cfg.VM.Name)
	vars.Set("vm_username", username)
	vars.SetInt("vm_memory", memory)
	vars.SetInt("vm_cpus", int64(cpus))
	vars.SetInt("vm_disk_size", disk)
	vars.SetInt("vm_data_disk_size", dataDisk)
	vars.Set("ssh_public_key", key.PublicKey)
	vars.Set("base_image_url", imageURL)
	vars.Set("libvirt_pool", pool)
	vars.Set("libvirt_network", network)
	vars.Set("libvirt_uri", libvirtURI)
	// Audit only; nothing reads this back.
	vars.Set("generated_at", p.now().UTC().Format(time.RFC3339))

	return provider.WriteArtifact(outputPath, vars.Render())
}
