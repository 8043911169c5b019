package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Source is the full parameter set handed to a provider for one run. It is
// built once, here, from the config file and the process environment; no
// other package reads ambient environment variables. Providers receive it by
// value and never mutate it.
type Source struct {
	// Provider selects the backend by registry name.
	Provider string `yaml:"provider"`

	VM     VM     `yaml:"vm"`
	SSH    SSH    `yaml:"ssh"`
	Engine Engine `yaml:"engine"`

	// Provider-namespaced sections. Only the section matching Provider is
	// consulted during a run.
	Libvirt      Libvirt      `yaml:"libvirt"`
	AWS          AWS          `yaml:"aws"`
	DigitalOcean DigitalOcean `yaml:"digitalocean"`

	// Checks are commands run on the VM once it is reachable, to verify the
	// deployed service. Each probe is independent of the others.
	Checks []string `yaml:"checks"`
}

// VM holds provider-agnostic machine parameters. Zero values mean "use the
// backend's documented default".
type VM struct {
	Name       string `yaml:"name"`
	MemoryMB   int64  `yaml:"memory_mb"`
	CPUs       int    `yaml:"cpus"`
	DiskGB     int64  `yaml:"disk_gb"`
	DataDiskGB int64  `yaml:"data_disk_gb"`
	Username   string `yaml:"username"`
}

// SSH carries explicit public key material. When set, key discovery on the
// local filesystem is skipped entirely.
type SSH struct {
	PublicKey string `yaml:"public_key"`
}

// Engine configures the external provisioning tool invocation.
type Engine struct {
	Binary string `yaml:"binary"`
	Dir    string `yaml:"dir"`
}

// Libvirt holds parameters only the libvirt backend understands.
type Libvirt struct {
	// ImageURL overrides the base cloud image downloaded for the boot disk.
	ImageURL string `yaml:"image_url"`
	Pool     string `yaml:"pool"`
	Network  string `yaml:"network"`
	// NetworkPolicy controls what happens when the libvirt network is
	// inactive: "remediate" starts it and degrades to a warning on failure,
	// "strict" makes a failed start fatal, "warn" never attempts a start.
	NetworkPolicy string `yaml:"network_policy"`
	// ImageCacheDir is where prefetched base images are stored.
	ImageCacheDir string `yaml:"image_cache_dir"`
}

// AWS holds parameters only the EC2 backend understands.
type AWS struct {
	Region       string `yaml:"region"`
	AMI          string `yaml:"ami"`
	InstanceType string `yaml:"instance_type"`
	Profile      string `yaml:"profile"`
}

// DigitalOcean holds parameters only the droplet backend understands.
type DigitalOcean struct {
	Token  string `yaml:"token"`
	Region string `yaml:"region"`
	Size   string `yaml:"size"`
	Image  string `yaml:"image"`
}

// Load loads the Source configuration from a YAML file. A missing file is not
// an error; the file only overrides defaults. Environment variables are
// expanded in string fields and a few well-known variables override the file.
func Load(path string) (*Source, error) {
	cfg := &Source{
		Provider: "libvirt",
		Engine: Engine{
			Binary: "tofu",
			Dir:    ".",
		},
		Libvirt: Libvirt{
			NetworkPolicy: "remediate",
		},
	}

	if path == "" {
		path = "vmforge.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	// Expand environment variables in string fields
	cfg.Provider = os.ExpandEnv(cfg.Provider)
	cfg.VM.Name = os.ExpandEnv(cfg.VM.Name)
	cfg.VM.Username = os.ExpandEnv(cfg.VM.Username)
	cfg.SSH.PublicKey = os.ExpandEnv(cfg.SSH.PublicKey)
	cfg.Engine.Binary = os.ExpandEnv(cfg.Engine.Binary)
	cfg.Engine.Dir = os.ExpandEnv(cfg.Engine.Dir)
	cfg.Libvirt.ImageURL = os.ExpandEnv(cfg.Libvirt.ImageURL)
	cfg.Libvirt.ImageCacheDir = os.ExpandEnv(cfg.Libvirt.ImageCacheDir)
	cfg.AWS.Region = os.ExpandEnv(cfg.AWS.Region)
	cfg.AWS.Profile = os.ExpandEnv(cfg.AWS.Profile)
	cfg.DigitalOcean.Token = os.ExpandEnv(cfg.DigitalOcean.Token)

	for i, cmd := range cfg.Checks {
		cfg.Checks[i] = os.ExpandEnv(cmd)
	}

	// Override with environment variables if set
	if p := os.Getenv("VMFORGE_PROVIDER"); p != "" {
		cfg.Provider = p
	}

	if name := os.Getenv("VMFORGE_VM_NAME"); name != "" {
		cfg.VM.Name = name
	}

	if token := os.Getenv("DIGITALOCEAN_TOKEN"); token != "" {
		cfg.DigitalOcean.Token = token
	}

	// Validate required parameters
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider is required (set provider in config file or VMFORGE_PROVIDER environment variable)")
	}

	switch cfg.Libvirt.NetworkPolicy {
	case "remediate", "strict", "warn":
	default:
		return nil, fmt.Errorf("invalid libvirt.network_policy %q (must be remediate, strict or warn)", cfg.Libvirt.NetworkPolicy)
	}

	return cfg, nil
}
