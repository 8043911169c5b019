// Package lab orchestrates the lifecycle of a short-lived test VM: validate
// the host, generate backend variables, drive the external provisioning
// engine, and verify the machine over SSH. All backend-specific knowledge
// stays behind the provider contract; this package only sequences the stages.
package lab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vmforge/internal/cloudinit"
	"vmforge/internal/config"
	"vmforge/internal/engine"
	"vmforge/internal/execx"
	"vmforge/internal/logging"
	"vmforge/internal/provider"
	"vmforge/internal/remote"
	"vmforge/internal/sshkey"

	"go.uber.org/zap"
)

// VarFileName is the variables artifact consumed by the provisioning engine.
const VarFileName = "vmforge.tfvars"

// UserDataFileName is the first-boot configuration rendered next to the
// variables artifact.
const UserDataFileName = "user-data"

// keyDirName holds generated SSH key pairs inside the engine directory.
const keyDirName = ".vmforge"

type engineDriver interface {
	Apply(ctx context.Context, varFile string) error
	Destroy(ctx context.Context, varFile string) error
	Output(ctx context.Context, name string) (string, error)
}

type vmConn interface {
	Run(command string) error
	Upload(localPath, remotePath string) error
	Close() error
}

// Lab sequences lifecycle operations for one configured VM.
type Lab struct {
	cfg      *config.Source
	registry *provider.Registry
	engine   engineDriver
	runner   execx.Runner
	dial     func(remote.Config) (vmConn, error)
	probes   func(client vmConn, commands []string) error
	log      *zap.Logger
}

// New creates a lab bound to the given configuration and provider registry.
func New(cfg *config.Source, registry *provider.Registry) *Lab {
	return &Lab{
		cfg:      cfg,
		registry: registry,
		engine:   engine.New(cfg.Engine.Binary, cfg.Engine.Dir),
		runner:   execx.Local{},
		dial: func(rc remote.Config) (vmConn, error) {
			return remote.Dial(rc)
		},
		probes: func(client vmConn, commands []string) error {
			return remote.RunProbes(client, commands)
		},
		log: logging.Logger(),
	}
}

// VarFile returns the path of the variables artifact for this lab.
func (l *Lab) VarFile() string {
	return filepath.Join(l.cfg.Engine.Dir, VarFileName)
}

// Providers lists the registered backend names.
func (l *Lab) Providers() []string {
	return l.registry.Names()
}

// Describe reports descriptive info for the named backend, or for the
// configured one when name is empty.
func (l *Lab) Describe(name string) (provider.Info, error) {
	if name == "" {
		name = l.cfg.Provider
	}
	p, err := l.registry.Load(name)
	if err != nil {
		return provider.Info{}, err
	}
	return p.Describe(), nil
}

// Check validates the host prerequisites for the configured backend without
// creating anything.
func (l *Lab) Check(ctx context.Context) error {
	p, err := l.registry.Load(l.cfg.Provider)
	if err != nil {
		return err
	}
	return p.ValidatePrerequisites(ctx, *l.cfg)
}

// Generate writes the variables artifact for the configured backend and
// returns its path.
func (l *Lab) Generate(ctx context.Context) (string, error) {
	p, err := l.registry.Load(l.cfg.Provider)
	if err != nil {
		return "", err
	}
	varFile := l.VarFile()
	if err := p.GenerateVariables(ctx, varFile, *l.cfg); err != nil {
		return "", err
	}
	return varFile, nil
}

// Status reports the state of the configured VM. Backends without status
// support report "unknown".
func (l *Lab) Status(ctx context.Context) (string, error) {
	p, err := l.registry.Load(l.cfg.Provider)
	if err != nil {
		return "", err
	}
	reporter, ok := p.(provider.StatusReporter)
	if !ok {
		return "unknown", nil
	}
	return reporter.Status(ctx, *l.cfg)
}

// Up provisions the VM end to end: prerequisites, variables, first-boot
// configuration, engine apply, then SSH verification probes. The first fatal
// stage aborts the run; nothing later executes.
func (l *Lab) Up(ctx context.Context) error {
	p, err := l.registry.Load(l.cfg.Provider)
	if err != nil {
		return err
	}

	l.log.Info("validating prerequisites", zap.String("provider", l.cfg.Provider))
	if err := p.ValidatePrerequisites(ctx, *l.cfg); err != nil {
		return fmt.Errorf("prerequisite validation failed: %w", err)
	}

	cfg := *l.cfg
	var keys *sshkey.KeyPair
	if cfg.SSH.PublicKey == "" {
		// Manage a dedicated key pair so the verification probes have a
		// matching private key.
		keys, err = sshkey.Generate(filepath.Join(cfg.Engine.Dir, keyDirName))
		if err == nil {
			cfg.SSH.PublicKey = keys.PublicKey
		} else {
			// Discovery of an existing ~/.ssh key still happens inside the
			// provider; only the probes need the managed pair.
			l.log.Warn("could not generate managed SSH key pair", zap.Error(err))
		}
	}

	varFile := l.VarFile()
	l.log.Info("generating variables artifact", zap.String("path", varFile))
	if err := p.GenerateVariables(ctx, varFile, cfg); err != nil {
		return fmt.Errorf("variable generation failed: %w", err)
	}

	userData := cloudinit.Data{
		Hostname:  cfg.VM.Name,
		Username:  cfg.VM.Username,
		PublicKey: cfg.SSH.PublicKey,
	}
	if userData.Username == "" {
		userData.Username = "testvm"
	}
	userDataPath := filepath.Join(cfg.Engine.Dir, UserDataFileName)
	if err := cloudinit.RenderFile(userDataPath, userData); err != nil {
		return fmt.Errorf("first-boot configuration failed: %w", err)
	}

	if err := l.engine.Apply(ctx, varFile); err != nil {
		return err
	}

	addr, err := l.engine.Output(ctx, "vm_ip")
	if err != nil {
		return fmt.Errorf("VM provisioned but its address is unknown: %w", err)
	}
	l.log.Info("VM provisioned",
		zap.String("vm_name", cfg.VM.Name),
		zap.String("address", addr))

	remote.ReconcileKnownHosts(ctx, l.runner, addr)

	if len(cfg.Checks) == 0 {
		return nil
	}
	if keys == nil {
		l.log.Warn("skipping verification probes: no managed private key for the configured public key")
		return nil
	}

	username := cfg.VM.Username
	if username == "" {
		username = "testvm"
	}
	conn, err := l.dial(remote.Config{
		Host:           addr,
		User:           username,
		PrivateKeyPath: keys.PrivateKeyPath,
		VMName:         cfg.VM.Name,
	})
	if err != nil {
		return fmt.Errorf("VM is up but unreachable over SSH: %w", err)
	}
	defer conn.Close()

	return l.probes(conn, cfg.Checks)
}

// Push uploads a local file onto the running VM over SFTP, using the managed
// key pair created during Up.
func (l *Lab) Push(ctx context.Context, localPath, remotePath string) error {
	addr, err := l.engine.Output(ctx, "vm_ip")
	if err != nil {
		return fmt.Errorf("VM address is unknown; is the VM up? %w", err)
	}

	keys, err := sshkey.Generate(filepath.Join(l.cfg.Engine.Dir, keyDirName))
	if err != nil {
		return fmt.Errorf("no managed SSH key pair: %w", err)
	}

	username := l.cfg.VM.Username
	if username == "" {
		username = "testvm"
	}
	conn, err := l.dial(remote.Config{
		Host:           addr,
		User:           username,
		PrivateKeyPath: keys.PrivateKeyPath,
		VMName:         l.cfg.VM.Name,
	})
	if err != nil {
		return fmt.Errorf("VM unreachable over SSH: %w", err)
	}
	defer conn.Close()

	return conn.Upload(localPath, remotePath)
}

// Down destroys the VM described by the current variables artifact.
func (l *Lab) Down(ctx context.Context) error {
	varFile := l.VarFile()
	if _, err := os.Stat(varFile); err != nil {
		return fmt.Errorf("no variables artifact at %s; nothing to destroy (run `vmforge up` or `vmforge generate` first)", varFile)
	}
	return l.engine.Destroy(ctx, varFile)
}
