package libvirt

import (
	"context"
	"fmt"
	"strings"

	"vmforge/internal/config"

	"go.uber.org/zap"
)

// ValidatePrerequisites confirms this host can run KVM guests before any
// resource is created. The checks keep their individual failure modes: a
// missing tool or unreachable libvirtd aborts, missing acceleration only
// degrades performance, and an inactive network is started in place.
func (p *Provider) ValidatePrerequisites(ctx context.Context, cfg config.Source) error {
	engineBinary := cfg.Engine.Binary
	if engineBinary == "" {
		engineBinary = "tofu"
	}

	binaries := []struct {
		name string
		hint string
	}{
		{"virsh", "install the libvirt client tools (e.g. `apt install libvirt-clients`)"},
		{"qemu-img", "install the qemu disk utilities (e.g. `apt install qemu-utils`)"},
		{engineBinary, "install OpenTofu or point engine.binary at your provisioning tool"},
	}
	for _, bin := range binaries {
		if _, err := p.runner.LookPath(bin.name); err != nil {
			return fmt.Errorf("required tool %q not found in PATH: %s", bin.name, bin.hint)
		}
	}

	if _, err := p.runner.Run(ctx, "virsh", "--connect", libvirtURI, "version"); err != nil {
		return fmt.Errorf("cannot talk to libvirt at %s: %v; make sure libvirtd is running and your user is in the libvirt group", libvirtURI, err)
	}

	// Missing acceleration is survivable, guests just run emulated.
	if !p.exists("/dev/kvm") {
		p.log.Warn("KVM acceleration unavailable, VMs will run fully emulated and will be slow",
			zap.String("missing", "/dev/kvm"))
	}

	return p.checkNetwork(ctx, cfg)
}

// checkNetwork verifies the libvirt network the VM will attach to is active.
// An inactive network is the one recoverable condition here: under the
// default "remediate" policy it is started once, and a failed start degrades
// to a warning. "strict" makes the failed start fatal, "warn" never attempts
// a start.
func (p *Provider) checkNetwork(ctx context.Context, cfg config.Source) error {
	network := cfg.Libvirt.Network
	if network == "" {
		network = defaultNetwork
	}

	out, err := p.runner.Run(ctx, "virsh", "--connect", libvirtURI, "net-info", network)
	if err != nil {
		return fmt.Errorf("libvirt network %q is not defined: %v; define it with `virsh net-define` or set libvirt.network", network, err)
	}

	if networkActive(out) {
		return nil
	}

	policy := cfg.Libvirt.NetworkPolicy
	if policy == "" {
		policy = "remediate"
	}

	if policy == "warn" {
		p.log.Warn("libvirt network is inactive, provisioning may fail",
			zap.String("network", network))
		return nil
	}

	if _, err := p.runner.Run(ctx, "virsh", "--connect", libvirtURI, "net-start", network); err != nil {
		if policy == "strict" {
			return fmt.Errorf("libvirt network %q is inactive and could not be started: %v", network, err)
		}
		p.log.Warn("libvirt network is inactive and could not be started, continuing anyway",
			zap.String("network", network),
			zap.Error(err))
		return nil
	}

	p.log.Warn("libvirt network was inactive and has been started",
		zap.String("network", network))
	return nil
}

// networkActive parses `virsh net-info` output.
func networkActive(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Active:") {
			return strings.Contains(line, "yes")
		}
	}
	return false
}
