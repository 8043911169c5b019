// Package builtin wires the shipped backends into a registry. Registration
// is explicit and happens once at startup; there is no scanning for plugins.
package builtin

import (
	"vmforge/internal/provider"
	"vmforge/internal/provider/aws"
	"vmforge/internal/provider/digitalocean"
	"vmforge/internal/provider/libvirt"
)

// Registry returns a registry holding every shipped backend.
func Registry() *provider.Registry {
	r := provider.NewRegistry()

	// Registration failures here are programming errors (duplicate or empty
	// names), not runtime conditions.
	must(r.Register(libvirt.Name, func() any { return libvirt.New() }))
	must(r.Register(aws.Name, func() any { return aws.New() }))
	must(r.Register(digitalocean.Name, func() any { return digitalocean.New() }))

	return r
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
