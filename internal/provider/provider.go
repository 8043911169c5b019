package provider

import (
	"context"

	"vmforge/internal/config"
)

// Info describes a backend for humans.
type Info struct {
	Name        string
	Description string
	// Details are backend-specific facts worth surfacing (connection URI,
	// default image, credential source).
	Details map[string]string
}

// PrerequisiteValidator confirms the host environment can support a backend
// before any resource is created. Non-fatal degradations are logged, not
// returned.
type PrerequisiteValidator interface {
	ValidatePrerequisites(ctx context.Context, cfg config.Source) error
}

// VariableGenerator produces the backend-specific variables artifact at
// outputPath, consumed by the external provisioning engine. The artifact is
// replaced whole on every call; a failed generation must leave the previous
// artifact (or no artifact) in place.
type VariableGenerator interface {
	GenerateVariables(ctx context.Context, outputPath string, cfg config.Source) error
}

// Describer reports descriptive backend info.
type Describer interface {
	Describe() Info
}

// Provider is the full contract a backend must satisfy before the
// orchestrator will use it. Conformance is checked once, at load time.
type Provider interface {
	PrerequisiteValidator
	VariableGenerator
	Describer
}

// StatusReporter is an optional capability, outside the required contract.
// Backends that can cheaply query the state of a named machine implement it;
// the orchestrator reports "unknown" for the rest.
type StatusReporter interface {
	Status(ctx context.Context, cfg config.Source) (string, error)
}
