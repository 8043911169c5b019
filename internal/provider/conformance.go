package provider

import (
	"fmt"
	"strings"
)

// Conformance verifies that a loaded candidate exposes every required
// capability. All three capabilities are probed, in a fixed order, so the
// error can name everything that is missing at once. A candidate either
// satisfies the full contract or is rejected; there is no partial acceptance.
func Conformance(name string, candidate any) (Provider, error) {
	if candidate == nil {
		return nil, fmt.Errorf("provider %q: factory returned nil", name)
	}

	var missing []string

	if _, ok := candidate.(PrerequisiteValidator); !ok {
		missing = append(missing, "ValidatePrerequisites")
	}
	if _, ok := candidate.(VariableGenerator); !ok {
		missing = append(missing, "GenerateVariables")
	}
	if _, ok := candidate.(Describer); !ok {
		missing = append(missing, "Describe")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("provider %q does not satisfy the provider contract: missing %s",
			name, strings.Join(missing, ", "))
	}

	return candidate.(Provider), nil
}
