package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConfigCompatibility checks that a config file written for configVersion can be
// loaded by a tool at toolVersion.
//
// Rules:
//   - An empty config version is always accepted
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match
//   - The tool minor version must be at least the config minor version
//
// Examples:
//   - Tool 0.3.0, Config 0.3.0 -> OK
//   - Tool 0.4.1, Config 0.3.0 -> OK (newer tool reads older config)
//   - Tool 0.3.0, Config 0.4.0 -> ERROR (config uses newer fields)
//   - Tool 1.0.0, Config 0.3.0 -> ERROR (major differs)
func CheckConfigCompatibility(toolVersion, configVersion string) error {
	if configVersion == "" {
		return nil
	}

	toolVersion = strings.TrimPrefix(toolVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if toolVersion == "main" || configVersion == "main" {
		return nil
	}

	toolSemver, err := semver.NewVersion(toolVersion)
	if err != nil {
		return fmt.Errorf("invalid tool version '%s': %w", toolVersion, err)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	if toolSemver.Major() != configSemver.Major() {
		return fmt.Errorf("major version mismatch: tool is %d.x.x but config requires %d.x.x",
			toolSemver.Major(), configSemver.Major())
	}

	if toolSemver.Minor() < configSemver.Minor() {
		return fmt.Errorf("config requires %d.%d.x or newer but tool is %d.%d.%d",
			configSemver.Major(), configSemver.Minor(),
			toolSemver.Major(), toolSemver.Minor(), toolSemver.Patch())
	}

	return nil
}
