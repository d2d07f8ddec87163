package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckRequirement reports whether toolVersion satisfies the semver
// constraint a config file declares (e.g. ">= 1.2, < 2").
//
// The check is skipped when the constraint is empty or the tool is a
// development build ("main").
func CheckRequirement(toolVersion string, constraint string) error {
	toolVersion = strings.TrimPrefix(toolVersion, "v")
	constraint = strings.TrimSpace(constraint)

	if constraint == "" || toolVersion == "main" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint '%s': %w", constraint, err)
	}

	v, err := semver.NewVersion(toolVersion)
	if err != nil {
		return fmt.Errorf("invalid tool version '%s': %w", toolVersion, err)
	}

	if ok, errs := c.Validate(v); !ok {
		reasons := make([]string, 0, len(errs))
		for _, e := range errs {
			reasons = append(reasons, e.Error())
		}

		return fmt.Errorf("krxfetch %s does not satisfy '%s': %s", v, constraint, strings.Join(reasons, "; "))
	}

	return nil
}
