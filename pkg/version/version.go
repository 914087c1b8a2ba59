package version

import "fmt"

// PlannerVersion is the release the binary was built from.
var PlannerVersion string

// GitCommit indicates which git commit the binary was built from
var GitCommit string

// String returns a pretty string concatenation of PlannerVersion and GitCommit
func String() string {
	return fmt.Sprintf("satplan version: %s\n     git commit: %s\n", orUnknown(PlannerVersion), orUnknown(GitCommit))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
