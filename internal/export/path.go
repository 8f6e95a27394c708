package export

import "os"

// CSVPathEnv overrides where the demo trajectory CSV is written and where
// downstream notebook tooling looks for it.
const CSVPathEnv = "BATTMOCK_CSV_PATH"

// DefaultCSVPath is the repository-relative fallback location.
const DefaultCSVPath = "output/trajectory_demo.csv"

// ResolveCSVPath returns the trajectory CSV location: the CSVPathEnv value
// when set, DefaultCSVPath otherwise. Pure path resolution, no I/O.
func ResolveCSVPath() string {
	if v := os.Getenv(CSVPathEnv); v != "" {
		return v
	}
	return DefaultCSVPath
}
