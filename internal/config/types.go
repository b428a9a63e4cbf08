package config

// Settings is the resolved runtime configuration. Values come from
// defaults, then the global config file, then the project config file,
// then command-line flags, each layer overriding the previous one.
type Settings struct {
	// Threads is the number of worker goroutines per process.
	Threads int `json:"threads"`

	// Instances is the number of extra worker processes the run
	// command spawns alongside itself.
	Instances int `json:"instances"`

	// RetrieveCount is how many pending tasks a worker claims per
	// locked plan transaction.
	RetrieveCount int `json:"retrieve_count"`

	// WorkDir is the base directory resolved against relative input
	// and output paths. Empty means the scenario file's directory.
	WorkDir string `json:"work_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
}

// fileSettings mirrors Settings with pointer fields so a config file
// only overrides the keys it actually sets.
type fileSettings struct {
	Threads       *int    `json:"threads"`
	Instances     *int    `json:"instances"`
	RetrieveCount *int    `json:"retrieve_count"`
	WorkDir       *string `json:"work_dir"`
	LogLevel      *string `json:"log_level"`
}
