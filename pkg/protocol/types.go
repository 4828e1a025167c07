package protocol

// Config represents the root configuration of a Strata run.
type Config struct {
	Version       string              `yaml:"version"`
	Observability ObservabilityConfig `yaml:"observability"`
	Persistence   PersistenceConfig   `yaml:"persistence"`
	Operators     OperatorsConfig     `yaml:"operators"`
	Relay         RelayConfig         `yaml:"relay"`
	Tree          Node                `yaml:"tree"`
}

type ObservabilityConfig struct {
	MetricsPort string `yaml:"metrics_port"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json or text
}

type PersistenceConfig struct {
	Driver string `yaml:"driver"` // none, file or sqlite
	Path   string `yaml:"path"`   // directory for file, database path for sqlite
}

// OperatorsConfig selects the default aggregation and adds alias names
// for registry entries.
type OperatorsConfig struct {
	Default string            `yaml:"default"`
	Aliases map[string]string `yaml:"aliases"`
}

type RelayConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

// Node is one entry of the job tree.
type Node struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Operator string   `yaml:"operator"` // composites only
	Command  []string `yaml:"command"`  // exec only
	StopTime string   `yaml:"stop_timeout"`
	Children []Node   `yaml:"children"`
}

// Personal.AI order the ending
