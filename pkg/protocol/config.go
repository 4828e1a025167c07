package protocol

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/Strata/pkg/consts"
	serrors "github.com/turtacn/Strata/pkg/errors"
)

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if lvl := os.Getenv(consts.EnvLogLevel); lvl != "" {
		c.Observability.LogLevel = lvl
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = consts.DriverNone
	}
	if c.Operators.Default == "" {
		c.Operators.Default = consts.OperatorWorst
	}
	if c.Relay.Enabled && c.Relay.SocketPath == "" {
		c.Relay.SocketPath = consts.DefaultSocketPath
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("invalid observability.log_level: %s", c.Observability.LogLevel)
	}

	switch c.Observability.LogFormat {
	case "json", "text":
	default:
		return invalid("invalid observability.log_format: %s", c.Observability.LogFormat)
	}

	switch c.Persistence.Driver {
	case consts.DriverNone:
	case consts.DriverFile, consts.DriverSQLite:
		if c.Persistence.Path == "" {
			return invalid("persistence.path is required for driver %s", c.Persistence.Driver)
		}
	default:
		return invalid("invalid persistence.driver: %s", c.Persistence.Driver)
	}

	if c.Tree.Name == "" && c.Tree.Kind == "" {
		// A config without a tree is valid for inspection commands.
		return nil
	}
	names := make(map[string]bool)
	return c.Tree.validate("tree", names)
}

func (n *Node) validate(path string, names map[string]bool) error {
	if n.Name == "" {
		return invalid("%s: name is required", path)
	}
	if names[n.Name] {
		return invalid("%s: duplicate node name %q", path, n.Name)
	}
	names[n.Name] = true

	switch n.Kind {
	case consts.KindSequential, consts.KindParallel, consts.KindServices:
		for i := range n.Children {
			if err := n.Children[i].validate(fmt.Sprintf("%s.%s", path, n.Name), names); err != nil {
				return err
			}
		}
	case consts.KindExec:
		if len(n.Command) == 0 {
			return invalid("%s.%s: exec node needs a command", path, n.Name)
		}
		if len(n.Children) > 0 {
			return invalid("%s.%s: exec node cannot have children", path, n.Name)
		}
	case consts.KindService:
		if len(n.Children) > 0 {
			return invalid("%s.%s: service node cannot have children", path, n.Name)
		}
	default:
		return invalid("%s.%s: unknown kind %q", path, n.Name, n.Kind)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return serrors.Newf(serrors.ErrCodeConfigInvalid, "Config", format, args...)
}

// Personal.AI order the ending
