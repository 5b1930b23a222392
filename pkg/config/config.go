// Package config parses the server's command-line configuration. Per
// spec.md §6, port is the only server setting; the one other flag,
// -verbose, only turns on per-command logging. This still goes
// through a typed Config struct (rather than a bare package-level flag
// var) to match cachemir-cachemir/pkg/config/config.go's shape for a
// single-purpose server.
package config

import (
	"flag"
	"fmt"
)

const DefaultPort = 6379

// Config is the server's resolved configuration.
type Config struct {
	Port    int
	Verbose bool
}

// Parse builds a Config from args (typically os.Args[1:]).
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("minikv-server", flag.ContinueOnError)
	port := fs.Int("port", DefaultPort, "TCP port to listen on")
	verbose := fs.Bool("verbose", false, "log every dispatched command")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg := &Config{Port: *port, Verbose: *verbose}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be in 1..65535", c.Port)
	}
	return nil
}

// Addr returns the listen address in host:port form for net.Listen / gnet.Run.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
