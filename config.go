package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relaygo/relay-test-harness/relaytests"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const configFileEnvVar = "RELAY_CONFIG"

// settings are the values that can come from the configuration file or the environment.
type settings struct {
	Token       string        `yaml:"token" env:"RELAY_TOKEN"`
	Socket      string        `yaml:"socket" env:"RELAY_SOCKET"`
	Binary      string        `yaml:"binary" env:"RELAY_BIN"`
	Tool        string        `yaml:"tool" env:"RELAY_TOOL"`
	ReadTimeout time.Duration `yaml:"readTimeout" env:"RELAY_READ_TIMEOUT"`
	ExitTimeout time.Duration `yaml:"exitTimeout" env:"RELAY_EXIT_TIMEOUT"`
}

// loadConfig builds the suite configuration from, in increasing order of precedence, the
// built-in defaults, the configuration file, the environment, and the command line. If
// environ is nil the process environment is used.
func loadConfig(params commandParams, environ map[string]string, version string) (relaytests.Config, error) {
	config := relaytests.DefaultConfig()
	s := settings{
		Token:       config.Token,
		Socket:      config.SocketPath,
		Binary:      config.Binary,
		Tool:        config.Tool,
		ReadTimeout: config.ReadTimeout,
		ExitTimeout: config.ExitTimeout,
	}

	configFile := params.configFile
	if configFile == "" {
		configFile = lookupEnv(environ, configFileEnvVar)
	}
	if configFile != "" {
		if err := readConfigFile(configFile, &s); err != nil {
			return config, err
		}
	}

	if err := parseEnv(&s, environ); err != nil {
		return config, fmt.Errorf("invalid environment configuration: %w", err)
	}

	if params.isSet("token") {
		s.Token = params.token
	}
	if params.isSet("socket") {
		s.Socket = params.socket
	}
	if params.isSet("binary") {
		s.Binary = params.binary
	}
	if params.isSet("tool") {
		s.Tool = params.tool
	}
	if params.isSet("read-timeout") {
		s.ReadTimeout = params.readTimeout
	}
	if params.isSet("exit-timeout") {
		s.ExitTimeout = params.exitTimeout
	}

	if err := s.validate(); err != nil {
		return config, err
	}
	config.Token = s.Token
	config.SocketPath = s.Socket
	config.Binary = s.Binary
	config.Tool = s.Tool
	config.ReadTimeout = s.ReadTimeout
	config.ExitTimeout = s.ExitTimeout
	config.Probes = params.probes
	config.ClientVersion = version
	return config, nil
}

func readConfigFile(path string, s *settings) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot read configuration file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return nil
}

func (s settings) validate() error {
	var errs []error
	if s.Tool == "" {
		errs = append(errs, errors.New("tool name must not be empty"))
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read timeout must be positive, got %s", s.ReadTimeout))
	}
	if s.ExitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("exit timeout must be positive, got %s", s.ExitTimeout))
	}
	return errors.Join(errs...)
}

func parseEnv(s *settings, environ map[string]string) error {
	if environ == nil {
		return env.Parse(s)
	}
	return env.ParseWithOptions(s, env.Options{Environment: environ})
}

func lookupEnv(environ map[string]string, name string) string {
	if environ == nil {
		return os.Getenv(name)
	}
	return environ[name]
}
