package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a Go duration string ("30s", "5m") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// LaunchFile is the launch section of a config file.
type LaunchFile struct {
	Port           uint16            `yaml:"port"`
	Args           string            `yaml:"args"`
	Binary         string            `yaml:"binary,omitempty"`
	PortFlag       string            `yaml:"port_flag,omitempty"`
	StartupTimeout Duration          `yaml:"startup_timeout,omitempty"`
	GracePeriod    Duration          `yaml:"grace_period,omitempty"`
	Shutdown       string            `yaml:"shutdown,omitempty"`
	PIDFile        string            `yaml:"pid_file,omitempty"`
	Cwd            string            `yaml:"cwd,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
}

// File models the optional YAML config file of the fl-analyze command.
//
// Exactly one of Server or Launch selects the endpoint.
type File struct {
	Server      string      `yaml:"server,omitempty"`
	Launch      *LaunchFile `yaml:"launch,omitempty"`
	Framing     string      `yaml:"framing,omitempty"`
	DialTimeout Duration    `yaml:"dial_timeout,omitempty"`
	IOTimeout   Duration    `yaml:"io_timeout,omitempty"`
	LogLevel    string      `yaml:"log_level,omitempty"`
}

// LoadFile reads and decodes a config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &f, nil
}

// Endpoint resolves the endpoint described by the file.
func (f *File) Endpoint() (Endpoint, error) {
	switch {
	case f.Server != "" && f.Launch != nil:
		return Endpoint{}, fmt.Errorf("config sets both server and launch")
	case f.Server != "":
		return ParseEndpoint(f.Server)
	case f.Launch != nil:
		ep := LaunchEndpoint(f.Launch.Port, f.Launch.Args)

		return ep, ep.Validate()
	default:
		return Endpoint{}, fmt.Errorf("config sets neither server nor launch")
	}
}

// Apply copies the file's settings onto o. Unset fields leave o untouched.
func (f *File) Apply(o *Options) error {
	if f.Framing != "" {
		framing, err := ParseFraming(f.Framing)
		if err != nil {
			return err
		}

		o.Framing = framing
	}

	if f.DialTimeout > 0 {
		o.DialTimeout = time.Duration(f.DialTimeout)
	}

	if f.IOTimeout > 0 {
		o.IOTimeout = time.Duration(f.IOTimeout)
	}

	l := f.Launch
	if l == nil {
		return nil
	}

	if l.Binary != "" {
		o.ServerPath = l.Binary
	}

	if l.PortFlag != "" {
		o.PortFlag = l.PortFlag
	}

	if l.StartupTimeout > 0 {
		o.StartupTimeout = time.Duration(l.StartupTimeout)
	}

	if l.GracePeriod > 0 {
		o.GracePeriod = time.Duration(l.GracePeriod)
	}

	if l.Shutdown != "" {
		policy, err := ParseShutdownPolicy(l.Shutdown)
		if err != nil {
			return err
		}

		o.ShutdownPolicy = policy
	}

	if l.PIDFile != "" {
		o.PIDFile = l.PIDFile
	}

	if l.Cwd != "" {
		o.Cwd = l.Cwd
	}

	if len(l.Env) > 0 {
		o.Env = l.Env
	}

	return nil
}
