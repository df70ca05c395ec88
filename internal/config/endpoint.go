package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/wagiedev/analyzer-client-go/internal/errors"
)

// Mode selects how a client reaches its server.
type Mode int

const (
	// ModeConnect connects to an existing server. No process is owned.
	ModeConnect Mode = iota
	// ModeLaunch starts a local server and owns its process.
	ModeLaunch
)

func (m Mode) String() string {
	switch m {
	case ModeConnect:
		return "connect"
	case ModeLaunch:
		return "launch"
	default:
		return "unknown"
	}
}

// LocalHost is the host launched servers are reached on.
const LocalHost = "localhost"

// Endpoint describes where the analysis server lives.
//
// In ModeLaunch, Host is always LocalHost and LaunchArgs is the raw startup
// argument string handed to the server untouched. In ModeConnect,
// LaunchArgs is empty.
type Endpoint struct {
	Mode       Mode
	Host       string
	Port       uint16
	LaunchArgs string
}

// LaunchEndpoint returns a ModeLaunch endpoint bound to port on localhost.
func LaunchEndpoint(port uint16, launchArgs string) Endpoint {
	return Endpoint{
		Mode:       ModeLaunch,
		Host:       LocalHost,
		Port:       port,
		LaunchArgs: launchArgs,
	}
}

// Address returns the "host:port" dial address.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

func (e Endpoint) String() string {
	if e.Mode == ModeLaunch {
		return fmt.Sprintf("launch(%s, %q)", e.Address(), e.LaunchArgs)
	}

	return e.Address()
}

// Validate checks the endpoint invariants.
func (e Endpoint) Validate() error {
	if e.Port == 0 {
		return &errors.InvalidEndpointError{Input: e.Address(), Reason: "port must be in 1-65535"}
	}

	if e.Host == "" {
		return &errors.InvalidEndpointError{Input: e.Address(), Reason: "missing host"}
	}

	if e.Mode == ModeConnect && e.LaunchArgs != "" {
		return &errors.InvalidEndpointError{Input: e.Address(), Reason: "launch arguments given for a connect endpoint"}
	}

	return nil
}

// ParseEndpoint parses "host:port" into a ModeConnect endpoint.
// IPv6 hosts must be bracketed ("[::1]:12345").
func ParseEndpoint(hostPort string) (Endpoint, error) {
	input := strings.TrimSpace(hostPort)

	host, portStr, err := net.SplitHostPort(input)
	if err != nil {
		return Endpoint{}, &errors.InvalidEndpointError{Input: hostPort, Reason: "expected host:port", Err: err}
	}

	if host == "" {
		return Endpoint{}, &errors.InvalidEndpointError{Input: hostPort, Reason: "missing host"}
	}

	if strings.ContainsAny(host, " \t/") {
		return Endpoint{}, &errors.InvalidEndpointError{Input: hostPort, Reason: "host contains invalid characters"}
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, &errors.InvalidEndpointError{Input: hostPort, Reason: "port is not a number in 1-65535", Err: err}
	}

	if port == 0 {
		return Endpoint{}, &errors.InvalidEndpointError{Input: hostPort, Reason: "port must be in 1-65535"}
	}

	return Endpoint{
		Mode: ModeConnect,
		Host: host,
		Port: uint16(port),
	}, nil
}
