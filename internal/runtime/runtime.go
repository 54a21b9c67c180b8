// Package runtime wraps the container runtime API consumed by the
// provisioner: isolated virtual networks, node containers with
// statically-addressed interface attachments, and in-container command
// execution for the control-plane channel.
package runtime

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the named network or container does not
// exist. Deletion paths treat it as success so cleanup is safe to re-run.
var ErrNotFound = errors.New("resource not found")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NetworkOpts declares an isolated bridge network.
type NetworkOpts struct {
	Name    string
	Subnet  string
	Gateway string
	MTU     int
	Labels  map[string]string
}

// NetworkInfo is the observed state of a runtime network.
type NetworkInfo struct {
	ID      string
	Name    string
	Subnet  string
	Gateway string
	MTU     int
	Labels  map[string]string
}

// ContainerOpts declares a node container. The primary endpoint is attached
// at creation; secondary endpoints are connected afterwards, each with its
// static address.
type ContainerOpts struct {
	Name     string
	Image    string
	Hostname string
	Labels   map[string]string

	// Primary network endpoint.
	Network string
	Address string

	// Engine containers need elevated network privileges and unlimited
	// locked memory for their dataplane.
	CapAdd           []string
	MemlockUnlimited bool
}

// ContainerInfo is the observed state of a node container.
type ContainerInfo struct {
	ID         string
	Name       string
	Running    bool
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Labels     map[string]string
}

// ExecResult carries the combined output and exit code of an in-container
// command.
type ExecResult struct {
	Output   string
	ExitCode int
}

// Client is the container-runtime API consumed by provisioning, health
// checking, and validation. Implemented by DockerClient; tests use
// MockClient.
type Client interface {
	// Ping verifies the runtime is reachable.
	Ping(ctx context.Context) error

	CreateNetwork(ctx context.Context, opts NetworkOpts) (string, error)
	// InspectNetwork returns ErrNotFound if no network has that name.
	InspectNetwork(ctx context.Context, name string) (*NetworkInfo, error)
	// RemoveNetwork returns ErrNotFound if no network has that name.
	RemoveNetwork(ctx context.Context, name string) error

	CreateContainer(ctx context.Context, opts ContainerOpts) (string, error)
	// ConnectNetwork attaches the container to a network with a static
	// address.
	ConnectNetwork(ctx context.Context, network, container, address string) error
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string, timeout time.Duration) error
	// RemoveContainer force-removes; returns ErrNotFound for absent names.
	RemoveContainer(ctx context.Context, name string) error
	// InspectContainer returns ErrNotFound for absent names.
	InspectContainer(ctx context.Context, name string) (*ContainerInfo, error)

	// Exec runs a command inside the container and returns its combined
	// output and exit code. This is the transport under the control-plane
	// channel.
	Exec(ctx context.Context, container string, cmd []string) (*ExecResult, error)
}
