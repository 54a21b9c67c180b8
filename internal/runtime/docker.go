package runtime

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	docker "github.com/fsouza/go-dockerclient"
)

// mtuOption is the bridge-driver option carrying the network MTU.
const mtuOption = "com.docker.network.driver.mtu"

// DockerClient implements Client against the Docker Engine API.
type DockerClient struct {
	client *docker.Client
}

// NewDockerClient connects using the standard DOCKER_HOST environment
// conventions.
func NewDockerClient() (*DockerClient, error) {
	client, err := docker.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerClient{client: client}, nil
}

// Ping implements Client.
func (c *DockerClient) Ping(ctx context.Context) error {
	return c.client.PingWithContext(ctx)
}

// CreateNetwork implements Client.
func (c *DockerClient) CreateNetwork(ctx context.Context, opts NetworkOpts) (string, error) {
	createOpts := docker.CreateNetworkOptions{
		Context: ctx,
		Name:    opts.Name,
		Driver:  "bridge",
		IPAM: &docker.IPAMOptions{
			Driver: "default",
			Config: []docker.IPAMConfig{{
				Subnet:  opts.Subnet,
				Gateway: opts.Gateway,
			}},
		},
		Labels: opts.Labels,
	}
	if opts.MTU > 0 {
		createOpts.Options = map[string]interface{}{
			mtuOption: strconv.Itoa(opts.MTU),
		}
	}

	network, err := c.client.CreateNetwork(createOpts)
	if err != nil {
		return "", fmt.Errorf("failed to create network %q: %w", opts.Name, err)
	}
	return network.ID, nil
}

// InspectNetwork implements Client.
func (c *DockerClient) InspectNetwork(_ context.Context, name string) (*NetworkInfo, error) {
	network, err := c.client.NetworkInfo(name)
	if err != nil {
		if _, ok := err.(*docker.NoSuchNetwork); ok {
			return nil, fmt.Errorf("network %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to inspect network %q: %w", name, err)
	}

	info := &NetworkInfo{
		ID:     network.ID,
		Name:   network.Name,
		Labels: network.Labels,
	}
	if len(network.IPAM.Config) > 0 {
		info.Subnet = network.IPAM.Config[0].Subnet
		info.Gateway = network.IPAM.Config[0].Gateway
	}
	if raw, ok := network.Options[mtuOption]; ok {
		if mtu, err := strconv.Atoi(raw); err == nil {
			info.MTU = mtu
		}
	}
	return info, nil
}

// RemoveNetwork implements Client.
func (c *DockerClient) RemoveNetwork(ctx context.Context, name string) error {
	info, err := c.InspectNetwork(ctx, name)
	if err != nil {
		return err
	}
	if err := c.client.RemoveNetwork(info.ID); err != nil {
		if _, ok := err.(*docker.NoSuchNetwork); ok {
			return fmt.Errorf("network %q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to remove network %q: %w", name, err)
	}
	return nil
}

// CreateContainer implements Client.
func (c *DockerClient) CreateContainer(ctx context.Context, opts ContainerOpts) (string, error) {
	hostConfig := &docker.HostConfig{
		CapAdd: opts.CapAdd,
	}
	if opts.MemlockUnlimited {
		hostConfig.Ulimits = []docker.ULimit{{Name: "memlock", Soft: -1, Hard: -1}}
	}

	createOpts := docker.CreateContainerOptions{
		Context: ctx,
		Name:    opts.Name,
		Config: &docker.Config{
			Image:    opts.Image,
			Hostname: opts.Hostname,
			Labels:   opts.Labels,
		},
		HostConfig: hostConfig,
	}
	if opts.Network != "" {
		createOpts.NetworkingConfig = &docker.NetworkingConfig{
			EndpointsConfig: map[string]*docker.EndpointConfig{
				opts.Network: {
					IPAMConfig: &docker.EndpointIPAMConfig{IPv4Address: opts.Address},
				},
			},
		}
	}

	container, err := c.client.CreateContainer(createOpts)
	if err != nil {
		return "", fmt.Errorf("failed to create container %q: %w", opts.Name, err)
	}
	return container.ID, nil
}

// ConnectNetwork implements Client.
func (c *DockerClient) ConnectNetwork(ctx context.Context, network, container, address string) error {
	err := c.client.ConnectNetwork(network, docker.NetworkConnectionOptions{
		Context:   ctx,
		Container: container,
		EndpointConfig: &docker.EndpointConfig{
			IPAMConfig: &docker.EndpointIPAMConfig{IPv4Address: address},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect %q to network %q: %w", container, network, err)
	}
	return nil
}

// StartContainer implements Client.
func (c *DockerClient) StartContainer(ctx context.Context, name string) error {
	if err := c.client.StartContainerWithContext(name, nil, ctx); err != nil {
		if _, ok := err.(*docker.ContainerAlreadyRunning); ok {
			return nil
		}
		return fmt.Errorf("failed to start container %q: %w", name, err)
	}
	return nil
}

// StopContainer implements Client.
func (c *DockerClient) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	err := c.client.StopContainerWithContext(name, uint(timeout.Seconds()), ctx)
	if err != nil {
		switch err.(type) {
		case *docker.NoSuchContainer:
			return fmt.Errorf("container %q: %w", name, ErrNotFound)
		case *docker.ContainerNotRunning:
			return nil
		}
		return fmt.Errorf("failed to stop container %q: %w", name, err)
	}
	return nil
}

// RemoveContainer implements Client.
func (c *DockerClient) RemoveContainer(ctx context.Context, name string) error {
	err := c.client.RemoveContainer(docker.RemoveContainerOptions{
		Context: ctx,
		ID:      name,
		Force:   true,
	})
	if err != nil {
		if _, ok := err.(*docker.NoSuchContainer); ok {
			return fmt.Errorf("container %q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to remove container %q: %w", name, err)
	}
	return nil
}

// InspectContainer implements Client.
func (c *DockerClient) InspectContainer(ctx context.Context, name string) (*ContainerInfo, error) {
	container, err := c.client.InspectContainerWithOptions(docker.InspectContainerOptions{
		Context: ctx,
		ID:      name,
	})
	if err != nil {
		if _, ok := err.(*docker.NoSuchContainer); ok {
			return nil, fmt.Errorf("container %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to inspect container %q: %w", name, err)
	}

	info := &ContainerInfo{
		ID:         container.ID,
		Name:       container.Name,
		Running:    container.State.Running,
		ExitCode:   container.State.ExitCode,
		StartedAt:  container.State.StartedAt,
		FinishedAt: container.State.FinishedAt,
	}
	if container.Config != nil {
		info.Labels = container.Config.Labels
	}
	return info, nil
}

// Exec implements Client. Output streams are combined: the control-plane
// protocol is textual and diagnostics belong in the same transcript.
func (c *DockerClient) Exec(ctx context.Context, container string, cmd []string) (*ExecResult, error) {
	exec, err := c.client.CreateExec(docker.CreateExecOptions{
		Context:      ctx,
		Container:    container,
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if _, ok := err.(*docker.NoSuchContainer); ok {
			return nil, fmt.Errorf("container %q: %w", container, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create exec in %q: %w", container, err)
	}

	var buf bytes.Buffer
	err = c.client.StartExec(exec.ID, docker.StartExecOptions{
		Context:      ctx,
		OutputStream: &buf,
		ErrorStream:  &buf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run exec in %q: %w", container, err)
	}

	inspect, err := c.client.InspectExec(exec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec in %q: %w", container, err)
	}
	return &ExecResult{Output: buf.String(), ExitCode: inspect.ExitCode}, nil
}
