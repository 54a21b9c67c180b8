package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockClient is an in-memory Client for tests. Default behavior is a
// well-behaved runtime; individual methods can be overridden through the
// corresponding Func fields to inject failures.
type MockClient struct {
	mu         sync.Mutex
	networks   map[string]*NetworkInfo
	containers map[string]*ContainerInfo
	endpoints  map[string][]string // container -> connected networks

	PingErr             error
	CreateNetworkFunc   func(opts NetworkOpts) (string, error)
	CreateContainerFunc func(opts ContainerOpts) (string, error)
	StartContainerFunc  func(name string) error
	RemoveNetworkFunc   func(name string) error
	RemoveContainerFunc func(name string) error
	ExecFunc            func(container string, cmd []string) (*ExecResult, error)

	// Call records for assertions.
	CreatedNetworks   []string
	CreatedContainers []string
	RemovedNetworks   []string
	RemovedContainers []string
	StoppedContainers []string
	ExecCalls         [][]string
}

// NewMockClient returns an empty mock runtime.
func NewMockClient() *MockClient {
	return &MockClient{
		networks:   make(map[string]*NetworkInfo),
		containers: make(map[string]*ContainerInfo),
		endpoints:  make(map[string][]string),
	}
}

// SeedNetwork pre-populates an existing network, as left behind by a
// previous run.
func (m *MockClient) SeedNetwork(info NetworkInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := info
	m.networks[info.Name] = &cp
}

// SeedContainer pre-populates an existing container.
func (m *MockClient) SeedContainer(info ContainerInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := info
	m.containers[info.Name] = &cp
}

// Container returns the current mock state of a container, or nil.
func (m *MockClient) Container(name string) *ContainerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.containers[name]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// NetworkNames returns the names of all mock networks.
func (m *MockClient) NetworkNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.networks {
		names = append(names, name)
	}
	return names
}

// Ping implements Client.
func (m *MockClient) Ping(_ context.Context) error {
	return m.PingErr
}

// CreateNetwork implements Client.
func (m *MockClient) CreateNetwork(_ context.Context, opts NetworkOpts) (string, error) {
	if m.CreateNetworkFunc != nil {
		return m.CreateNetworkFunc(opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.networks[opts.Name]; exists {
		return "", fmt.Errorf("network %q already exists", opts.Name)
	}
	id := "net-" + opts.Name
	m.networks[opts.Name] = &NetworkInfo{
		ID:      id,
		Name:    opts.Name,
		Subnet:  opts.Subnet,
		Gateway: opts.Gateway,
		MTU:     opts.MTU,
		Labels:  opts.Labels,
	}
	m.CreatedNetworks = append(m.CreatedNetworks, opts.Name)
	return id, nil
}

// InspectNetwork implements Client.
func (m *MockClient) InspectNetwork(_ context.Context, name string) (*NetworkInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.networks[name]
	if !ok {
		return nil, fmt.Errorf("network %q: %w", name, ErrNotFound)
	}
	cp := *info
	return &cp, nil
}

// RemoveNetwork implements Client.
func (m *MockClient) RemoveNetwork(_ context.Context, name string) error {
	if m.RemoveNetworkFunc != nil {
		return m.RemoveNetworkFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.networks[name]; !ok {
		return fmt.Errorf("network %q: %w", name, ErrNotFound)
	}
	delete(m.networks, name)
	m.RemovedNetworks = append(m.RemovedNetworks, name)
	return nil
}

// CreateContainer implements Client.
func (m *MockClient) CreateContainer(_ context.Context, opts ContainerOpts) (string, error) {
	if m.CreateContainerFunc != nil {
		return m.CreateContainerFunc(opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.containers[opts.Name]; exists {
		return "", fmt.Errorf("container %q already exists", opts.Name)
	}
	id := "ctr-" + opts.Name
	m.containers[opts.Name] = &ContainerInfo{
		ID:     id,
		Name:   opts.Name,
		Labels: opts.Labels,
	}
	if opts.Network != "" {
		m.endpoints[opts.Name] = []string{opts.Network}
	}
	m.CreatedContainers = append(m.CreatedContainers, opts.Name)
	return id, nil
}

// ConnectNetwork implements Client.
func (m *MockClient) ConnectNetwork(_ context.Context, network, container, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.networks[network]; !ok {
		return fmt.Errorf("network %q: %w", network, ErrNotFound)
	}
	if _, ok := m.containers[container]; !ok {
		return fmt.Errorf("container %q: %w", container, ErrNotFound)
	}
	m.endpoints[container] = append(m.endpoints[container], network)
	return nil
}

// StartContainer implements Client.
func (m *MockClient) StartContainer(_ context.Context, name string) error {
	if m.StartContainerFunc != nil {
		return m.StartContainerFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.containers[name]
	if !ok {
		return fmt.Errorf("container %q: %w", name, ErrNotFound)
	}
	info.Running = true
	info.StartedAt = time.Now()
	return nil
}

// StopContainer implements Client.
func (m *MockClient) StopContainer(_ context.Context, name string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.containers[name]
	if !ok {
		return fmt.Errorf("container %q: %w", name, ErrNotFound)
	}
	info.Running = false
	info.FinishedAt = time.Now()
	m.StoppedContainers = append(m.StoppedContainers, name)
	return nil
}

// RemoveContainer implements Client.
func (m *MockClient) RemoveContainer(_ context.Context, name string) error {
	if m.RemoveContainerFunc != nil {
		return m.RemoveContainerFunc(name)
	}
	return m.RemoveContainerDefault(name)
}

// RemoveContainerDefault is the default RemoveContainer behavior, exposed so
// RemoveContainerFunc overrides can delegate for names they do not target.
func (m *MockClient) RemoveContainerDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.containers[name]; !ok {
		return fmt.Errorf("container %q: %w", name, ErrNotFound)
	}
	delete(m.containers, name)
	delete(m.endpoints, name)
	m.RemovedContainers = append(m.RemovedContainers, name)
	return nil
}

// InspectContainer implements Client.
func (m *MockClient) InspectContainer(_ context.Context, name string) (*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.containers[name]
	if !ok {
		return nil, fmt.Errorf("container %q: %w", name, ErrNotFound)
	}
	cp := *info
	return &cp, nil
}

// Exec implements Client. Without an ExecFunc every command succeeds with
// empty output, which satisfies "channel reachable" probes.
func (m *MockClient) Exec(_ context.Context, container string, cmd []string) (*ExecResult, error) {
	m.mu.Lock()
	if _, ok := m.containers[container]; !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("container %q: %w", container, ErrNotFound)
	}
	m.ExecCalls = append(m.ExecCalls, append([]string{container}, cmd...))
	m.mu.Unlock()

	if m.ExecFunc != nil {
		return m.ExecFunc(container, cmd)
	}
	return &ExecResult{Output: "", ExitCode: 0}, nil
}
