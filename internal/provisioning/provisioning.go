// Package provisioning provides the shared types and phase engine for
// deployment provisioning.
//
// # Subpackages
//
//   - networks/ — idempotent virtual network creation
//   - nodes/ — node container lifecycle and engine configuration
//   - health/ — control-plane readiness verification
//   - destroy/ — teardown in reverse dependency order
//
// # Core types
//
// Context carries the topology, runtime and engine clients, observer, and
// the run's accumulated State. Phase defines a provisioning step with
// Name() and Provision() methods executed in order by RunPhases.
package provisioning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vppchain/chainctl/internal/engine"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/topology"
)

// NodeStatus is a node's lifecycle status.
type NodeStatus string

const (
	StatusCreated  NodeStatus = "created"
	StatusStarting NodeStatus = "starting"
	StatusHealthy  NodeStatus = "healthy"
	StatusFailed   NodeStatus = "failed"
	StatusStopped  NodeStatus = "stopped"
)

// RuntimeNodeState is the live status record tracked for a provisioned node.
type RuntimeNodeState struct {
	Name        string
	ContainerID string
	Status      NodeStatus
	// LastHealth is the most recent health-check result, empty until the
	// verifier has run.
	LastHealth string
	UpdatedAt  time.Time
}

// State holds the shared results of a provisioning run. It is the only
// mutable state shared between concurrent tasks; all mutation goes through
// its methods under the internal lock.
type State struct {
	mu    sync.Mutex
	nodes map[string]*RuntimeNodeState

	// Resources created by THIS run. Rollback is scoped to these:
	// pre-existing resources from earlier successful runs are left alone.
	createdNetworks []string
	startedNodes    []string
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{nodes: make(map[string]*RuntimeNodeState)}
}

// RecordNetworkCreated marks a network as created by this run.
func (s *State) RecordNetworkCreated(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdNetworks = append(s.createdNetworks, name)
}

// RecordNodeStarted marks a node container as created by this run and
// initializes its runtime state.
func (s *State) RecordNodeStarted(name, containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedNodes = append(s.startedNodes, name)
	s.nodes[name] = &RuntimeNodeState{
		Name:        name,
		ContainerID: containerID,
		Status:      StatusStarting,
		UpdatedAt:   time.Now(),
	}
}

// SetNodeStatus updates a node's lifecycle status and health detail.
func (s *State) SetNodeStatus(name string, status NodeStatus, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[name]
	if !ok {
		node = &RuntimeNodeState{Name: name}
		s.nodes[name] = node
	}
	node.Status = status
	node.LastHealth = detail
	node.UpdatedAt = time.Now()
}

// Node returns a copy of the node's runtime state, or nil.
func (s *State) Node(name string) *RuntimeNodeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if node, ok := s.nodes[name]; ok {
		cp := *node
		return &cp
	}
	return nil
}

// Nodes returns a copy of all tracked node states.
func (s *State) Nodes() map[string]RuntimeNodeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]RuntimeNodeState, len(s.nodes))
	for name, node := range s.nodes {
		out[name] = *node
	}
	return out
}

// CreatedNetworks returns the networks created by this run.
func (s *State) CreatedNetworks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.createdNetworks...)
}

// StartedNodes returns the node containers created by this run.
func (s *State) StartedNodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.startedNodes...)
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Topology *topology.Topology
	State    *State
	Runtime  runtime.Client
	Engine   *engine.Client
	Observer Observer
}

// NewContext creates a provisioning context for one run.
func NewContext(ctx context.Context, topo *topology.Topology, rt runtime.Client) *Context {
	return &Context{
		Context:  ctx,
		Topology: topo,
		State:    NewState(),
		Runtime:  rt,
		Engine:   engine.NewClient(rt),
		Observer: NewLogObserver(),
	}
}

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// RunPhases executes the phases sequentially, stopping at the first failure.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	for i, phase := range phases {
		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		ctx.Observer.Event(Event{Type: EventPhaseStarted, Phase: phase.Name()})
		if err := phase.Provision(ctx); err != nil {
			ctx.Observer.Event(Event{
				Type:    EventPhaseFailed,
				Phase:   phase.Name(),
				Message: err.Error(),
			})
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}
		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(phaseStart).Round(time.Millisecond))
	}
	ctx.Observer.Printf("provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
