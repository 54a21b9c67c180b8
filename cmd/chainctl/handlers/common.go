// Package handlers implements the CLI command logic.
//
// Handlers wire the topology loader, the container runtime client, the state
// store, and the orchestrator together for one command invocation. The
// constructors are factory variables so tests can swap in mock runtimes
// without touching a real container daemon.
package handlers

import (
	"github.com/vppchain/chainctl/internal/orchestration"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/store"
	"github.com/vppchain/chainctl/internal/topology"
)

// Factory function variables - can be replaced in tests.
var (
	// newRuntimeClient connects to the container runtime.
	newRuntimeClient = func() (runtime.Client, error) {
		return runtime.NewDockerClient()
	}

	// openStore opens the deployment state database.
	openStore = store.Open
)

// session bundles everything one command invocation needs.
type session struct {
	topo  *topology.Topology
	orch  *orchestration.Orchestrator
	store *store.Store
}

// newSession loads the topology and connects runtime and store. Topology
// parsing and validation happen first so configuration errors surface
// before anything external is touched.
func newSession(topologyPath, statePath string) (*session, error) {
	topo, err := topology.Load(topologyPath)
	if err != nil {
		return nil, err
	}
	rt, err := newRuntimeClient()
	if err != nil {
		return nil, err
	}
	st, err := openStore(statePath)
	if err != nil {
		return nil, err
	}
	return &session{topo: topo, orch: orchestration.New(rt, st), store: st}, nil
}

// Close releases the session's store handle.
func (s *session) Close() {
	_ = s.store.Close()
}
