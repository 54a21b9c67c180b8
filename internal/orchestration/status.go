package orchestration

import (
	"context"
	"errors"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/store"
	"github.com/vppchain/chainctl/internal/topology"
)

// NetworkReport is one declared network's observed state.
type NetworkReport struct {
	Name   string
	Subnet string
	Exists bool
}

// NodeReport is one declared node's observed state.
type NodeReport struct {
	Name        string
	Role        string
	ContainerID string
	Exists      bool
	Running     bool
	// Ready reports whether the node's control-plane answered the probe.
	// Only probed for running containers.
	Ready bool
}

// StatusReport is the reconciliation view of a deployment: declared topology
// against observed runtime state and the persisted record.
type StatusReport struct {
	Deployment   string
	TopologyHash string
	// Record is the persisted deployment record, nil when the deployment
	// was never set up (or was cleaned up).
	Record *store.DeploymentRecord
	// Drift is set when a record exists but was produced by a different
	// topology revision than the one on disk.
	Drift    bool
	Networks []NetworkReport
	Nodes    []NodeReport
}

// Healthy reports whether every declared node is running and ready.
func (r *StatusReport) Healthy() bool {
	if len(r.Nodes) == 0 {
		return false
	}
	for _, n := range r.Nodes {
		if !n.Running || !n.Ready {
			return false
		}
	}
	return true
}

// Status inspects the runtime and the state store and reports how the
// observed deployment compares to the declared topology. Status never
// mutates anything.
func (o *Orchestrator) Status(ctx context.Context, topo *topology.Topology) (*StatusReport, error) {
	if err := o.rt.Ping(ctx); err != nil {
		return nil, &errdefs.RuntimeUnavailable{Cause: err}
	}

	report := &StatusReport{
		Deployment:   topo.Deployment,
		TopologyHash: topo.Hash(),
	}

	rec, err := o.store.Get(ctx, topo.Deployment)
	switch {
	case err == nil:
		report.Record = rec
		report.Drift = rec.TopologyHash != report.TopologyHash
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	for _, nw := range topo.Networks {
		nr := NetworkReport{Name: nw.Name, Subnet: nw.Subnet}
		if _, err := o.rt.InspectNetwork(ctx, nw.Name); err == nil {
			nr.Exists = true
		} else if !runtime.IsNotFound(err) {
			return nil, err
		}
		report.Networks = append(report.Networks, nr)
	}

	pctx := o.newRunContext(ctx, topo)
	for _, name := range topo.NodeNames() {
		node := topo.Nodes[name]
		nr := NodeReport{Name: name, Role: node.Role}
		info, err := o.rt.InspectContainer(ctx, name)
		switch {
		case runtime.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			nr.Exists = true
			nr.Running = info.Running
			nr.ContainerID = info.ID
			if info.Running {
				nr.Ready = pctx.Engine.Ready(ctx, name) == nil
			}
		}
		report.Nodes = append(report.Nodes, nr)
	}
	return report, nil
}
