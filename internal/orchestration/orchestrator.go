// Package orchestration ties the provisioning phases, the state store, and
// the validation harness into the high-level deployment operations the CLI
// exposes: setup, status, test, debug, cleanup.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/provisioning/destroy"
	"github.com/vppchain/chainctl/internal/provisioning/health"
	"github.com/vppchain/chainctl/internal/provisioning/networks"
	"github.com/vppchain/chainctl/internal/provisioning/nodes"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/store"
	"github.com/vppchain/chainctl/internal/topology"
	"github.com/vppchain/chainctl/internal/validation"
)

// stopTimeout bounds the graceful-stop grace period during rollback.
const stopTimeout = 10 * time.Second

// Orchestrator drives deployment lifecycle operations.
type Orchestrator struct {
	rt       runtime.Client
	store    *store.Store
	observer provisioning.Observer
}

// New creates an orchestrator over a container runtime and a state store.
func New(rt runtime.Client, st *store.Store) *Orchestrator {
	return &Orchestrator{rt: rt, store: st, observer: provisioning.NewLogObserver()}
}

// SetObserver replaces the default log observer, used by tests.
func (o *Orchestrator) SetObserver(obs provisioning.Observer) {
	o.observer = obs
}

// newRunContext builds a provisioning context for one operation.
func (o *Orchestrator) newRunContext(ctx context.Context, topo *topology.Topology) *provisioning.Context {
	pctx := provisioning.NewContext(ctx, topo, o.rt)
	pctx.Observer = o.observer
	return pctx
}

// Setup converges the runtime toward the declared topology. A deployment
// whose persisted topology hash matches and whose nodes are all healthy is a
// no-op; force tears the deployment down first and rebuilds from scratch.
// A mid-flight failure rolls back the resources this run created and nothing
// else: networks are left standing because they are cheap, inert, and
// possibly shared.
func (o *Orchestrator) Setup(ctx context.Context, topo *topology.Topology, force bool) error {
	if err := o.rt.Ping(ctx); err != nil {
		return &errdefs.RuntimeUnavailable{Cause: err}
	}

	rec, err := o.store.Get(ctx, topo.Deployment)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if rec != nil && !force && rec.TopologyHash == topo.Hash() && o.allHealthy(ctx, topo) {
		o.observer.Printf("deployment %q already matches topology %s, nothing to do",
			topo.Deployment, shortHash(rec.TopologyHash))
		return nil
	}

	if force {
		o.observer.Printf("force requested, tearing down deployment %q first", topo.Deployment)
		if err := o.Cleanup(ctx, topo); err != nil {
			return fmt.Errorf("forced teardown failed: %w", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, topo.Settings.SetupTimeout.Std())
	defer cancel()
	pctx := o.newRunContext(runCtx, topo)

	phases := []provisioning.Phase{
		networks.NewProvisioner(),
		nodes.NewProvisioner(),
		health.NewVerifier(),
	}
	if err := provisioning.RunPhases(pctx, phases); err != nil {
		return errors.Join(err, o.rollback(ctx, pctx))
	}

	record := &store.DeploymentRecord{
		Name:         topo.Deployment,
		RunID:        uuid.NewString(),
		TopologyHash: topo.Hash(),
	}
	if rec != nil {
		record.CreatedAt = rec.CreatedAt
	}
	for _, nw := range topo.Networks {
		record.Resources = append(record.Resources, store.Resource{Kind: store.KindNetwork, Name: nw.Name})
	}
	for _, name := range topo.NodeNames() {
		record.Resources = append(record.Resources, store.Resource{Kind: store.KindNode, Name: name})
	}
	if err := o.store.Save(ctx, record); err != nil {
		return fmt.Errorf("deployment is up but its record could not be saved: %w", err)
	}
	return nil
}

// rollback removes the node containers this run created, newest first.
// Rollback itself is best-effort; its errors ride along with the original
// failure. The parent ctx is used, not the run ctx: rollback must proceed
// even when the failure was the setup timeout expiring.
func (o *Orchestrator) rollback(ctx context.Context, pctx *provisioning.Context) error {
	started := pctx.State.StartedNodes()
	if len(started) == 0 {
		return nil
	}
	o.observer.Event(provisioning.Event{
		Type:    provisioning.EventRollbackStarted,
		Message: fmt.Sprintf("removing %d node(s) created by this run", len(started)),
	})

	cleanupCtx := o.newRunContext(ctx, pctx.Topology)
	cleanupCtx.State = pctx.State
	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := nodes.StopNode(cleanupCtx, started[i], stopTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cleanup tears down every declared resource and drops the deployment
// record. Safe to call repeatedly and on partially-provisioned deployments.
func (o *Orchestrator) Cleanup(ctx context.Context, topo *topology.Topology) error {
	if err := o.rt.Ping(ctx); err != nil {
		return &errdefs.RuntimeUnavailable{Cause: err}
	}

	pctx := o.newRunContext(ctx, topo)
	err := destroy.NewDestroyer().Provision(pctx)
	if derr := o.store.Delete(ctx, topo.Deployment); derr != nil {
		err = errors.Join(err, derr)
	}
	return err
}

// Validate runs the named test suite against the deployment.
// Suite is one of "connectivity", "traffic", or "full".
func (o *Orchestrator) Validate(ctx context.Context, topo *topology.Topology, suite string) ([]*validation.Report, error) {
	if err := o.rt.Ping(ctx); err != nil {
		return nil, &errdefs.RuntimeUnavailable{Cause: err}
	}

	pctx := o.newRunContext(ctx, topo)
	harness := validation.NewHarness()
	switch suite {
	case "connectivity":
		report, err := harness.RunConnectivity(pctx)
		return oneReport(report), err
	case "traffic":
		report, err := harness.RunTraffic(pctx)
		return oneReport(report), err
	case "full":
		return harness.RunFull(pctx)
	default:
		return nil, fmt.Errorf("unknown test suite %q (want connectivity, traffic, or full)", suite)
	}
}

// Debug forwards a raw engine command to one node and returns the output
// verbatim.
func (o *Orchestrator) Debug(ctx context.Context, topo *topology.Topology, node, command string) (string, error) {
	if topo.Node(node) == nil {
		return "", fmt.Errorf("node %q is not declared in the topology", node)
	}
	if err := o.rt.Ping(ctx); err != nil {
		return "", &errdefs.RuntimeUnavailable{Cause: err}
	}
	pctx := o.newRunContext(ctx, topo)
	return pctx.Engine.Raw(ctx, node, command)
}

func oneReport(r *validation.Report) []*validation.Report {
	if r == nil {
		return nil
	}
	return []*validation.Report{r}
}

// allHealthy reports whether every declared node has a running container
// with a responsive control-plane.
func (o *Orchestrator) allHealthy(ctx context.Context, topo *topology.Topology) bool {
	pctx := o.newRunContext(ctx, topo)
	for _, name := range topo.NodeNames() {
		info, err := o.rt.InspectContainer(ctx, name)
		if err != nil || !info.Running {
			return false
		}
		if err := pctx.Engine.Ready(ctx, name); err != nil {
			return false
		}
	}
	return true
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
