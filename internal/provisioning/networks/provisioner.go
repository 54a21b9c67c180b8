// Package networks implements the network provisioning phase: every
// declared network is ensured idempotently before any node starts.
package networks

import (
	"context"
	"errors"
	"fmt"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/topology"
	"github.com/vppchain/chainctl/internal/util/async"
)

// Provisioner creates all declared networks concurrently. Networks are
// mutually independent, so the only ordering constraint is "before nodes".
type Provisioner struct{}

// NewProvisioner creates the network phase.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the Phase interface.
func (p *Provisioner) Name() string {
	return "networks"
}

// Provision implements the Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	tasks := make([]async.Task, 0, len(ctx.Topology.Networks))
	for _, nw := range ctx.Topology.Networks {
		nw := nw
		tasks = append(tasks, async.Task{
			Name: nw.Name,
			Func: func(taskCtx context.Context) error {
				return p.ensureNetwork(taskCtx, ctx, nw)
			},
		})
	}

	failures := async.RunBounded(ctx, ctx.Topology.Settings.Concurrency, tasks)
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// ensureNetwork applies the idempotent ensure semantics: identical existing
// network is a no-op, a mismatched one is a conflict (it may be shared with
// unrelated resources and is never mutated), an absent one is created.
func (p *Provisioner) ensureNetwork(taskCtx context.Context, ctx *provisioning.Context, spec topology.NetworkSpec) error {
	existing, err := ctx.Runtime.InspectNetwork(taskCtx, spec.Name)
	switch {
	case err == nil:
		if detail := diff(spec, existing); detail != "" {
			return &errdefs.ConflictError{Resource: "network", Name: spec.Name, Detail: detail}
		}
		ctx.Observer.Event(provisioning.Event{
			Type:     provisioning.EventResourceExists,
			Phase:    p.Name(),
			Resource: spec.Name,
			Message:  "network already matches spec",
		})
		return nil

	case runtime.IsNotFound(err):
		ctx.Observer.Event(provisioning.Event{
			Type:     provisioning.EventResourceCreating,
			Phase:    p.Name(),
			Resource: spec.Name,
			Message:  fmt.Sprintf("creating network %s (%s)", spec.Name, spec.Subnet),
		})
		_, err := ctx.Runtime.CreateNetwork(taskCtx, runtime.NetworkOpts{
			Name:    spec.Name,
			Subnet:  spec.Subnet,
			Gateway: spec.Gateway,
			MTU:     spec.MTU,
			Labels:  provisioning.DeploymentLabels(ctx.Topology.Deployment),
		})
		if err != nil {
			return &errdefs.NetworkError{Network: spec.Name, Cause: err}
		}
		ctx.State.RecordNetworkCreated(spec.Name)
		ctx.Observer.Event(provisioning.Event{
			Type:     provisioning.EventResourceCreated,
			Phase:    p.Name(),
			Resource: spec.Name,
		})
		return nil

	default:
		return &errdefs.NetworkError{Network: spec.Name, Cause: err}
	}
}

// diff compares a declared network against the observed runtime network and
// describes the first mismatch, or returns "".
func diff(spec topology.NetworkSpec, actual *runtime.NetworkInfo) string {
	if actual.Subnet != spec.Subnet {
		return fmt.Sprintf("subnet %s, spec declares %s", actual.Subnet, spec.Subnet)
	}
	if spec.Gateway != "" && actual.Gateway != spec.Gateway {
		return fmt.Sprintf("gateway %s, spec declares %s", actual.Gateway, spec.Gateway)
	}
	actualMTU := actual.MTU
	if actualMTU == 0 {
		// The runtime reports no MTU option for default-MTU networks.
		actualMTU = topology.DefaultMTU
	}
	if actualMTU != spec.MTU {
		return fmt.Sprintf("mtu %d, spec declares %d", actualMTU, spec.MTU)
	}
	return ""
}

// RemoveNetworks deletes the named networks with ignore-not-found semantics
// so cleanup is safe to re-run. Errors are aggregated, not short-circuited.
func RemoveNetworks(ctx *provisioning.Context, names []string) error {
	var errs []error
	for _, name := range names {
		err := ctx.Runtime.RemoveNetwork(ctx, name)
		if err != nil && !runtime.IsNotFound(err) {
			errs = append(errs, &errdefs.NetworkError{Network: name, Cause: err})
			continue
		}
		if err == nil {
			ctx.Observer.Event(provisioning.Event{
				Type:     provisioning.EventResourceDeleted,
				Resource: name,
				Message:  "network removed",
			})
		}
	}
	return errors.Join(errs...)
}
