// Package nodes implements the node provisioning phase: container creation
// with statically-addressed interface attachments, engine configuration
// injection, and route installation.
package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/topology"
	"github.com/vppchain/chainctl/internal/util/async"
	"github.com/vppchain/chainctl/internal/util/retry"
)

// Engine containers run a userspace dataplane: they need raw network access
// and unlimited locked memory (vpp maps hugepages at startup).
var engineCapabilities = []string{"NET_ADMIN", "SYS_ADMIN", "IPC_LOCK"}

// replaceStopTimeout bounds the graceful stop of a stale container before it
// is removed and rebuilt.
const replaceStopTimeout = 10 * time.Second

// Provisioner starts all declared nodes concurrently, bounded by the
// configured worker-pool size to protect the container runtime.
type Provisioner struct{}

// NewProvisioner creates the node phase.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the Phase interface.
func (p *Provisioner) Name() string {
	return "nodes"
}

// Provision implements the Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	tasks := make([]async.Task, 0, len(ctx.Topology.Nodes))
	for _, name := range ctx.Topology.NodeNames() {
		spec := ctx.Topology.Nodes[name]
		tasks = append(tasks, async.Task{
			Name: name,
			Func: func(taskCtx context.Context) error {
				return p.StartNode(taskCtx, ctx, spec)
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
		ctx.State.SetNodeStatus(f.Name, provisioning.StatusFailed, f.Err.Error())
	}
	return errors.Join(errs...)
}

// StartNode creates and starts a single node. A running container is reused
// only when its labels mark it as this deployment's and its declaration
// digest still matches; a stale one is replaced, a foreign one is a conflict.
// All interface addresses are statically pre-declared, so no address
// discovery happens here and nodes never race each other during bootstrap.
// Once the control-plane channel answers, the opaque config payload is
// dispatched and declared routes installed. Readiness beyond channel
// reachability is the health phase's job.
func (p *Provisioner) StartNode(taskCtx context.Context, ctx *provisioning.Context, spec topology.NodeSpec) error {
	obs := ctx.Observer.WithFields(map[string]string{"node": spec.Name})

	specHash := spec.Hash()
	existing, err := ctx.Runtime.InspectContainer(taskCtx, spec.Name)
	if err == nil {
		if existing.Running {
			if existing.Labels[provisioning.LabelDeployment] != ctx.Topology.Deployment {
				// Not ours. An unmanaged container squatting on the name is
				// never mutated; the operator has to resolve it.
				return &errdefs.ConflictError{
					Resource: "container",
					Name:     spec.Name,
					Detail: fmt.Sprintf("running container is not labeled as part of deployment %q",
						ctx.Topology.Deployment),
				}
			}
			if existing.Labels[provisioning.LabelNodeSpec] == specHash {
				// Still matches its declaration; left over from a previous
				// successful run and not part of this run's rollback scope.
				obs.Event(provisioning.Event{
					Type:     provisioning.EventResourceExists,
					Phase:    p.Name(),
					Resource: spec.Name,
					Message:  "node container already matches its declaration",
				})
				ctx.State.SetNodeStatus(spec.Name, provisioning.StatusStarting, "pre-existing container")
				return nil
			}
			// Ours, but built from an older revision of the node declaration.
			obs.Printf("[nodes] node %s declaration changed, replacing container", spec.Name)
			if err := ctx.Runtime.StopContainer(taskCtx, spec.Name, replaceStopTimeout); err != nil && !runtime.IsNotFound(err) {
				return fmt.Errorf("failed to stop stale container %q: %w", spec.Name, err)
			}
		}
		// A stopped or stale container cannot be re-wired; replace it.
		if err := ctx.Runtime.RemoveContainer(taskCtx, spec.Name); err != nil && !runtime.IsNotFound(err) {
			return fmt.Errorf("failed to replace container %q: %w", spec.Name, err)
		}
	} else if !runtime.IsNotFound(err) {
		return fmt.Errorf("failed to inspect container %q: %w", spec.Name, err)
	}

	obs.Event(provisioning.Event{
		Type:     provisioning.EventResourceCreating,
		Phase:    p.Name(),
		Resource: spec.Name,
		Message:  "creating node container " + spec.Image,
	})

	primary := spec.Interfaces[0]
	containerID, err := ctx.Runtime.CreateContainer(taskCtx, runtime.ContainerOpts{
		Name:             spec.Name,
		Image:            spec.Image,
		Hostname:         spec.Name,
		Labels:           provisioning.NodeLabels(ctx.Topology.Deployment, spec.Name, specHash),
		Network:          primary.Network,
		Address:          primary.Address,
		CapAdd:           engineCapabilities,
		MemlockUnlimited: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create node %q: %w", spec.Name, err)
	}
	ctx.State.RecordNodeStarted(spec.Name, containerID)

	for _, iface := range spec.Interfaces[1:] {
		if err := ctx.Runtime.ConnectNetwork(taskCtx, iface.Network, spec.Name, iface.Address); err != nil {
			return &errdefs.NetworkError{Network: iface.Network, Cause: err}
		}
	}

	if err := ctx.Runtime.StartContainer(taskCtx, spec.Name); err != nil {
		return fmt.Errorf("failed to start node %q: %w", spec.Name, err)
	}
	obs.Event(provisioning.Event{
		Type:     provisioning.EventResourceCreated,
		Phase:    p.Name(),
		Resource: spec.Name,
	})

	if err := p.configure(taskCtx, ctx, spec); err != nil {
		return err
	}
	return nil
}

// configure waits for the control-plane channel to answer, then dispatches
// the node's opaque config payload and installs declared routes.
func (p *Provisioner) configure(taskCtx context.Context, ctx *provisioning.Context, spec topology.NodeSpec) error {
	waitCtx, cancel := context.WithTimeout(taskCtx, ctx.Topology.Settings.NodeTimeout.Std())
	defer cancel()

	probe := func() error {
		info, err := ctx.Runtime.InspectContainer(waitCtx, spec.Name)
		if err != nil {
			return err
		}
		if !info.Running {
			return retry.Fatal(fmt.Errorf("container exited with code %d", info.ExitCode))
		}
		return ctx.Engine.Ready(waitCtx, spec.Name)
	}

	err := retry.Do(waitCtx, probe,
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithMaxDelay(4*time.Second))
	if err != nil {
		return &errdefs.NodeStartupError{Node: spec.Name, Cause: err}
	}

	if err := ctx.Engine.ApplyConfig(waitCtx, spec.Name, spec.Config); err != nil {
		return &errdefs.NodeStartupError{Node: spec.Name, Cause: err}
	}
	for _, route := range spec.Routes {
		if err := ctx.Engine.AddRoute(waitCtx, spec.Name, route.To, route.Via, route.Interface); err != nil {
			return &errdefs.NodeStartupError{Node: spec.Name, Cause: err}
		}
	}
	return nil
}

// StopNode stops and removes a node container. Both steps ignore not-found
// so the operation is idempotent.
func StopNode(ctx *provisioning.Context, name string, timeout time.Duration) error {
	if err := ctx.Runtime.StopContainer(ctx, name, timeout); err != nil && !runtime.IsNotFound(err) {
		return fmt.Errorf("failed to stop node %q: %w", name, err)
	}
	if err := ctx.Runtime.RemoveContainer(ctx, name); err != nil && !runtime.IsNotFound(err) {
		return fmt.Errorf("failed to remove node %q: %w", name, err)
	}
	ctx.State.SetNodeStatus(name, provisioning.StatusStopped, "")
	return nil
}
