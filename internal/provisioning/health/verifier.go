// Package health implements the join phase: every started node is polled
// over its control-plane channel until ready, failed, or timed out.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/util/async"
	"github.com/vppchain/chainctl/internal/util/retry"
)

// Backoff parameters for the readiness poll. The first probe fires
// immediately; subsequent delays double up to the ceiling.
const (
	initialDelay = 1 * time.Second
	delayCeiling = 8 * time.Second
)

// Verifier polls every node's control-plane until it reports ready.
type Verifier struct{}

// NewVerifier creates the health phase.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Name implements the Phase interface.
func (v *Verifier) Name() string {
	return "health"
}

// Provision implements the Phase interface. Per-node polling loops run
// concurrently and unbounded: each blocks only its own task, never the
// orchestrator's control thread.
func (v *Verifier) Provision(ctx *provisioning.Context) error {
	tasks := make([]async.Task, 0, len(ctx.Topology.Nodes))
	for _, name := range ctx.Topology.NodeNames() {
		name := name
		tasks = append(tasks, async.Task{
			Name: name,
			Func: func(taskCtx context.Context) error {
				return v.WaitHealthy(taskCtx, ctx, name, ctx.Topology.Settings.NodeTimeout.Std())
			},
		})
	}

	failures := async.RunBounded(ctx, 0, tasks)
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}

// WaitHealthy polls the node's readiness probe on capped exponential
// backoff until it answers, the container terminates, or the timeout
// elapses. Two distinct failure shapes:
//
//   - "not yet ready": the channel does not answer yet; keep retrying.
//   - "definitely failed": the container exited; short-circuit immediately
//     instead of burning the rest of the timeout.
//
// Both end as an errdefs.NodeStartupError naming the node.
func (v *Verifier) WaitHealthy(taskCtx context.Context, ctx *provisioning.Context, node string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	probe := func() error {
		info, err := ctx.Runtime.InspectContainer(waitCtx, node)
		if err != nil {
			return err
		}
		if !info.Running {
			return retry.Fatal(fmt.Errorf("container exited with code %d", info.ExitCode))
		}
		return ctx.Engine.Ready(waitCtx, node)
	}

	err := retry.Do(waitCtx, probe,
		retry.WithInitialDelay(initialDelay),
		retry.WithMaxDelay(delayCeiling))
	if err != nil {
		ctx.State.SetNodeStatus(node, provisioning.StatusFailed, err.Error())
		ctx.Observer.Event(provisioning.Event{
			Type:     provisioning.EventResourceFailed,
			Phase:    v.Name(),
			Resource: node,
			Message:  err.Error(),
		})
		return &errdefs.NodeStartupError{Node: node, Cause: err}
	}

	ctx.State.SetNodeStatus(node, provisioning.StatusHealthy, "control-plane ready")
	ctx.Observer.Printf("[health] node %s is healthy", node)
	return nil
}
