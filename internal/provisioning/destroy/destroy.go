// Package destroy tears a deployment down in reverse dependency order:
// node containers first, then networks. Teardown is best-effort and
// idempotent; it visits every declared resource even when earlier
// removals fail and aggregates all errors at the end.
package destroy

import (
	"errors"
	"time"

	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/provisioning/networks"
	"github.com/vppchain/chainctl/internal/provisioning/nodes"
)

// stopTimeout is how long a node gets to shut down gracefully before the
// runtime kills it. Engines flush their dataplane on SIGTERM, so a short
// grace period is enough.
const stopTimeout = 10 * time.Second

// Destroyer removes all declared deployment resources.
type Destroyer struct{}

// NewDestroyer creates the teardown phase.
func NewDestroyer() *Destroyer {
	return &Destroyer{}
}

// Name implements the Phase interface.
func (d *Destroyer) Name() string {
	return "destroy"
}

// Provision implements the Phase interface by tearing everything down.
// The declared topology, not this run's state, defines the scope: cleanup
// must work against resources left behind by earlier runs.
func (d *Destroyer) Provision(ctx *provisioning.Context) error {
	var errs []error

	names := ctx.Topology.NodeNames()
	// Reverse chain order: downstream nodes stop before the nodes that
	// feed them, so no stage is left pumping packets into a void.
	if ordered, err := ctx.Topology.ChainOrder(); err == nil {
		names = ordered
	}
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if err := nodes.StopNode(ctx, name, stopTimeout); err != nil {
			errs = append(errs, err)
			continue
		}
		ctx.Observer.Event(provisioning.Event{
			Type:     provisioning.EventResourceDeleted,
			Phase:    d.Name(),
			Resource: name,
			Message:  "node removed",
		})
	}

	networkNames := make([]string, 0, len(ctx.Topology.Networks))
	for _, nw := range ctx.Topology.Networks {
		networkNames = append(networkNames, nw.Name)
	}
	if err := networks.RemoveNetworks(ctx, networkNames); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
