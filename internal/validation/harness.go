// Package validation runs the post-deployment test suites: pairwise
// connectivity probes over every shared network, and an end-to-end marker
// traffic test with per-stage counter accounting. A failed test never tears
// the deployment down; it produces a report the operator can act on.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vppchain/chainctl/internal/engine"
	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/topology"
)

const (
	// pingRepeat is the probe count per connectivity check. Reachability is
	// the criterion, not loss rate, so a handful of probes is enough.
	pingRepeat = 5

	// pollInterval paces the egress marker polls during the traffic window.
	pollInterval = 1 * time.Second
)

// CheckResult is the outcome of a single named check.
type CheckResult struct {
	Name       string
	Passed     bool
	Diagnostic string
}

// StageStat is one chain stage's counter delta over a traffic test.
type StageStat struct {
	Node      string
	RxPackets int64
	RxBytes   int64
	TxPackets int64
	TxBytes   int64
	Drops     int64
}

// Report is the aggregated outcome of one test run.
type Report struct {
	Test   string
	Checks []CheckResult
	// Stages carries the per-node counter deltas of a traffic test in chain
	// order; empty for connectivity runs.
	Stages []StageStat
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns the diagnostics of all failed checks.
func (r *Report) Failures() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c.Diagnostic)
		}
	}
	return out
}

// Harness drives validation test runs against a provisioned deployment.
type Harness struct{}

// NewHarness creates a validation harness.
func NewHarness() *Harness {
	return &Harness{}
}

// RunConnectivity pings every directed node pair sharing a network, from
// inside each node's engine. The returned error is a ValidationFailure when
// any pair is unreachable; the report carries every pair's outcome either way.
func (h *Harness) RunConnectivity(ctx *provisioning.Context) (*Report, error) {
	report := &Report{Test: "connectivity"}

	// A stopped node makes every one of its pairs fail for the same root
	// cause, so detect that once up front and name it in the diagnostic.
	down := make(map[string]string)
	for _, name := range ctx.Topology.NodeNames() {
		info, err := ctx.Runtime.InspectContainer(ctx, name)
		switch {
		case runtime.IsNotFound(err):
			down[name] = fmt.Sprintf("node %q has no container", name)
		case err != nil:
			return nil, err
		case !info.Running:
			down[name] = fmt.Sprintf("node %q is not running (exit code %d)", name, info.ExitCode)
		}
	}

	for _, pair := range ctx.Topology.SharedNetworkPairs() {
		check := CheckResult{
			Name: fmt.Sprintf("%s->%s/%s", pair.From, pair.To, pair.Network),
		}
		switch {
		case down[pair.From] != "":
			check.Diagnostic = down[pair.From]
		case down[pair.To] != "":
			check.Diagnostic = down[pair.To]
		default:
			sent, received, err := ctx.Engine.Ping(ctx, pair.From, pair.ToAddr, pingRepeat)
			switch {
			case err != nil:
				check.Diagnostic = fmt.Sprintf("ping from %q failed: %v", pair.From, err)
			case received == 0:
				check.Diagnostic = fmt.Sprintf("node %q (%s) unreachable from %q over %s: 0/%d replies",
					pair.To, pair.ToAddr, pair.From, pair.Network, sent)
			default:
				check.Passed = true
				check.Diagnostic = fmt.Sprintf("%d/%d replies", received, sent)
			}
		}
		report.Checks = append(report.Checks, check)
	}

	if !report.Passed() {
		return report, &errdefs.ValidationFailure{
			Test:       report.Test,
			Diagnostic: strings.Join(report.Failures(), "; "),
		}
	}
	return report, nil
}

// RunTraffic injects marker packets at the ingress node and verifies they
// arrive at the egress node within the configured window. Delivery is judged
// by the marker signature surviving the chain's transformations, with the
// conserved metric (packets or bytes) selected in the topology. Per-stage
// counter deltas localize losses to the responsible stage.
func (h *Harness) RunTraffic(ctx *provisioning.Context) (*Report, error) {
	report := &Report{Test: "traffic"}
	v := ctx.Topology.Validation

	order, err := ctx.Topology.ChainOrder()
	if err != nil {
		return nil, fmt.Errorf("traffic test needs a resolvable chain: %w", err)
	}
	ingress := order[0]
	egress := order[len(order)-1]

	baseline := make(map[string]engine.Counters, len(order))
	for _, node := range order {
		if err := ctx.Engine.ClearCounters(ctx, node); err != nil {
			return nil, err
		}
		counters, err := ctx.Engine.InterfaceCounters(ctx, node)
		if err != nil {
			return nil, err
		}
		baseline[node] = counters
	}

	ctx.Observer.Printf("injecting %d marker packets (%d bytes each) at %s",
		v.PacketCount, v.PacketSize, ingress)
	if err := ctx.Engine.InjectMarkers(ctx, ingress, v.Marker, v.PacketCount, v.PacketSize); err != nil {
		return nil, err
	}

	tally, err := h.awaitDelivery(ctx, egress, v)
	if err != nil {
		return nil, err
	}

	for _, node := range order {
		counters, err := ctx.Engine.InterfaceCounters(ctx, node)
		if err != nil {
			return nil, err
		}
		total := counters.Delta(baseline[node]).Totals()
		report.Stages = append(report.Stages, StageStat{
			Node:      node,
			RxPackets: total.RxPackets,
			RxBytes:   total.RxBytes,
			TxPackets: total.TxPackets,
			TxBytes:   total.TxBytes,
			Drops:     total.Drops,
		})
	}

	check := CheckResult{Name: fmt.Sprintf("delivery %s->%s", ingress, egress)}
	delivered, expected, unit := conserved(tally, v)
	if delivered >= expected {
		check.Passed = true
		check.Diagnostic = fmt.Sprintf("%d of %d %s delivered at %s", delivered, expected, unit, egress)
	} else {
		missing := int64(v.PacketCount) - int64(tally.Packets)
		check.Diagnostic = fmt.Sprintf("%d of %d %s delivered at %s%s",
			delivered, expected, unit, egress, lossSummary(report.Stages, missing))
	}
	report.Checks = append(report.Checks, check)

	if !check.Passed {
		return report, &errdefs.ValidationFailure{Test: report.Test, Diagnostic: check.Diagnostic}
	}
	return report, nil
}

// RunFull runs connectivity first, then traffic. The traffic test still runs
// when connectivity fails; partial reachability localizes faults better than
// an early abort.
func (h *Harness) RunFull(ctx *provisioning.Context) ([]*Report, error) {
	connectivity, connErr := h.RunConnectivity(ctx)
	if connectivity == nil {
		return nil, connErr
	}
	traffic, trafficErr := h.RunTraffic(ctx)
	reports := []*Report{connectivity}
	if traffic != nil {
		reports = append(reports, traffic)
	}
	if connErr != nil {
		return reports, connErr
	}
	return reports, trafficErr
}

// awaitDelivery polls the egress marker tally until the expectation is met or
// the window closes, returning the last observed tally.
func (h *Harness) awaitDelivery(ctx *provisioning.Context, egress string, v topology.ValidationSpec) (engine.MarkerTally, error) {
	deadline := time.Now().Add(v.Window.Std())
	var tally engine.MarkerTally
	for {
		t, err := ctx.Engine.CountMarkers(ctx, egress, v.Marker)
		if err != nil {
			return tally, err
		}
		tally = t

		delivered, expected, _ := conserved(tally, v)
		if delivered >= expected || time.Now().After(deadline) {
			return tally, nil
		}
		select {
		case <-ctx.Done():
			return tally, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// conserved maps the tally onto the configured conservation metric.
func conserved(tally engine.MarkerTally, v topology.ValidationSpec) (delivered, expected int64, unit string) {
	if v.Conservation == topology.ConserveBytes {
		return tally.Bytes, int64(v.PacketCount) * int64(v.PacketSize), "marker bytes"
	}
	return int64(tally.Packets), int64(v.PacketCount), "marker packets"
}

// lossSummary accounts for every missing packet: first the stages that
// flagged drops, worst first, then whatever remainder no stage owned up to.
func lossSummary(stages []StageStat, missing int64) string {
	var dropping []StageStat
	var flagged int64
	for _, s := range stages {
		if s.Drops > 0 {
			dropping = append(dropping, s)
			flagged += s.Drops
		}
	}
	sort.Slice(dropping, func(i, j int) bool { return dropping[i].Drops > dropping[j].Drops })

	parts := make([]string, 0, len(dropping)+1)
	for _, s := range dropping {
		parts = append(parts, fmt.Sprintf("%d dropped at %s", s.Drops, s.Node))
	}
	if unaccounted := missing - flagged; unaccounted > 0 {
		parts = append(parts, fmt.Sprintf("%d unaccounted", unaccounted))
	}
	if len(parts) == 0 {
		return ""
	}
	return "; " + strings.Join(parts, ", ")
}
