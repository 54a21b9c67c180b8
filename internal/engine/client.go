// Package engine is the typed control-plane client for the packet-processing
// engine running inside each node. The engine is an opaque collaborator: the
// channel is a textual request/response protocol driven through the engine's
// CLI inside the container. This package owns the well-known commands used by
// provisioning, health checking, and validation; the raw passthrough for the
// debug gateway lives here too but carries no correctness guarantees.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vppchain/chainctl/internal/runtime"
)

// cliBinary is the engine CLI reached via in-container exec.
const cliBinary = "vppctl"

// Well-known control-plane commands.
const (
	// cmdShowVersion is the side-effect-free readiness probe.
	cmdShowVersion = "show version"
	// cmdShowInterface returns per-interface counters.
	cmdShowInterface = "show interface"
)

// Client issues typed control-plane requests to node engines.
type Client struct {
	rt runtime.Client
}

// NewClient wraps a runtime client.
func NewClient(rt runtime.Client) *Client {
	return &Client{rt: rt}
}

// run executes one engine command and returns its trimmed output. A non-zero
// exit code means the channel is reachable but the engine rejected the
// command; exec transport failures surface as-is.
func (c *Client) run(ctx context.Context, node, command string) (string, error) {
	res, err := c.rt.Exec(ctx, node, []string{cliBinary, command})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(res.Output)
	if res.ExitCode != 0 {
		return out, fmt.Errorf("engine rejected %q on node %q (exit %d): %s", command, node, res.ExitCode, out)
	}
	return out, nil
}

// Ready probes the engine with a well-known, side-effect-free query.
func (c *Client) Ready(ctx context.Context, node string) error {
	if _, err := c.run(ctx, node, cmdShowVersion); err != nil {
		return fmt.Errorf("control-plane not ready on %q: %w", node, err)
	}
	return nil
}

// ApplyConfig dispatches the node's opaque configuration payload in a single
// command. The payload is JSON-encoded (Go marshals map keys sorted, so the
// wire form is deterministic) and never interpreted on this side.
func (c *Client) ApplyConfig(ctx context.Context, node string, payload map[string]string) error {
	if len(payload) == 0 {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode config for %q: %w", node, err)
	}
	if _, err := c.run(ctx, node, "config apply "+string(encoded)); err != nil {
		return fmt.Errorf("failed to apply config on %q: %w", node, err)
	}
	return nil
}

// AddRoute installs a static route through the engine.
func (c *Client) AddRoute(ctx context.Context, node, to, via, iface string) error {
	cmd := fmt.Sprintf("ip route add %s via %s %s", to, via, iface)
	if _, err := c.run(ctx, node, cmd); err != nil {
		return fmt.Errorf("failed to add route %s on %q: %w", to, node, err)
	}
	return nil
}

// Ping issues an address-layer reachability probe from the node's engine and
// returns sent/received counts.
func (c *Client) Ping(ctx context.Context, node, target string, repeat int) (sent, received int, err error) {
	out, err := c.run(ctx, node, fmt.Sprintf("ping %s repeat %d", target, repeat))
	if err != nil {
		return 0, 0, err
	}
	sent, received, err = parsePingStatistics(out)
	if err != nil {
		return 0, 0, fmt.Errorf("unparseable ping output from %q: %w", node, err)
	}
	return sent, received, nil
}

// InjectMarkers commands the node's engine to emit count synthetic packets
// of the given size carrying the marker signature.
func (c *Client) InjectMarkers(ctx context.Context, node, marker string, count, size int) error {
	cmd := fmt.Sprintf("test marker send %s count %d size %d", marker, count, size)
	if _, err := c.run(ctx, node, cmd); err != nil {
		return fmt.Errorf("failed to inject markers on %q: %w", node, err)
	}
	return nil
}

// MarkerTally is the engine's account of marker packets it has observed.
// The signature survives transformational stages (encapsulation, NAT,
// encryption, fragmentation), so this is the delivery criterion rather than
// byte-for-byte payload equality.
type MarkerTally struct {
	Packets int
	Bytes   int64
}

// CountMarkers queries how many marker-carrying packets the node's engine
// has observed since its counters were last cleared.
func (c *Client) CountMarkers(ctx context.Context, node, marker string) (MarkerTally, error) {
	out, err := c.run(ctx, node, "test marker count "+marker)
	if err != nil {
		return MarkerTally{}, err
	}
	tally, err := parseMarkerTally(out)
	if err != nil {
		return MarkerTally{}, fmt.Errorf("unparseable marker tally from %q: %w", node, err)
	}
	return tally, nil
}

// ClearCounters resets the engine's interface counters so a traffic test
// starts from a clean slate.
func (c *Client) ClearCounters(ctx context.Context, node string) error {
	if _, err := c.run(ctx, node, "clear interfaces"); err != nil {
		return fmt.Errorf("failed to clear counters on %q: %w", node, err)
	}
	return nil
}

// InterfaceCounters retrieves and parses per-interface counters.
func (c *Client) InterfaceCounters(ctx context.Context, node string) (Counters, error) {
	out, err := c.run(ctx, node, cmdShowInterface)
	if err != nil {
		return nil, err
	}
	return ParseInterfaceCounters(out), nil
}

// Raw forwards an arbitrary command and returns its raw output unmodified,
// including output for non-zero exit codes. Operator escape hatch only: no
// semantic validation happens here.
func (c *Client) Raw(ctx context.Context, node, command string) (string, error) {
	res, err := c.rt.Exec(ctx, node, []string{cliBinary, command})
	if err != nil {
		return "", err
	}
	return res.Output, nil
}
