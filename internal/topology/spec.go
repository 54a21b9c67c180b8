// Package topology parses and validates the declarative topology file into
// an in-memory graph of networks, nodes, and interface bindings.
package topology

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Node roles used by the validation harness to locate the chain endpoints.
const (
	RoleIngress = "ingress"
	RoleEgress  = "egress"
	RoleTransit = "transit"
)

// Conservation metrics for traffic tests. Stages may legitimately multiply
// or merge packets (fragmentation, reassembly), so the metric is operator
// configuration, not an assumption.
const (
	ConservePackets = "packets"
	ConserveBytes   = "bytes"
)

// NetworkSpec declares an isolated virtual network. Immutable once loaded.
type NetworkSpec struct {
	Name    string `yaml:"name"`
	Subnet  string `yaml:"subnet"`
	Gateway string `yaml:"gateway"`
	MTU     int    `yaml:"mtu"`
}

// InterfaceBinding attaches a node to a declared network with a static
// address. Static addressing removes the bootstrap races that dynamic
// discovery would introduce.
type InterfaceBinding struct {
	Name    string `yaml:"name"`
	Network string `yaml:"network"`
	Address string `yaml:"address"`
	Mask    int    `yaml:"mask"`
}

// RouteSpec is a static route installed through the node's engine.
type RouteSpec struct {
	To        string `yaml:"to"`
	Via       string `yaml:"via"`
	Interface string `yaml:"interface"`
}

// NodeSpec declares a single containerized packet-processing node.
type NodeSpec struct {
	Name       string             `yaml:"-"`
	Image      string             `yaml:"image"`
	Role       string             `yaml:"role"`
	Interfaces []InterfaceBinding `yaml:"interfaces"`
	// Config is delivered verbatim to the node's engine over the
	// control-plane channel; chainctl never interprets it.
	Config map[string]string `yaml:"config"`
	Routes []RouteSpec       `yaml:"routes"`
}

// ValidationSpec configures the traffic test.
type ValidationSpec struct {
	PacketCount  int      `yaml:"packet_count"`
	PacketSize   int      `yaml:"packet_size"`
	Marker       string   `yaml:"marker"`
	Window       Duration `yaml:"window"`
	Conservation string   `yaml:"conservation"`
}

// Settings holds ambient tunables for the orchestrator.
type Settings struct {
	Concurrency  int      `yaml:"concurrency"`
	NodeTimeout  Duration `yaml:"node_timeout"`
	SetupTimeout Duration `yaml:"setup_timeout"`
}

// Topology is the parsed declarative spec.
type Topology struct {
	Deployment string              `yaml:"deployment"`
	Networks   []NetworkSpec       `yaml:"networks"`
	Nodes      map[string]NodeSpec `yaml:"nodes"`
	Validation ValidationSpec      `yaml:"validation"`
	Settings   Settings            `yaml:"settings"`
}

// Duration wraps time.Duration with YAML string decoding ("30s", "5m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Network returns the declared network with the given name, or nil.
func (t *Topology) Network(name string) *NetworkSpec {
	for i := range t.Networks {
		if t.Networks[i].Name == name {
			return &t.Networks[i]
		}
	}
	return nil
}

// Node returns the declared node with the given name, or nil.
func (t *Topology) Node(name string) *NodeSpec {
	if n, ok := t.Nodes[name]; ok {
		return &n
	}
	return nil
}

// AddressOn returns the node's static address on the given network, or "".
func (n *NodeSpec) AddressOn(network string) string {
	for _, iface := range n.Interfaces {
		if iface.Network == network {
			return iface.Address
		}
	}
	return ""
}
