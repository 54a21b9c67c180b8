package topology

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to fields the topology file leaves unset.
const (
	DefaultMTU          = 1500
	DefaultConcurrency  = 4
	DefaultNodeTimeout  = 90 * time.Second
	DefaultSetupTimeout = 5 * time.Minute
	DefaultPacketCount  = 100
	DefaultPacketSize   = 1400
	DefaultMarker       = "CHAINCTL"
	DefaultWindow       = 30 * time.Second
)

// Load reads, parses, validates, and defaults a topology file. Validation is
// a single complete pass: all violations are returned together as an
// *errdefs.ConfigError, never just the first one.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read, for tests and embedded specs.
func Parse(data []byte) (*Topology, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Topology
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}

	// Node names come from the map keys.
	for name, node := range t.Nodes {
		node.Name = name
		t.Nodes[name] = node
	}

	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Topology) applyDefaults() {
	for i := range t.Networks {
		if t.Networks[i].MTU == 0 {
			t.Networks[i].MTU = DefaultMTU
		}
	}
	if t.Settings.Concurrency == 0 {
		t.Settings.Concurrency = DefaultConcurrency
	}
	if t.Settings.NodeTimeout == 0 {
		t.Settings.NodeTimeout = Duration(DefaultNodeTimeout)
	}
	if t.Settings.SetupTimeout == 0 {
		t.Settings.SetupTimeout = Duration(DefaultSetupTimeout)
	}
	if t.Validation.PacketCount == 0 {
		t.Validation.PacketCount = DefaultPacketCount
	}
	if t.Validation.PacketSize == 0 {
		t.Validation.PacketSize = DefaultPacketSize
	}
	if t.Validation.Marker == "" {
		t.Validation.Marker = DefaultMarker
	}
	if t.Validation.Window == 0 {
		t.Validation.Window = Duration(DefaultWindow)
	}
	if t.Validation.Conservation == "" {
		t.Validation.Conservation = ConservePackets
	}
}
