package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vppchain/chainctl/internal/orchestration"
)

// statusJSON is the machine-readable shape of the status report.
type statusJSON struct {
	Deployment   string           `json:"deployment"`
	TopologyHash string           `json:"topologyHash"`
	Provisioned  bool             `json:"provisioned"`
	Drift        bool             `json:"drift"`
	Healthy      bool             `json:"healthy"`
	Networks     []networkJSON    `json:"networks"`
	Nodes        []nodeStatusJSON `json:"nodes"`
}

type networkJSON struct {
	Name   string `json:"name"`
	Subnet string `json:"subnet"`
	Exists bool   `json:"exists"`
}

type nodeStatusJSON struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	ContainerID string `json:"containerId,omitempty"`
	Running     bool   `json:"running"`
	Ready       bool   `json:"ready"`
}

// Status handles the status command.
func Status(ctx context.Context, topologyPath, statePath string, jsonOutput bool) error {
	s, err := newSession(topologyPath, statePath)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.orch.Status(ctx, s.topo)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printStatusJSON(report)
	}
	printStatusFormatted(report)
	return nil
}

// printStatusJSON outputs the report as JSON.
func printStatusJSON(report *orchestration.StatusReport) error {
	out := statusJSON{
		Deployment:   report.Deployment,
		TopologyHash: report.TopologyHash,
		Provisioned:  report.Record != nil,
		Drift:        report.Drift,
		Healthy:      report.Healthy(),
	}
	for _, nw := range report.Networks {
		out.Networks = append(out.Networks, networkJSON{Name: nw.Name, Subnet: nw.Subnet, Exists: nw.Exists})
	}
	for _, n := range report.Nodes {
		out.Nodes = append(out.Nodes, nodeStatusJSON{
			Name:        n.Name,
			Role:        n.Role,
			ContainerID: n.ContainerID,
			Running:     n.Running,
			Ready:       n.Ready,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printStatusFormatted outputs the report as a readable summary.
func printStatusFormatted(report *orchestration.StatusReport) {
	fmt.Printf("deployment: %s\n", report.Deployment)
	if report.Record == nil {
		fmt.Println("state:      not provisioned")
	} else {
		fmt.Printf("state:      provisioned (run %s)\n", report.Record.RunID)
		if report.Drift {
			fmt.Println("drift:      topology changed since last setup, re-run setup to converge")
		}
	}
	fmt.Println()

	fmt.Println("Networks:")
	for _, nw := range report.Networks {
		printStatusLine(fmt.Sprintf("%s (%s)", nw.Name, nw.Subnet), nw.Exists, "")
	}

	fmt.Println("Nodes:")
	for _, n := range report.Nodes {
		extra := ""
		if n.Role != "" {
			extra = "(" + n.Role + ")"
		}
		switch {
		case !n.Exists:
			printStatusLine(n.Name+" missing", false, extra)
		case !n.Running:
			printStatusLine(n.Name+" stopped", false, extra)
		case !n.Ready:
			printStatusLine(n.Name+" starting", false, extra)
		default:
			printStatusLine(n.Name, true, extra)
		}
	}
}

// printStatusLine prints a single status line with indicator.
func printStatusLine(name string, ok bool, extra string) {
	indicator := "○"
	if ok {
		indicator = "✓"
	}
	if extra != "" {
		fmt.Printf("  %s %s %s\n", indicator, name, extra)
		return
	}
	fmt.Printf("  %s %s\n", indicator, name)
}
