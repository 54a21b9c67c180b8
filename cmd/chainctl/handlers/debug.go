package handlers

import (
	"context"
	"fmt"
)

// Debug handles the debug command: forward one raw engine command and print
// the output verbatim.
func Debug(ctx context.Context, topologyPath, statePath, node, command string) error {
	s, err := newSession(topologyPath, statePath)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.orch.Debug(ctx, s.topo, node, command)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
