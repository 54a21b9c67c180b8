package handlers

import (
	"context"
	"fmt"
)

// Cleanup handles the cleanup command.
func Cleanup(ctx context.Context, topologyPath, statePath string) error {
	s, err := newSession(topologyPath, statePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.orch.Cleanup(ctx, s.topo); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("deployment %s removed\n", s.topo.Deployment)
	return nil
}
