package handlers

import (
	"context"
	"fmt"
)

// Setup handles the setup command.
func Setup(ctx context.Context, topologyPath, statePath string, force bool) error {
	s, err := newSession(topologyPath, statePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.orch.Setup(ctx, s.topo, force); err != nil {
		return err
	}
	fmt.Printf("deployment %s is up\n", s.topo.Deployment)
	return nil
}
