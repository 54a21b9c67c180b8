package networks

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/topology"
)

const testSpec = `
deployment: chain-test
networks:
  - name: upstream
    subnet: 172.20.1.0/24
    gateway: 172.20.1.1
  - name: downstream
    subnet: 172.20.2.0/24
    gateway: 172.20.2.1
nodes:
  decap:
    image: vpp-decap:latest
    role: ingress
    interfaces:
      - {name: eth0, network: upstream, address: 172.20.1.10, mask: 24}
  capture:
    image: vpp-capture:latest
    role: egress
    interfaces:
      - {name: eth0, network: upstream, address: 172.20.1.30, mask: 24}
      - {name: eth1, network: downstream, address: 172.20.2.30, mask: 24}
`

func newTestContext(t *testing.T, mock *runtime.MockClient) *provisioning.Context {
	t.Helper()
	topo, err := topology.Parse([]byte(testSpec))
	require.NoError(t, err)

	ctx := provisioning.NewContext(context.Background(), topo, mock)
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	ctx.Observer = provisioning.NewLogObserverWith(quiet)
	return ctx
}

func TestProvision_CreatesDeclaredNetworks(t *testing.T) {
	mock := runtime.NewMockClient()
	ctx := newTestContext(t, mock)

	require.NoError(t, NewProvisioner().Provision(ctx))

	assert.ElementsMatch(t, []string{"upstream", "downstream"}, mock.CreatedNetworks)
	assert.ElementsMatch(t, []string{"upstream", "downstream"}, ctx.State.CreatedNetworks())

	info, err := mock.InspectNetwork(ctx, "upstream")
	require.NoError(t, err)
	assert.Equal(t, "172.20.1.0/24", info.Subnet)
	assert.Equal(t, "chain-test", info.Labels[provisioning.LabelDeployment])
}

func TestProvision_MatchingNetworkIsNoOp(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedNetwork(runtime.NetworkInfo{
		Name:    "upstream",
		Subnet:  "172.20.1.0/24",
		Gateway: "172.20.1.1",
		MTU:     topology.DefaultMTU,
	})
	ctx := newTestContext(t, mock)

	require.NoError(t, NewProvisioner().Provision(ctx))

	assert.NotContains(t, mock.CreatedNetworks, "upstream", "existing network must not be recreated")
	assert.NotContains(t, ctx.State.CreatedNetworks(), "upstream",
		"pre-existing network must not enter this run's rollback scope")
	assert.Contains(t, mock.CreatedNetworks, "downstream")
}

func TestProvision_MismatchedNetworkIsConflict(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedNetwork(runtime.NetworkInfo{
		Name:    "upstream",
		Subnet:  "10.99.0.0/16",
		Gateway: "10.99.0.1",
	})
	ctx := newTestContext(t, mock)

	err := NewProvisioner().Provision(ctx)
	require.Error(t, err)

	var conflict *errdefs.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "upstream", conflict.Name)
	assert.Contains(t, conflict.Error(), "10.99.0.0/16")
	assert.NotContains(t, mock.RemovedNetworks, "upstream", "a conflicting network is never mutated")
}

func TestProvision_DefaultMTUZeroObservedMatches(t *testing.T) {
	// The runtime reports no MTU option for networks created with the
	// default; an observed 0 must not be flagged as a conflict.
	mock := runtime.NewMockClient()
	mock.SeedNetwork(runtime.NetworkInfo{
		Name:    "downstream",
		Subnet:  "172.20.2.0/24",
		Gateway: "172.20.2.1",
		MTU:     0,
	})
	ctx := newTestContext(t, mock)

	require.NoError(t, NewProvisioner().Provision(ctx))
}

func TestRemoveNetworks_IgnoresMissing(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedNetwork(runtime.NetworkInfo{Name: "upstream", Subnet: "172.20.1.0/24"})
	ctx := newTestContext(t, mock)

	require.NoError(t, RemoveNetworks(ctx, []string{"upstream", "never-existed"}))
	assert.Equal(t, []string{"upstream"}, mock.RemovedNetworks)
}

func TestRemoveNetworks_AggregatesFailures(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.RemoveNetworkFunc = func(name string) error {
		if name == "upstream" {
			return errors.New("network has active endpoints")
		}
		return nil
	}
	ctx := newTestContext(t, mock)

	err := RemoveNetworks(ctx, []string{"upstream", "downstream"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active endpoints")
}
