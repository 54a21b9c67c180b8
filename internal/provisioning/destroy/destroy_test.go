package destroy

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/topology"
)

const testSpec = `
deployment: chain-test
networks:
  - name: upstream
    subnet: 172.20.1.0/24
  - name: downstream
    subnet: 172.20.2.0/24
nodes:
  decap:
    image: vpp-decap:latest
    role: ingress
    interfaces:
      - {name: eth0, network: upstream, address: 172.20.1.10, mask: 24}
  translate:
    image: vpp-nat:latest
    interfaces:
      - {name: eth0, network: upstream, address: 172.20.1.20, mask: 24}
      - {name: eth1, network: downstream, address: 172.20.2.20, mask: 24}
  capture:
    image: vpp-capture:latest
    role: egress
    interfaces:
      - {name: eth0, network: downstream, address: 172.20.2.30, mask: 24}
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

func seedDeployment(mock *runtime.MockClient) {
	mock.SeedNetwork(runtime.NetworkInfo{Name: "upstream", Subnet: "172.20.1.0/24"})
	mock.SeedNetwork(runtime.NetworkInfo{Name: "downstream", Subnet: "172.20.2.0/24"})
	for _, name := range []string{"decap", "translate", "capture"} {
		mock.SeedContainer(runtime.ContainerInfo{ID: "ctr-" + name, Name: name, Running: true})
	}
}

func TestProvision_RemovesEverythingInReverseChainOrder(t *testing.T) {
	mock := runtime.NewMockClient()
	seedDeployment(mock)
	ctx := newTestContext(t, mock)

	require.NoError(t, NewDestroyer().Provision(ctx))

	// Downstream stages come down first.
	assert.Equal(t, []string{"capture", "translate", "decap"}, mock.RemovedContainers)
	assert.ElementsMatch(t, []string{"upstream", "downstream"}, mock.RemovedNetworks)
	assert.Empty(t, mock.NetworkNames())
}

func TestProvision_IdempotentOnEmptyRuntime(t *testing.T) {
	mock := runtime.NewMockClient()
	ctx := newTestContext(t, mock)

	require.NoError(t, NewDestroyer().Provision(ctx))
	assert.Empty(t, mock.RemovedContainers)
	assert.Empty(t, mock.RemovedNetworks)
}

func TestProvision_ContinuesPastFailures(t *testing.T) {
	mock := runtime.NewMockClient()
	seedDeployment(mock)
	mock.RemoveContainerFunc = func(name string) error {
		if name == "translate" {
			return errors.New("device busy")
		}
		return mock.RemoveContainerDefault(name)
	}
	ctx := newTestContext(t, mock)

	err := NewDestroyer().Provision(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device busy")

	// The failure on one node must not stop the rest of the teardown.
	assert.Contains(t, mock.RemovedContainers, "capture")
	assert.Contains(t, mock.RemovedContainers, "decap")
	assert.ElementsMatch(t, []string{"upstream", "downstream"}, mock.RemovedNetworks)
}
