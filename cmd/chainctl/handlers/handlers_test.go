package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/runtime"
)

const testTopology = `
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
  capture:
    image: vpp-capture:latest
    role: egress
    interfaces:
      - {name: eth0, network: upstream, address: 172.20.1.30, mask: 24}
      - {name: eth1, network: downstream, address: 172.20.2.30, mask: 24}
settings:
  node_timeout: 2s
`

// fixture writes a topology file, points the factory variables at a mock
// runtime and a temp store, and restores them on cleanup.
func fixture(t *testing.T, topologyYAML string) (mock *runtime.MockClient, topologyPath, statePath string) {
	t.Helper()
	dir := t.TempDir()
	topologyPath = filepath.Join(dir, "chainctl.yaml")
	statePath = filepath.Join(dir, "state.db")
	require.NoError(t, os.WriteFile(topologyPath, []byte(topologyYAML), 0o644))

	mock = runtime.NewMockClient()
	origRuntime := newRuntimeClient
	newRuntimeClient = func() (runtime.Client, error) { return mock, nil }
	t.Cleanup(func() { newRuntimeClient = origRuntime })

	return mock, topologyPath, statePath
}

func TestSetup_HappyPath(t *testing.T) {
	mock, topologyPath, statePath := fixture(t, testTopology)

	require.NoError(t, Setup(context.Background(), topologyPath, statePath, false))

	assert.ElementsMatch(t, []string{"upstream", "downstream"}, mock.CreatedNetworks)
	assert.ElementsMatch(t, []string{"decap", "capture"}, mock.CreatedContainers)
}

func TestSetup_InvalidTopologySurfacesConfigError(t *testing.T) {
	mock, topologyPath, statePath := fixture(t, `
deployment: broken
networks:
  - name: upstream
    subnet: not-a-cidr
nodes:
  decap:
    image: img
    interfaces:
      - {name: eth0, network: upstream, address: 172.20.1.10, mask: 24}
`)

	err := Setup(context.Background(), topologyPath, statePath, false)
	require.Error(t, err)
	assert.True(t, errdefs.IsConfig(err))
	assert.Empty(t, mock.CreatedNetworks, "config errors must abort before any mutation")
}

func TestSetup_MissingTopologyFile(t *testing.T) {
	_, _, statePath := fixture(t, testTopology)

	err := Setup(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), statePath, false)
	require.Error(t, err)
}

func TestCleanup_RemovesDeployment(t *testing.T) {
	mock, topologyPath, statePath := fixture(t, testTopology)
	ctx := context.Background()

	require.NoError(t, Setup(ctx, topologyPath, statePath, false))
	require.NoError(t, Cleanup(ctx, topologyPath, statePath))

	assert.Empty(t, mock.NetworkNames())
	assert.Nil(t, mock.Container("decap"))
}

func TestStatus_Runs(t *testing.T) {
	_, topologyPath, statePath := fixture(t, testTopology)
	ctx := context.Background()

	require.NoError(t, Status(ctx, topologyPath, statePath, false))
	require.NoError(t, Status(ctx, topologyPath, statePath, true))
}

func TestTest_ConnectivitySuite(t *testing.T) {
	mock, topologyPath, statePath := fixture(t, testTopology)
	ctx := context.Background()

	require.NoError(t, Setup(ctx, topologyPath, statePath, false))

	mock.ExecFunc = func(container string, cmd []string) (*runtime.ExecResult, error) {
		return &runtime.ExecResult{Output: "Statistics: 5 sent, 5 received, 0% packet loss"}, nil
	}
	require.NoError(t, Test(ctx, topologyPath, statePath, "connectivity"))
}

func TestTest_UnknownSuite(t *testing.T) {
	_, topologyPath, statePath := fixture(t, testTopology)

	err := Test(context.Background(), topologyPath, statePath, "chaos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown test suite")
}

func TestDebug_PrintsEngineOutput(t *testing.T) {
	mock, topologyPath, statePath := fixture(t, testTopology)
	mock.SeedContainer(runtime.ContainerInfo{ID: "ctr-decap", Name: "decap", Running: true})

	require.NoError(t, Debug(context.Background(), topologyPath, statePath, "decap", "show version"))
	require.Len(t, mock.ExecCalls, 1)
	assert.Equal(t, []string{"decap", "vppctl", "show version"}, mock.ExecCalls[0])
}
