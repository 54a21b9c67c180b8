package orchestration

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vppchain/chainctl/internal/errdefs"
	"github.com/vppchain/chainctl/internal/provisioning"
	"github.com/vppchain/chainctl/internal/runtime"
	"github.com/vppchain/chainctl/internal/store"
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
settings:
  node_timeout: 2s
  setup_timeout: 30s
`

func newOrchestrator(t *testing.T, mock *runtime.MockClient) (*Orchestrator, *topology.Topology) {
	t.Helper()
	topo, err := topology.Parse([]byte(testSpec))
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	o := New(mock, st)
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	o.SetObserver(provisioning.NewLogObserverWith(quiet))
	return o, topo
}

func TestSetup_ProvisionsAndPersists(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	require.NoError(t, o.Setup(ctx, topo, false))

	assert.ElementsMatch(t, []string{"upstream", "downstream"}, mock.CreatedNetworks)
	assert.ElementsMatch(t, []string{"decap", "translate", "capture"}, mock.CreatedContainers)

	rec, err := o.store.Get(ctx, "chain-test")
	require.NoError(t, err)
	assert.Equal(t, topo.Hash(), rec.TopologyHash)
	assert.NotEmpty(t, rec.RunID)
	assert.Len(t, rec.Resources, 5, "2 networks + 3 nodes")
}

func TestSetup_SecondRunIsNoOp(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	require.NoError(t, o.Setup(ctx, topo, false))
	firstRunCreates := len(mock.CreatedContainers)

	require.NoError(t, o.Setup(ctx, topo, false))
	assert.Len(t, mock.CreatedContainers, firstRunCreates,
		"matching hash with healthy nodes must not touch the runtime")
}

func TestSetup_ChangedTopologyReconverges(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	require.NoError(t, o.Setup(ctx, topo, false))

	// Simulate a node dying between runs; the hash still matches but the
	// deployment is no longer healthy, so setup must reconverge.
	require.NoError(t, mock.StopContainer(ctx, "translate", 0))
	require.NoError(t, mock.RemoveContainerDefault("translate"))

	require.NoError(t, o.Setup(ctx, topo, false))
	assert.Equal(t, "ctr-translate", mock.Container("translate").ID)
	assert.True(t, mock.Container("translate").Running)
}

func TestSetup_ChangedImageReplacesStaleNode(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	require.NoError(t, o.Setup(ctx, topo, false))

	// Edit one node's image and re-run without force. The untouched nodes
	// are reused; the edited one is rebuilt so the persisted hash describes
	// what actually runs.
	edited, err := topology.Parse([]byte(strings.Replace(testSpec,
		"vpp-nat:latest", "vpp-nat:v2", 1)))
	require.NoError(t, err)
	require.NoError(t, o.Setup(ctx, edited, false))

	assert.Equal(t, []string{"translate"}, mock.RemovedContainers,
		"only the changed node is replaced")
	assert.ElementsMatch(t, []string{"decap", "translate", "capture", "translate"},
		mock.CreatedContainers)
	assert.Equal(t, edited.Nodes["translate"].Hash(),
		mock.Container("translate").Labels[provisioning.LabelNodeSpec])

	rec, err := o.store.Get(ctx, "chain-test")
	require.NoError(t, err)
	assert.Equal(t, edited.Hash(), rec.TopologyHash)
}

func TestSetup_RuntimeDown(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.PingErr = errors.New("cannot connect to the daemon socket")
	o, topo := newOrchestrator(t, mock)

	err := o.Setup(context.Background(), topo, false)
	require.Error(t, err)
	assert.True(t, errdefs.IsRuntimeUnavailable(err))
	assert.Empty(t, mock.CreatedNetworks, "nothing may be mutated when the runtime is down")
}

func TestSetup_FailureRollsBackOnlyThisRun(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	// decap survives intact from an earlier run; this run must not remove it.
	mock.SeedContainer(runtime.ContainerInfo{
		ID: "ctr-old-decap", Name: "decap", Running: true,
		Labels: provisioning.NodeLabels("chain-test", "decap", topo.Nodes["decap"].Hash()),
	})
	mock.StartContainerFunc = func(name string) error {
		if name == "translate" {
			return errors.New("oci runtime error")
		}
		return nil
	}

	err := o.Setup(context.Background(), topo, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oci runtime error")

	assert.NotContains(t, mock.RemovedContainers, "decap",
		"pre-existing container is outside this run's rollback scope")
	assert.Contains(t, mock.RemovedContainers, "translate")
	assert.Empty(t, mock.RemovedNetworks, "networks are left standing on rollback")

	// A failed setup leaves no record behind.
	_, err = o.store.Get(context.Background(), "chain-test")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSetup_ForceRebuilds(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	require.NoError(t, o.Setup(ctx, topo, false))
	require.NoError(t, o.Setup(ctx, topo, true))

	assert.Contains(t, mock.RemovedContainers, "decap", "force must tear down first")
	// Each node created twice: initial setup plus the forced rebuild.
	assert.Len(t, mock.CreatedContainers, 6)
}

func TestCleanup_RemovesEverythingAndRecord(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	require.NoError(t, o.Setup(ctx, topo, false))
	require.NoError(t, o.Cleanup(ctx, topo))

	assert.Empty(t, mock.NetworkNames())
	_, err := o.store.Get(ctx, "chain-test")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	// Cleanup of an already-clean deployment succeeds.
	require.NoError(t, o.Cleanup(ctx, topo))
}

func TestStatus_ReportsDriftAndHealth(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)
	ctx := context.Background()

	report, err := o.Status(ctx, topo)
	require.NoError(t, err)
	assert.Nil(t, report.Record, "no record before first setup")
	assert.False(t, report.Healthy())

	require.NoError(t, o.Setup(ctx, topo, false))

	report, err = o.Status(ctx, topo)
	require.NoError(t, err)
	require.NotNil(t, report.Record)
	assert.False(t, report.Drift)
	assert.True(t, report.Healthy())
	assert.Len(t, report.Networks, 2)
	assert.Len(t, report.Nodes, 3)

	// An edited topology shows up as drift against the persisted record.
	report.Record.TopologyHash = "0000"
	require.NoError(t, o.store.Save(ctx, report.Record))
	report, err = o.Status(ctx, topo)
	require.NoError(t, err)
	assert.True(t, report.Drift)
}

func TestValidate_UnknownSuite(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)

	_, err := o.Validate(context.Background(), topo, "chaos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown test suite")
}

func TestDebug_UndeclaredNode(t *testing.T) {
	mock := runtime.NewMockClient()
	o, topo := newOrchestrator(t, mock)

	_, err := o.Debug(context.Background(), topo, "ghost", "show version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")
}

func TestDebug_ForwardsRawOutput(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedContainer(runtime.ContainerInfo{ID: "ctr-decap", Name: "decap", Running: true})
	mock.ExecFunc = func(container string, cmd []string) (*runtime.ExecResult, error) {
		return &runtime.ExecResult{Output: "vxlan tunnel v4 src 10.0.0.1\n", ExitCode: 0}, nil
	}
	o, topo := newOrchestrator(t, mock)

	out, err := o.Debug(context.Background(), topo, "decap", "show vxlan tunnel")
	require.NoError(t, err)
	assert.Equal(t, "vxlan tunnel v4 src 10.0.0.1\n", out, "debug output passes through verbatim")
}
