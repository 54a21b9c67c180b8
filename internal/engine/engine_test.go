package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vppchain/chainctl/internal/runtime"
)

const showInterfaceOutput = `              Name               Idx    State  MTU (L3/IP4/IP6/MPLS)     Counter          Count
host-eth0                         1      up          9000/0/0/0     rx packets                  100
                                                                    rx bytes                 140000
                                                                    tx packets                   95
                                                                    tx bytes                 133000
                                                                    drops                         5
host-eth1                         2      up          9000/0/0/0     tx packets                   95
                                                                    tx bytes                 133000
local0                            0     down          0/0/0/0
`

func TestParseInterfaceCounters(t *testing.T) {
	counters := ParseInterfaceCounters(showInterfaceOutput)

	require.Contains(t, counters, "host-eth0")
	require.Contains(t, counters, "host-eth1")
	require.Contains(t, counters, "local0")

	eth0 := counters["host-eth0"]
	assert.Equal(t, int64(100), eth0.RxPackets)
	assert.Equal(t, int64(140000), eth0.RxBytes)
	assert.Equal(t, int64(95), eth0.TxPackets)
	assert.Equal(t, int64(133000), eth0.TxBytes)
	assert.Equal(t, int64(5), eth0.Drops)

	eth1 := counters["host-eth1"]
	assert.Equal(t, int64(0), eth1.RxPackets)
	assert.Equal(t, int64(95), eth1.TxPackets)

	assert.Equal(t, IfaceCounters{}, counters["local0"])
}

func TestCounters_TotalsExcludeLocal(t *testing.T) {
	counters := Counters{
		"host-eth0": {RxPackets: 10, Drops: 2},
		"host-eth1": {RxPackets: 5, TxPackets: 8},
		"local0":    {RxPackets: 999, Drops: 999},
	}
	total := counters.Totals()
	assert.Equal(t, int64(15), total.RxPackets)
	assert.Equal(t, int64(8), total.TxPackets)
	assert.Equal(t, int64(2), total.Drops)
}

func TestCounters_Delta(t *testing.T) {
	prev := Counters{"host-eth0": {RxPackets: 100, Drops: 1}}
	cur := Counters{"host-eth0": {RxPackets: 150, Drops: 4}}

	delta := cur.Delta(prev)
	assert.Equal(t, int64(50), delta["host-eth0"].RxPackets)
	assert.Equal(t, int64(3), delta["host-eth0"].Drops)

	// Counter reset in between must clamp at zero, not go negative.
	cleared := Counters{"host-eth0": {RxPackets: 7}}
	delta = cleared.Delta(prev)
	assert.Equal(t, int64(0), delta["host-eth0"].RxPackets)
}

func TestParsePingStatistics(t *testing.T) {
	out := `116 bytes from 172.20.2.30: icmp_seq=1 ttl=64 time=.1910 ms

Statistics: 5 sent, 4 received, 20% packet loss`
	sent, received, err := parsePingStatistics(out)
	require.NoError(t, err)
	assert.Equal(t, 5, sent)
	assert.Equal(t, 4, received)

	_, _, err = parsePingStatistics("garbage")
	assert.Error(t, err)
}

func TestParseMarkerTally(t *testing.T) {
	tally, err := parseMarkerTally("marker CHAINCTL: 92 packets, 128800 bytes")
	require.NoError(t, err)
	assert.Equal(t, 92, tally.Packets)
	assert.Equal(t, int64(128800), tally.Bytes)

	_, err = parseMarkerTally("no counters here")
	assert.Error(t, err)
}

func TestClient_Ready(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedContainer(runtime.ContainerInfo{Name: "decap", Running: true})
	client := NewClient(mock)

	require.NoError(t, client.Ready(context.Background(), "decap"))

	mock.ExecFunc = func(_ string, _ []string) (*runtime.ExecResult, error) {
		return &runtime.ExecResult{Output: "clib_socket_init: connection refused", ExitCode: 1}, nil
	}
	err := client.Ready(context.Background(), "decap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestClient_ApplyConfig(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedContainer(runtime.ContainerInfo{Name: "decap", Running: true})
	client := NewClient(mock)

	err := client.ApplyConfig(context.Background(), "decap", map[string]string{"vni": "100", "mode": "decap"})
	require.NoError(t, err)

	require.Len(t, mock.ExecCalls, 1)
	call := mock.ExecCalls[0]
	assert.Equal(t, "decap", call[0])
	assert.Equal(t, "vppctl", call[1])
	// Map keys marshal sorted, so the payload is deterministic.
	assert.Equal(t, `config apply {"mode":"decap","vni":"100"}`, call[2])
}

func TestClient_ApplyConfig_EmptyPayloadIsNoop(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedContainer(runtime.ContainerInfo{Name: "decap", Running: true})
	client := NewClient(mock)

	require.NoError(t, client.ApplyConfig(context.Background(), "decap", nil))
	assert.Empty(t, mock.ExecCalls)
}

func TestClient_RawPassesThroughRejectedOutput(t *testing.T) {
	mock := runtime.NewMockClient()
	mock.SeedContainer(runtime.ContainerInfo{Name: "decap", Running: true})
	mock.ExecFunc = func(_ string, _ []string) (*runtime.ExecResult, error) {
		return &runtime.ExecResult{Output: "unknown input `bogus'", ExitCode: 1}, nil
	}
	client := NewClient(mock)

	out, err := client.Raw(context.Background(), "decap", "bogus")
	require.NoError(t, err, "raw passthrough must not interpret exit codes")
	assert.Equal(t, "unknown input `bogus'", out)
}

func TestClient_ExecTransportErrorPropagates(t *testing.T) {
	mock := runtime.NewMockClient()
	client := NewClient(mock)

	err := client.Ready(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, runtime.ErrNotFound))
}
