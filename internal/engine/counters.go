package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IfaceCounters holds one interface's packet and byte counters.
type IfaceCounters struct {
	RxPackets int64
	RxBytes   int64
	TxPackets int64
	TxBytes   int64
	Drops     int64
}

// Counters maps interface name to its counters.
type Counters map[string]IfaceCounters

// Totals sums counters across all interfaces except the engine's internal
// local0 interface.
func (c Counters) Totals() IfaceCounters {
	var total IfaceCounters
	for name, ctr := range c {
		if name == "local0" {
			continue
		}
		total.RxPackets += ctr.RxPackets
		total.RxBytes += ctr.RxBytes
		total.TxPackets += ctr.TxPackets
		total.TxBytes += ctr.TxBytes
		total.Drops += ctr.Drops
	}
	return total
}

// Delta returns c minus prev, clamping at zero in case the engine's counters
// were cleared in between.
func (c Counters) Delta(prev Counters) Counters {
	out := make(Counters, len(c))
	for name, cur := range c {
		p := prev[name]
		out[name] = IfaceCounters{
			RxPackets: clampSub(cur.RxPackets, p.RxPackets),
			RxBytes:   clampSub(cur.RxBytes, p.RxBytes),
			TxPackets: clampSub(cur.TxPackets, p.TxPackets),
			TxBytes:   clampSub(cur.TxBytes, p.TxBytes),
			Drops:     clampSub(cur.Drops, p.Drops),
		}
	}
	return out
}

func clampSub(a, b int64) int64 {
	if a < b {
		return 0
	}
	return a - b
}

// ParseInterfaceCounters parses the engine's "show interface" table:
//
//	          Name    Idx    State  MTU (L3/IP4/IP6/MPLS)  Counter       Count
//	host-eth0            1      up          9000/0/0/0     rx packets      100
//	                                                       rx bytes     140000
//	                                                       drops             5
//
// Interface rows start in column zero; counter rows are indented and belong
// to the most recent interface.
func ParseInterfaceCounters(out string) Counters {
	counters := make(Counters)
	current := ""

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") {
			fields := strings.Fields(line)
			if len(fields) == 0 || fields[0] == "Name" {
				continue
			}
			current = fields[0]
			if _, ok := counters[current]; !ok {
				counters[current] = IfaceCounters{}
			}
			// The interface row itself may carry the first counter.
			line = strings.Join(fields[1:], " ")
		}
		if current == "" {
			continue
		}

		ctr := counters[current]
		trimmed := strings.TrimSpace(line)
		switch {
		case matchCounter(trimmed, "rx packets", &ctr.RxPackets),
			matchCounter(trimmed, "rx bytes", &ctr.RxBytes),
			matchCounter(trimmed, "tx packets", &ctr.TxPackets),
			matchCounter(trimmed, "tx bytes", &ctr.TxBytes),
			matchCounter(trimmed, "drops", &ctr.Drops):
		}
		counters[current] = ctr
	}
	return counters
}

// matchCounter extracts the trailing integer of lines like "rx packets 100",
// possibly preceded by table columns.
func matchCounter(line, name string, dst *int64) bool {
	idx := strings.Index(line, name)
	if idx < 0 {
		return false
	}
	rest := strings.TrimSpace(line[idx+len(name):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return false
	}
	value, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return false
	}
	*dst = value
	return true
}

var pingStatsRe = regexp.MustCompile(`(\d+)\s+sent,\s*(\d+)\s+received`)

// parsePingStatistics extracts sent/received counts from the engine's ping
// summary line, e.g. "Statistics: 5 sent, 4 received, 20% packet loss".
func parsePingStatistics(out string) (sent, received int, err error) {
	m := pingStatsRe.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("no statistics line in %q", out)
	}
	sent, _ = strconv.Atoi(m[1])
	received, _ = strconv.Atoi(m[2])
	return sent, received, nil
}

var markerTallyRe = regexp.MustCompile(`(\d+)\s+packets,\s*(\d+)\s+bytes`)

// parseMarkerTally extracts the packet and byte counts from the engine's
// marker counter output, e.g. "92 packets, 128800 bytes".
func parseMarkerTally(out string) (MarkerTally, error) {
	m := markerTallyRe.FindStringSubmatch(out)
	if m == nil {
		return MarkerTally{}, fmt.Errorf("no marker tally in %q", out)
	}
	packets, _ := strconv.Atoi(m[1])
	bytes, _ := strconv.ParseInt(m[2], 10, 64)
	return MarkerTally{Packets: packets, Bytes: bytes}, nil
}
