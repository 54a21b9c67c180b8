package topology

import (
	"fmt"
	"sort"
)

// Pair is two distinct nodes bound to the same network, with their static
// addresses on it. Connectivity tests probe every pair.
type Pair struct {
	From, To         string
	Network          string
	FromAddr, ToAddr string
}

// NodeNames returns the declared node names in sorted order.
func (t *Topology) NodeNames() []string {
	names := make([]string, 0, len(t.Nodes))
	for name := range t.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Adjacency maps each network name to the sorted node names bound to it.
func (t *Topology) Adjacency() map[string][]string {
	adj := make(map[string][]string, len(t.Networks))
	for _, name := range t.NodeNames() {
		for _, iface := range t.Nodes[name].Interfaces {
			adj[iface.Network] = append(adj[iface.Network], name)
		}
	}
	return adj
}

// SharedNetworkPairs returns every ordered pair of distinct nodes sharing a
// declared network. Both directions are included: reachability through a
// processing engine is not necessarily symmetric.
func (t *Topology) SharedNetworkPairs() []Pair {
	var pairs []Pair
	for _, nw := range t.Networks {
		members := t.Adjacency()[nw.Name]
		for _, from := range members {
			for _, to := range members {
				if from == to {
					continue
				}
				fromNode := t.Nodes[from]
				toNode := t.Nodes[to]
				pairs = append(pairs, Pair{
					From:     from,
					To:       to,
					Network:  nw.Name,
					FromAddr: fromNode.AddressOn(nw.Name),
					ToAddr:   toNode.AddressOn(nw.Name),
				})
			}
		}
	}
	return pairs
}

// Ingress returns the node declared with the ingress role, or nil.
func (t *Topology) Ingress() *NodeSpec {
	return t.byRole(RoleIngress)
}

// Egress returns the node declared with the egress role, or nil.
func (t *Topology) Egress() *NodeSpec {
	return t.byRole(RoleEgress)
}

func (t *Topology) byRole(role string) *NodeSpec {
	for _, name := range t.NodeNames() {
		if t.Nodes[name].Role == role {
			n := t.Nodes[name]
			return &n
		}
	}
	return nil
}

// ChainOrder derives the ingress-to-egress node order by walking shared
// networks breadth-first. It is the stage order used when attributing
// traffic loss to a specific node.
func (t *Topology) ChainOrder() ([]string, error) {
	ingress := t.Ingress()
	egress := t.Egress()
	if ingress == nil || egress == nil {
		return nil, fmt.Errorf("chain order requires one ingress and one egress node")
	}

	adj := t.Adjacency()
	neighbors := func(name string) []string {
		var out []string
		for _, iface := range t.Nodes[name].Interfaces {
			out = append(out, adj[iface.Network]...)
		}
		return out
	}

	// BFS from ingress, keeping predecessor links to recover the path.
	prev := map[string]string{ingress.Name: ""}
	queue := []string{ingress.Name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == egress.Name {
			break
		}
		for _, next := range neighbors(cur) {
			if _, seen := prev[next]; seen || next == cur {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}

	if _, reached := prev[egress.Name]; !reached {
		return nil, fmt.Errorf("no network path from ingress %q to egress %q", ingress.Name, egress.Name)
	}

	var order []string
	for cur := egress.Name; cur != ""; cur = prev[cur] {
		order = append([]string{cur}, order...)
	}
	return order, nil
}
