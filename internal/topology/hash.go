package topology

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash returns a stable digest of the topology. Idempotency is keyed on
// name + this hash: re-applying an unchanged spec is a no-op, a changed spec
// is a conflict to resolve with --force.
//
// The digest is computed over a canonical rendering with sorted keys, so it
// is independent of map iteration order and YAML formatting.
func (t *Topology) Hash() string {
	var b strings.Builder

	fmt.Fprintf(&b, "deployment=%s\n", t.Deployment)

	nets := make([]NetworkSpec, len(t.Networks))
	copy(nets, t.Networks)
	sort.Slice(nets, func(i, j int) bool { return nets[i].Name < nets[j].Name })
	for _, nw := range nets {
		fmt.Fprintf(&b, "network=%s subnet=%s gateway=%s mtu=%d\n",
			nw.Name, nw.Subnet, nw.Gateway, nw.MTU)
	}

	for _, name := range t.NodeNames() {
		renderNode(&b, t.Nodes[name])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Hash returns a stable digest of this node's declaration alone. Containers
// are stamped with it at create time, so a later run can tell a container
// that still matches its declaration from one built against an older
// revision.
func (n NodeSpec) Hash() string {
	var b strings.Builder
	renderNode(&b, n)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func renderNode(b *strings.Builder, node NodeSpec) {
	fmt.Fprintf(b, "node=%s image=%s role=%s\n", node.Name, node.Image, node.Role)
	for _, iface := range node.Interfaces {
		fmt.Fprintf(b, "  iface=%s network=%s address=%s/%d\n",
			iface.Name, iface.Network, iface.Address, iface.Mask)
	}
	keys := make([]string, 0, len(node.Config))
	for k := range node.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  config=%s:%s\n", k, node.Config[k])
	}
	for _, r := range node.Routes {
		fmt.Fprintf(b, "  route=%s via=%s dev=%s\n", r.To, r.Via, r.Interface)
	}
}
