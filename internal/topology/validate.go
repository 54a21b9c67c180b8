package topology

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/vppchain/chainctl/internal/errdefs"
)

// Validate checks every declared constraint in one pass and returns the
// complete batch of violations as an *errdefs.ConfigError. It deliberately
// does not stop at the first problem so an operator can fix everything at
// once.
func (t *Topology) Validate() error {
	var violations []errdefs.Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, errdefs.Violation{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if t.Deployment == "" {
		add("deployment", "deployment name is required")
	}
	if len(t.Networks) == 0 {
		add("networks", "at least one network is required")
	}
	if len(t.Nodes) == 0 {
		add("nodes", "at least one node is required")
	}

	// Networks: unique names, parseable subnets, gateway inside subnet.
	subnets := make(map[string]*net.IPNet)
	seenNets := make(map[string]bool)
	for _, nw := range t.Networks {
		field := "networks." + nw.Name
		if nw.Name == "" {
			add("networks", "network with empty name")
			continue
		}
		if seenNets[nw.Name] {
			add(field, "duplicate network name")
			continue
		}
		seenNets[nw.Name] = true

		_, ipnet, err := net.ParseCIDR(nw.Subnet)
		if err != nil {
			add(field+".subnet", "invalid CIDR %q", nw.Subnet)
			continue
		}
		subnets[nw.Name] = ipnet

		if nw.Gateway != "" {
			gw := net.ParseIP(nw.Gateway)
			if gw == nil {
				add(field+".gateway", "invalid address %q", nw.Gateway)
			} else if !hostInSubnet(gw, ipnet) {
				add(field+".gateway", "gateway %s outside subnet %s", nw.Gateway, nw.Subnet)
			}
		}
		if nw.MTU < 68 {
			add(field+".mtu", "mtu %d below IPv4 minimum", nw.MTU)
		}
	}

	// Nodes: image present, bindings resolve, addresses valid and unique
	// per network.
	addrsPerNet := make(map[string]map[string]string) // network -> address -> node
	roles := make(map[string][]string)                // role -> node names
	for name, node := range t.Nodes {
		field := "nodes." + name
		if node.Image == "" {
			add(field+".image", "image reference is required")
		}
		if len(node.Interfaces) == 0 {
			add(field+".interfaces", "node has no interface bindings")
		}
		switch node.Role {
		case "", RoleTransit:
		case RoleIngress, RoleEgress:
			roles[node.Role] = append(roles[node.Role], name)
		default:
			add(field+".role", "unknown role %q", node.Role)
		}

		for _, iface := range node.Interfaces {
			ifField := fmt.Sprintf("%s.interfaces.%s", field, iface.Name)
			ipnet, declared := subnets[iface.Network]
			if !declared {
				if !seenNets[iface.Network] {
					add(ifField+".network", "undeclared network %q", iface.Network)
				}
				continue
			}

			ip := net.ParseIP(iface.Address)
			if ip == nil {
				add(ifField+".address", "invalid address %q", iface.Address)
				continue
			}
			if !hostInSubnet(ip, ipnet) {
				add(ifField+".address", "address %s outside subnet %s of network %q",
					iface.Address, ipnet.String(), iface.Network)
				continue
			}

			if addrsPerNet[iface.Network] == nil {
				addrsPerNet[iface.Network] = make(map[string]string)
			}
			if other, dup := addrsPerNet[iface.Network][iface.Address]; dup {
				add(ifField+".address", "address %s on network %q already used by node %q",
					iface.Address, iface.Network, other)
			} else {
				addrsPerNet[iface.Network][iface.Address] = name
			}
		}
	}

	if n := len(roles[RoleIngress]); n > 1 {
		add("nodes", "multiple ingress nodes declared: %v", roles[RoleIngress])
	}
	if n := len(roles[RoleEgress]); n > 1 {
		add("nodes", "multiple egress nodes declared: %v", roles[RoleEgress])
	}

	switch t.Validation.Conservation {
	case ConservePackets, ConserveBytes:
	default:
		add("validation.conservation", "must be %q or %q", ConservePackets, ConserveBytes)
	}

	if len(violations) > 0 {
		return &errdefs.ConfigError{Violations: violations}
	}
	return nil
}

// hostInSubnet reports whether ip is a usable host address in ipnet: inside
// the subnet and neither its network nor its broadcast address.
func hostInSubnet(ip net.IP, ipnet *net.IPNet) bool {
	if !ipnet.Contains(ip) {
		return false
	}
	first, last := cidr.AddressRange(ipnet)
	if ones, bits := ipnet.Mask.Size(); bits-ones <= 1 {
		// /31 and /32 have no distinct network/broadcast addresses.
		return true
	}
	return !ip.Equal(first) && !ip.Equal(last)
}
