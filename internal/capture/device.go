package capture

import (
	"Go2NetBandwidth/internal/model"
	"encoding/binary"
	"fmt"
	"net"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// Prefix is an IPv4 network as (address, mask).
type Prefix struct {
	Address model.Addr
	Mask    model.Addr
}

// interfaces is swapped out in tests.
var interfaces = psnet.Interfaces

// CheckDevice verifies that a capture interface with the given name exists.
func CheckDevice(name string) error {
	if name == "any" {
		return nil
	}
	ifaces, err := interfaces()
	if err != nil {
		return fmt.Errorf("failed to list network interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Name == name {
			return nil
		}
	}
	return fmt.Errorf("interface %q not found", name)
}

// DiscoverNetworks returns the IPv4 prefixes configured on the named interface.
func DiscoverNetworks(name string) ([]Prefix, error) {
	ifaces, err := interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Name != name {
			continue
		}
		var prefixes []Prefix
		for _, a := range iface.Addrs {
			_, ipNet, err := net.ParseCIDR(a.Addr)
			if err != nil {
				continue
			}
			addr, ok := model.AddrFromIP(ipNet.IP)
			if !ok || len(ipNet.Mask) != net.IPv4len {
				continue
			}
			prefixes = append(prefixes, Prefix{
				Address: addr,
				Mask:    model.Addr(binary.BigEndian.Uint32(ipNet.Mask)),
			})
		}
		if len(prefixes) == 0 {
			return nil, fmt.Errorf("interface %q has no IPv4 addresses", name)
		}
		return prefixes, nil
	}
	return nil, fmt.Errorf("interface %q not found", name)
}
