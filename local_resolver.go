package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// LocalIPv6Resolver constructs a resolver that picks a global-scope IPv6
// address from the host's network interfaces.
// Unlike IPv4, a host with working IPv6 holds its public address directly,
// so no external echo service is needed.
func LocalIPv6Resolver() Resolver {
	return localIPv6Resolver{}
}

type localIPv6Resolver struct{}

func (localIPv6Resolver) Resolve(ctx context.Context) (netip.Addr, error) {
	adds, err := net.InterfaceAddrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error getting addresses for interface: %w", err)
	}
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	var addrs []netip.Addr
	for _, addr := range adds {
		ip, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		addrs = append(addrs, ip.Addr())
	}
	return SelectGlobalIPv6(addrs)
}

// SelectGlobalIPv6 returns the first global-scope IPv6 address in addrs.
// IPv4 and 4-in-6 addresses, loopback, link-local,
// and fc00::/7 unique-local addresses are skipped.
// When several addresses qualify, enumeration order decides.
func SelectGlobalIPv6(addrs []netip.Addr) (netip.Addr, error) {
	for _, a := range addrs {
		if !a.Is6() || a.Is4In6() {
			continue
		}
		if a.IsLoopback() || a.IsLinkLocalUnicast() {
			continue
		}
		if IsUniqueLocal(a) {
			continue
		}
		return a, nil
	}
	return netip.Addr{}, errors.New("no global IPv6 address on any interface")
}

// IsUniqueLocal reports whether a is inside fc00::/7.
// These addresses are only valid within a local network and must never end
// up in a public-facing record.
func IsUniqueLocal(a netip.Addr) bool {
	if !a.Is6() || a.Is4In6() {
		return false
	}
	return a.As16()[0]&0xfe == 0xfc
}
