package ddns

import (
	"context"
	"fmt"
	"net/netip"
)

// StaticResolver constructs a resolver that always yields addr.
// It backs the static_ipv4 and static_ipv6 configuration keys for hosts
// whose address is fixed for one family.
func StaticResolver(addr string) Resolver {
	return staticResolver(addr)
}

type staticResolver string

func (s staticResolver) Resolve(context.Context) (netip.Addr, error) {
	addr, err := netip.ParseAddr(string(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("unable to parse IP: %w", err)
	}
	return addr, nil
}
