// control/endpoint.go
// Author: momentics <momentics@gmail.com>
//
// host:port flag parsing. Only an IPv4 literal and a decimal port are
// accepted, so neither hosts nor service names are looked up.

package control

import (
	"net"
	"net/netip"
	"strings"

	sockaddr "github.com/hashicorp/go-sockaddr"
	"github.com/momentics/sockfd/api"
	"github.com/pkg/errors"
)

// ParseEndpoint parses "a.b.c.d:port".
func ParseEndpoint(s string) (api.Endpoint, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return api.Endpoint{}, errors.Wrapf(err, "endpoint %q", s)
	}
	// go-sockaddr falls back to net.ResolveTCPAddr: refuse hostnames here.
	if ip, err := netip.ParseAddr(host); err != nil || !ip.Is4() {
		return api.Endpoint{}, errors.Errorf("endpoint %q: host must be an IPv4 literal", s)
	}
	// Service names such as "http" would be looked up too.
	if port == "" || strings.Trim(port, "0123456789") != "" {
		return api.Endpoint{}, errors.Errorf("endpoint %q: port must be decimal", s)
	}

	addr, err := sockaddr.NewIPv4Addr(s)
	if err != nil {
		return api.Endpoint{}, errors.Wrapf(err, "endpoint %q", s)
	}
	return api.Endpoint{Host: addr.NetIP().String(), Port: int(addr.Port)}, nil
}
