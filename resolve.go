package fibsterm

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Resolver turns a hostname and port into an IPv4 TCP address
type Resolver interface {
	ResolveIPv4(ctx context.Context, host string, port uint16) (*net.TCPAddr, error)
}

// SystemResolver resolves names with the system resolver
type SystemResolver struct {
	// Resolver defaults to net.DefaultResolver when nil
	Resolver *net.Resolver
}

// ResolveIPv4 returns the first IPv4 address host resolves to. Literal IPv4
// addresses are returned without a lookup.
func (r SystemResolver) ResolveIPv4(ctx context.Context, host string, port uint16) (*net.TCPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return &net.TCPAddr{IP: ip4, Port: int(port)}, nil
		}
		return nil, ResolutionError(host, "not an IPv4 address")
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	ips, err := res.LookupIP(ctx, "ip4", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, ResolutionError(host, dnsErr.Err)
		}
		return nil, ResolutionError(host, err.Error())
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return &net.TCPAddr{IP: ip4, Port: int(port)}, nil
		}
	}
	return nil, ResolutionError(host, "no IPv4 address found")
}

// Dial opens a TCP connection to addr over IPv4
func Dial(ctx context.Context, addr *net.TCPAddr, timeout time.Duration) (*net.TCPConn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp4", addr.String())
	if err != nil {
		return nil, IOError("dial", err)
	}
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, IOError("dial", errors.Errorf("unexpected connection type %T", conn))
	}
	return tcp, nil
}
