package clientip

import (
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the peer address of r without the port. Forwarding
// headers are ignored, so the value cannot be spoofed by the caller.
// IPv4-mapped IPv6 peers are reported in IPv4 form so a client gets one
// rate limit bucket whichever stack it arrived on.
func RealClientIP(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap().WithZone("").String()
	}
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr.Unmap().WithZone("").String()
	}
	return remote
}
