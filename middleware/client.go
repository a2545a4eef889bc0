package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/MrEthical07/labauth"
)

// ClientMeta stores the client address and User-Agent in the request context
// via labauth.WithClientIP and labauth.WithUserAgent. See [ClientIP] for how
// trusted is applied.
func ClientMeta(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := labauth.WithClientIP(r.Context(), ClientIP(r, trusted))
			ctx = labauth.WithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address the request is attributed to.
//
// It is the host of RemoteAddr unless that peer is inside trusted. For a
// trusted peer the X-Forwarded-For chain is walked from the right and the
// first hop outside trusted wins. A malformed hop stops the walk and the
// peer address is used.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r.RemoteAddr)
	if len(trusted) == 0 || !inPrefixes(peer, trusted) {
		return peer
	}

	hops := forwardedHops(r.Header.Values("X-Forwarded-For"))
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(hops[i])
		if err != nil {
			return peer
		}
		client = addr.Unmap().String()
		if !inPrefixes(client, trusted) {
			return client
		}
	}
	return client
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return host
}

func forwardedHops(values []string) []string {
	var hops []string
	for _, v := range values {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

func inPrefixes(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
