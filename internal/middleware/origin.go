package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddr returns the network address of the client: the first
// X-Forwarded-For entry when present, otherwise the host of peer.
func ClientAddr(header http.Header, peer string) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(peer)
	if err != nil {
		return peer
	}
	return host
}
