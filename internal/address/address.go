package address

import (
	"net"
	"strings"
)

const DefaultAddr = "0.0.0.0"

// Normalize completes a port-only address with DefaultAddr.
func Normalize(addr string) string {
	if len(stripPort(addr)) == 0 {
		return DefaultAddr + addr
	}

	return addr
}

// IsLoopback reports whether the host is either localhost or a loopback IP.
func IsLoopback(addr string) bool {
	host := stripPort(addr)
	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
