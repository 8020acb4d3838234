// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net/http"
	"net/netip"
	"strings"
)

// getClientIP returns the client's address. Proxy headers are only trusted
// when the peer is on a private or loopback network.
func getClientIP(r *http.Request) (netip.Addr, bool) {
	remote, err := netip.ParseAddrPort(r.RemoteAddr)

	var peer netip.Addr
	if err == nil {
		peer = remote.Addr()
	} else if peer, err = netip.ParseAddr(r.RemoteAddr); err != nil {
		return netip.Addr{}, false
	}

	peer = peer.Unmap()

	if peer.IsPrivate() || peer.IsLoopback() {
		if ip, ok := parseHeaderIP(r.Header.Get("X-Real-IP")); ok {
			return ip, true
		}

		// the last hop was appended by our proxy
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip, ok := parseHeaderIP(parts[len(parts)-1]); ok {
				return ip, true
			}
		}
	}

	return peer, true
}

func parseHeaderIP(s string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}

	return ip.Unmap(), true
}

// parsePassList parses addresses and CIDRs. Invalid entries are returned
// separately.
func parsePassList(entries []string) ([]netip.Prefix, []string) {
	var (
		prefixes []netip.Prefix
		invalid  []string
	)

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())

			continue
		}

		if ip, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(ip.Unmap(), ip.Unmap().BitLen()))

			continue
		}

		invalid = append(invalid, entry)
	}

	return prefixes, invalid
}

func ipMatchesList(ip netip.Addr, list []netip.Prefix) bool {
	for _, prefix := range list {
		if prefix.Contains(ip) {
			return true
		}
	}

	return false
}

// getNetwork groups ip with its neighbours.
func getNetwork(ip netip.Addr, ipv4Prefix, ipv6Prefix int) netip.Prefix {
	bits := ipv6Prefix
	if ip.Is4() {
		bits = ipv4Prefix
	}

	network, err := ip.Prefix(bits)
	if err != nil {
		return netip.PrefixFrom(ip, ip.BitLen())
	}

	return network
}
