package cli

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/thruflo/wordcloud/internal/config"
)

// printBanner prints the addresses participants can open.
func printBanner(w io.Writer, cfg *config.Config, lanAddrs []string) {
	port := strconv.Itoa(cfg.Server.Port)

	fmt.Fprintf(w, "\nWord cloud server running\n")
	fmt.Fprintf(w, "========================\n\n")
	fmt.Fprintf(w, "Local:    http://localhost:%s\n", port)
	switch cfg.Server.Host {
	case "", "0.0.0.0", "::":
		for _, addr := range lanAddrs {
			fmt.Fprintf(w, "Network:  http://%s\n", net.JoinHostPort(addr, port))
		}
	default:
		fmt.Fprintf(w, "Network:  http://%s\n", net.JoinHostPort(cfg.Server.Host, port))
	}
	fmt.Fprintf(w, "Upstream: %s (proxied at %s)\n", cfg.Upstream.URL, cfg.Upstream.Prefix)
	fmt.Fprintf(w, "Admin:    POST http://localhost:%s/admin/reset\n\n", port)
}

// localIPv4Addrs returns the non-loopback IPv4 addresses of interfaces that
// are up.
func localIPv4Addrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var addrs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range ifAddrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				addrs = append(addrs, ip4.String())
			}
		}
	}
	return addrs
}
