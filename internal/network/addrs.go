package network

import (
	"net"
	"strconv"
)

// ReachableAddrs lists the host:port pairs a controller on the LAN can use to
// reach addr. A wildcard host expands to every non-loopback IPv4 address.
func ReachableAddrs(addr net.Addr) []string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return []string{addr.String()}
	}
	if tcp.IP != nil && !tcp.IP.IsUnspecified() {
		return []string{tcp.String()}
	}

	port := strconv.Itoa(tcp.Port)
	ips, err := localIPv4s()
	if err != nil || len(ips) == 0 {
		return []string{net.JoinHostPort("127.0.0.1", port)}
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.JoinHostPort(ip, port))
	}
	return out
}

func localIPv4s() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip = ip.To4(); ip == nil {
				continue
			}
			ips = append(ips, ip.String())
		}
	}
	return ips, nil
}
