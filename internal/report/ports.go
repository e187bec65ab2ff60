package report

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

const (
	tcpListen      = "0A"
	udpUnconnected = "07"
)

// ParseProcNet parses a /proc/net/{tcp,tcp6,udp,udp6} table and returns the
// listening sockets. proto is one of "tcp", "tcp6", "udp", "udp6".
func ParseProcNet(proto string, data []byte) ([]Listener, error) {
	want := tcpListen
	if strings.HasPrefix(proto, "udp") {
		want = udpUnconnected
	}
	var out []Listener
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		f := strings.Fields(line)
		if len(f) < 10 {
			continue
		}
		if f[3] != want {
			continue
		}
		addr, port, err := parseHexAddr(f[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", proto, i+1, err)
		}
		inode, _ := strconv.ParseUint(f[9], 10, 64)
		out = append(out, Listener{Proto: proto, Address: addr, Port: port, Inode: inode})
	}
	return out, nil
}

// parseHexAddr decodes "0100007F:1F90". The address is stored as host-order
// 32-bit words, so each word is byte-swapped on little-endian kernels.
func parseHexAddr(s string) (string, int, error) {
	hexIP, hexPort, ok := strings.Cut(s, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed address %q", s)
	}
	raw, err := hex.DecodeString(hexIP)
	if err != nil || (len(raw) != 4 && len(raw) != 16) {
		return "", 0, fmt.Errorf("malformed address %q", s)
	}
	ip := make(net.IP, len(raw))
	for w := 0; w < len(raw); w += 4 {
		binary.BigEndian.PutUint32(ip[w:], binary.LittleEndian.Uint32(raw[w:]))
	}
	port, err := strconv.ParseUint(hexPort, 16, 16)
	if err != nil {
		return "", 0, fmt.Errorf("malformed port %q", s)
	}
	return ip.String(), int(port), nil
}

// ParseLsof parses `lsof -nP -iTCP -sTCP:LISTEN -iUDP` default column output.
func ParseLsof(out string) []Listener {
	var ls []Listener
	for i, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if i == 0 || len(f) < 9 {
			continue
		}
		// COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME [(STATE)]
		node := strings.ToLower(f[7])
		name := f[8]
		if node != "tcp" && node != "udp" {
			continue
		}
		if node == "tcp" && (len(f) < 10 || f[9] != "(LISTEN)") {
			continue
		}
		if strings.Contains(name, "->") {
			continue
		}
		host, portStr, err := net.SplitHostPort(name)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		proto := node
		if f[4] == "IPv6" {
			proto += "6"
		}
		if host == "*" {
			host = "0.0.0.0"
			if proto == "tcp6" || proto == "udp6" {
				host = "::"
			}
		}
		pid, _ := strconv.Atoi(f[1])
		ls = append(ls, Listener{Proto: proto, Address: host, Port: port, PID: pid, Process: f[0]})
	}
	return ls
}

// BuildPorts dedupes and orders listeners by port, then proto and address.
func BuildPorts(source string, ls []Listener) *PortsDocument {
	seen := make(map[string]bool, len(ls))
	uniq := make([]Listener, 0, len(ls))
	for _, l := range ls {
		key := l.Proto + "|" + l.Address + "|" + strconv.Itoa(l.Port) + "|" + strconv.Itoa(l.PID)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, l)
	}
	sort.Slice(uniq, func(i, j int) bool {
		a, b := uniq[i], uniq[j]
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		if a.Proto != b.Proto {
			return a.Proto < b.Proto
		}
		return a.Address < b.Address
	})
	return &PortsDocument{Source: source, Listeners: uniq}
}
