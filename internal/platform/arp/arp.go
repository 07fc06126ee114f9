// Package arp parses the neighbour table printed by `arp -n -i <ifname>`.
package arp

import "strings"

// Entry is one resolved neighbour.
type Entry struct {
	IP  string
	MAC string
}

// Parse skips the header row, drops rows with fewer than three fields and
// rows whose address never resolved.
//
//	Address                  HWtype  HWaddress           Flags Mask            Iface
//	192.168.4.23             ether   a1:b2:c3:d4:e5:f6   C                     wlan1
func Parse(out string) []Entry {
	var entries []Entry
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			continue
		}
		if f[1] == "(incomplete)" || f[2] == "(incomplete)" {
			continue
		}
		entries = append(entries, Entry{IP: f[0], MAC: f[2]})
	}
	return entries
}
