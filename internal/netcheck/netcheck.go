// Package netcheck reports whether the client believes it has network
// connectivity.
package netcheck

import (
	"net"
)

// Checker reports client connectivity.
type Checker interface {
	Online() bool
}

// Func adapts a function to a Checker.
type Func func() bool

// Online implements Checker.
func (f Func) Online() bool {
	return f()
}

// Static always reports the same state.
type Static bool

// Online implements Checker.
func (s Static) Online() bool {
	return bool(s)
}

// Interfaces reports online when at least one non-loopback interface is up
// and has an address. It does not contact any host.
type Interfaces struct {
	list func() ([]net.Interface, error)
}

// NewInterfaces creates a checker over the host's network interfaces.
func NewInterfaces() *Interfaces {
	return &Interfaces{list: net.Interfaces}
}

// Online implements Checker.
func (c *Interfaces) Online() bool {
	ifaces, err := c.list()
	if err != nil {
		// Unknown state reads as online so the failure is reported as
		// unreachable rather than blaming the user's network.
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
