package classifier

import (
	"Go2NetBandwidth/internal/model"
	"fmt"
)

// Network is an internal prefix. Address is stored already masked.
type Network struct {
	Address model.Addr
	Mask    model.Addr
}

func (n Network) String() string {
	return fmt.Sprintf("%s/%s", n.Address, n.Mask)
}

// Contains reports whether addr falls inside the prefix.
func (n Network) Contains(addr model.Addr) bool {
	return addr&n.Mask == n.Address
}

// Classifier decides whether an address belongs to the configured internal networks.
// Networks are added once at start-up; IsInternal is safe for concurrent use afterwards.
type Classifier struct {
	networks []Network
}

// New creates an empty classifier. An empty classifier reports every address as external.
func New() *Classifier {
	return &Classifier{}
}

// AddNetwork registers raw/mask as an internal network.
// Adding the same prefix twice has no effect.
func (c *Classifier) AddNetwork(raw, mask model.Addr) {
	n := Network{Address: raw & mask, Mask: mask}
	for _, existing := range c.networks {
		if existing == n {
			return
		}
	}
	c.networks = append(c.networks, n)
}

// IsInternal reports whether addr matches any configured network.
func (c *Classifier) IsInternal(addr model.Addr) bool {
	for _, n := range c.networks {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}

// Networks returns a copy of the configured networks.
func (c *Classifier) Networks() []Network {
	out := make([]Network, len(c.networks))
	copy(out, c.networks)
	return out
}
