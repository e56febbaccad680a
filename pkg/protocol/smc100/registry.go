package smc100

import (
	"fmt"
	"sync"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
)

// Registry is the set of controllers sharing one Link: the link-owning
// primary (address 0, no command prefix) plus an ordered, append-only
// sequence of addressed secondaries. No controller bypasses the Link to
// reach the transport.
type Registry struct {
	link    *Link
	primary *Controller

	mu          sync.Mutex
	secondaries []*Controller
}

func NewRegistry(link *Link) *Registry {
	primary, _ := newController(link, smcruntime.PrimaryAddress)
	return &Registry{
		link:    link,
		primary: primary,
	}
}

func (r *Registry) Link() *Link { return r.link }

func (r *Registry) Primary() *Controller { return r.primary }

// Secondary creates a controller for a bus address in [1, 31] and appends it
// to the registry. Secondaries are never removed. Reusing an address fails.
func (r *Registry) Secondary(address int) (*Controller, error) {
	if address < smcruntime.MinAxisAddress || address > smcruntime.MaxAxisAddress {
		return nil, fmt.Errorf("smc100: secondary address %d outside [%d, %d]", address, smcruntime.MinAxisAddress, smcruntime.MaxAxisAddress)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.secondaries {
		if c.address == address {
			return nil, smcruntime.ErrAxisAddressConflict
		}
	}
	controller, err := newController(r.link, address)
	if err != nil {
		return nil, err
	}
	r.secondaries = append(r.secondaries, controller)
	return controller, nil
}

// Controller resolves a bus address to its controller; address 0 is the
// primary.
func (r *Registry) Controller(address int) (*Controller, bool) {
	if address == smcruntime.PrimaryAddress {
		return r.primary, true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.secondaries {
		if c.address == address {
			return c, true
		}
	}
	return nil, false
}

// AllConnected reports whether the primary and every secondary on the chain
// are connected.
func (r *Registry) AllConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.primary.IsConnected() {
		return false
	}
	for _, c := range r.secondaries {
		if !c.IsConnected() {
			return false
		}
	}
	return true
}

// Controllers returns the primary followed by the secondaries in creation
// order.
func (r *Registry) Controllers() []*Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Controller, 0, len(r.secondaries)+1)
	out = append(out, r.primary)
	out = append(out, r.secondaries...)
	return out
}
