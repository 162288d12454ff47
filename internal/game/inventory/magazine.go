package inventory

import (
	"errors"
	"fmt"
)

// ErrMagazineEmpty is returned by Consume when too few rounds remain.
var ErrMagazineEmpty = errors.New("inventory: Magazine.Consume: insufficient rounds loaded")

// Magazine tracks the rounds available to one combatant for a single
// encounter. There is no reload: once empty it stays empty.
// Invariant: 0 <= Loaded <= Capacity.
type Magazine struct {
	// Loaded is the number of rounds currently available.
	Loaded int
	// Capacity is the number of rounds the magazine started with.
	Capacity int
}

// NewMagazine returns a fully loaded Magazine.
//
// Precondition:  capacity > 0 (panics otherwise).
// Postcondition: Loaded == Capacity == capacity.
func NewMagazine(capacity int) *Magazine {
	if capacity <= 0 {
		panic(fmt.Sprintf("inventory: NewMagazine: capacity must be > 0, got %d", capacity))
	}
	return &Magazine{Loaded: capacity, Capacity: capacity}
}

// IsEmpty returns true when Loaded <= 0.
//
// Postcondition: result == (Loaded <= 0).
func (m *Magazine) IsEmpty() bool {
	return m.Loaded <= 0
}

// Spent returns the number of rounds fired so far.
//
// Postcondition: Spent() + Loaded == Capacity.
func (m *Magazine) Spent() int {
	return m.Capacity - m.Loaded
}

// Consume removes n rounds from the magazine.
//
// Precondition:  n > 0 (panics if n <= 0).
// Postcondition: on success Loaded decreases by n; returns ErrMagazineEmpty
// and leaves Loaded unchanged if Loaded < n.
func (m *Magazine) Consume(n int) error {
	if n <= 0 {
		panic(fmt.Sprintf("inventory: Magazine.Consume: n must be > 0, got %d", n))
	}
	if m.Loaded < n {
		return ErrMagazineEmpty
	}
	m.Loaded -= n
	return nil
}
