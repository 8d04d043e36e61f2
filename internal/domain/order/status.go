package order

// Status is an order's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an admin-driven move from s to next is legal.
// The machine is permissive among non-terminal states, with two restrictions:
// terminal states accept no further transitions, and cancelled is reachable
// only through Cancel so that stock restoration always accompanies it.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return false
	}
	return s != next
}
