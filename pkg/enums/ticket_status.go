package enums

import "fmt"

// TicketStatus tracks the lifecycle of a draft sale ticket.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPaid    TicketStatus = "paid"
	TicketStatusDeleted TicketStatus = "deleted"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusPaid,
	TicketStatusDeleted,
}

// String implements fmt.Stringer.
func (t TicketStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TicketStatus.
func (t TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a ticket in this status accepts further mutation.
func (t TicketStatus) IsTerminal() bool {
	return t == TicketStatusPaid || t == TicketStatusDeleted
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
