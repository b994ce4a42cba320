package model

import (
	"errors"
	"strings"
)

// Capability is an opaque permission token from a closed set.
type Capability string

const (
	CapPatientsRead      Capability = "patients:read"
	CapPatientsWrite     Capability = "patients:write"
	CapAppointmentsRead  Capability = "appointments:read"
	CapAppointmentsWrite Capability = "appointments:write"
	CapLabsRead          Capability = "labs:read"
	CapLabsWrite         Capability = "labs:write"
	CapAffiliationsRead  Capability = "affiliations:read"
	CapAffiliationsWrite Capability = "affiliations:write"
	CapFinanceRead       Capability = "finance:read"
	CapFinanceWrite      Capability = "finance:write"
	CapFinanceAdmin      Capability = "finance:admin"
	CapNotificationsSend Capability = "notifications:send"
	CapUsersAdmin        Capability = "users:admin"

	// CapAdminAll is the wildcard held by the admin role.
	CapAdminAll Capability = "admin:all"
)

var capabilities = map[Capability]struct{}{
	CapPatientsRead:      {},
	CapPatientsWrite:     {},
	CapAppointmentsRead:  {},
	CapAppointmentsWrite: {},
	CapLabsRead:          {},
	CapLabsWrite:         {},
	CapAffiliationsRead:  {},
	CapAffiliationsWrite: {},
	CapFinanceRead:       {},
	CapFinanceWrite:      {},
	CapFinanceAdmin:      {},
	CapNotificationsSend: {},
	CapUsersAdmin:        {},
	CapAdminAll:          {},
}

var ErrUnknownCapability = errors.New("unknown capability")

// ParseCapability accepts only members of the closed set.
func ParseCapability(raw string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", ErrUnknownCapability
	}
	return c, nil
}

func (c Capability) Valid() bool {
	_, ok := capabilities[c]
	return ok
}

// Capabilities returns every known capability, in no particular order.
func Capabilities() []Capability {
	out := make([]Capability, 0, len(capabilities))
	for c := range capabilities {
		out = append(out, c)
	}
	return out
}
