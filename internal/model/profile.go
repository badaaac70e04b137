package model

import (
	"time"
)

// Role values are the wire values used by the hosted backend; the original
// schema predates this service, so the member role keeps its Spanish literal.
type Role string

const (
	RoleMember Role = "socio"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// LandingPath is where a principal with this role belongs by default.
func (r Role) LandingPath() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// Profile is the application-level record associated 1:1 with an identity.
type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Nombre           string    `json:"nombre"`
	DNI              string    `json:"dni"`
	FechaVencimiento time.Time `json:"fecha_vencimiento"`
	Role             Role      `json:"role"`
	Status           bool      `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type DueState string

const (
	DueActive   DueState = "activo"
	DueExpiring DueState = "por_vencer"
	DueOverdue  DueState = "vencido"
)

// expiringWindowDays is how close to the expiry date a membership starts
// showing the warning state.
const expiringWindowDays = 3

type DueStatus struct {
	State    DueState `json:"estado"`
	DaysLeft int      `json:"dias_restantes"`
}

// ClassifyDue compares the membership expiry date against now, at day
// granularity. Negative DaysLeft means the membership lapsed that many days ago.
func ClassifyDue(fechaVencimiento time.Time, now time.Time) DueStatus {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	due := time.Date(fechaVencimiento.Year(), fechaVencimiento.Month(), fechaVencimiento.Day(), 0, 0, 0, 0, now.Location())

	days := int(due.Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return DueStatus{State: DueOverdue, DaysLeft: days}
	case days <= expiringWindowDays:
		return DueStatus{State: DueExpiring, DaysLeft: days}
	default:
		return DueStatus{State: DueActive, DaysLeft: days}
	}
}

func (p Profile) Due(now time.Time) DueStatus {
	return ClassifyDue(p.FechaVencimiento, now)
}
