// Package model contains domain models passed between layers.
package model

import "time"

// Role is a judge's role on an event.
type Role string

// Roles.
const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleMentor    Role = "mentor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleSecondary, RoleMentor:
		return true
	}
	return false
}

// Judge is a user designated to review submissions. Judges are deactivated, never deleted.
type Judge struct {
	ID        string    `json:"id"`
	Expertise []string  `json:"expertise,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventAssignment authorizes a judge to receive work for an event.
// Unique per (JudgeID, EventID).
type EventAssignment struct {
	JudgeID    string    `json:"judge_id"`
	EventID    string    `json:"event_id"`
	Role       Role      `json:"role"`
	Active     bool      `json:"active"`
	AssignedAt time.Time `json:"assigned_at"`
}
