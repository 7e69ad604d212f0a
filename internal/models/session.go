package models

import (
	"context"
	"time"
)

// Role is an operator role in the maintenance portal.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleOfficer    Role = "Officer"
	RoleEngineer   Role = "Engineer"
	RoleTechnician Role = "Technician"
)

// SessionTimeout is how long an operator session stays valid without activity.
const SessionTimeout = time.Hour

// Session identifies the operator a voice command is processed for.
type Session struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId,omitempty"`
	Name         string    `json:"name,omitempty"`
	Role         Role      `json:"role,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired checks if the session has been idle longer than SessionTimeout
func (s *Session) IsExpired() bool {
	return time.Since(s.LastActivity) > SessionTimeout
}

// UpdateActivity updates the last activity timestamp
func (s *Session) UpdateActivity() {
	s.LastActivity = time.Now()
}

type sessionKey struct{}

// WithSession attaches a session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached to ctx, or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
