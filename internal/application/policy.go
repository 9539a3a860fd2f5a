package application

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role int

const (
	RoleCustomer Role = iota + 1
	RoleEmployee
	RoleManager
)

// ParseRole converts a stored or user supplied role name.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "customer":
		return RoleCustomer, nil
	case "employee":
		return RoleEmployee, nil
	case "manager":
		return RoleManager, nil
	default:
		return 0, fmt.Errorf("unknown role %q", value)
	}
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleEmployee:
		return "employee"
	case RoleManager:
		return "manager"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleCustomer && r <= RoleManager
}

// IsStaff reports whether the role belongs to facility personnel.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleManager
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID int64
	Role   Role
}

// Action names an operation subject to authorization.
type Action int

const (
	ActionBookForSelf Action = iota + 1
	ActionBookForOthers
	ActionOverrideRate
	ActionViewAllReservations
	ActionConfirmReservation
	ActionCancelAnyReservation
	ActionManageCourts
	ActionViewUsers
	ActionManageUsers
	ActionViewDashboard
	ActionAssignTasks
	ActionViewAllTasks
	ActionManageEvents
	ActionJoinEvents
)

var actionNames = map[Action]string{
	ActionBookForSelf:          "book_for_self",
	ActionBookForOthers:        "book_for_others",
	ActionOverrideRate:         "override_rate",
	ActionViewAllReservations:  "view_all_reservations",
	ActionConfirmReservation:   "confirm_reservation",
	ActionCancelAnyReservation: "cancel_any_reservation",
	ActionManageCourts:         "manage_courts",
	ActionViewUsers:            "view_users",
	ActionManageUsers:          "manage_users",
	ActionViewDashboard:        "view_dashboard",
	ActionAssignTasks:          "assign_tasks",
	ActionViewAllTasks:         "view_all_tasks",
	ActionManageEvents:         "manage_events",
	ActionJoinEvents:           "join_events",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Authorize is the single authorization policy. It returns ErrUnauthorized
// when principal may not perform action.
func Authorize(principal Principal, action Action) error {
	if principal.UserID == 0 || !principal.Role.Valid() {
		return ErrUnauthorized
	}

	var allowed bool
	switch principal.Role {
	case RoleManager:
		allowed = true
	case RoleEmployee:
		switch action {
		case ActionBookForSelf, ActionBookForOthers, ActionViewAllReservations,
			ActionConfirmReservation, ActionCancelAnyReservation, ActionViewUsers,
			ActionViewDashboard, ActionJoinEvents:
			allowed = true
		}
	case RoleCustomer:
		switch action {
		case ActionBookForSelf, ActionJoinEvents:
			allowed = true
		}
	}

	if !allowed {
		return ErrUnauthorized
	}
	return nil
}
