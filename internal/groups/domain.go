// Package groups manages expense-sharing groups and their membership.
// Every other domain gates access through membership in these groups.
package groups

import "time"

// Group is a shared ledger owned by one user.
type Group struct {
	ID          int64
	Name        string
	OwnerUserID int64
	CreatedAt   time.Time
}

// Member is a user enrolled in a group.
type Member struct {
	ID       int64
	Username string
	Email    string
	JoinedAt time.Time
}
