// Package admin manages administrator access requests: listing pending
// requests and approving them by granting the admin custom claim.
package admin

import (
	"errors"
	"time"
)

// Request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

var (
	// ErrRequestNotFound indicates no request exists with the given id.
	ErrRequestNotFound = errors.New("admin request not found")

	// ErrAlreadyApproved indicates the request was approved before.
	ErrAlreadyApproved = errors.New("admin request already approved")
)

// Request is an admin access request document.
type Request struct {
	ID          string     `firestore:"-" json:"id"`
	UID         string     `firestore:"uid" json:"uid"`
	Email       string     `firestore:"email,omitempty" json:"email,omitempty"`
	Status      string     `firestore:"status" json:"status"`
	RequestedAt time.Time  `firestore:"requestedAt" json:"requestedAt"`
	ApprovedBy  string     `firestore:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `firestore:"approvedAt,omitempty" json:"approvedAt,omitempty"`
}
