package models

// ApproveRequest is the body of POST /v1/admin/requests/approve.
type ApproveRequest struct {
	// RequestID identifies the admin_requests document to approve.
	RequestID string `json:"requestId"`
}
