package models

// NotifyRequest is the body of POST /v1/notifications/send.
type NotifyRequest struct {
	// Recipients are the user ids to notify.
	Recipients []string `json:"recipients"`

	// Tier, when known, names the partition to probe first.
	Tier string `json:"tier,omitempty"`

	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// NotifyResponse reports the outcome of a direct send.
type NotifyResponse struct {
	// Delivered is the number of device tokens accepted by the provider.
	Delivered int `json:"delivered"`

	// Failed is the number of device tokens rejected by the provider.
	// Rejected tokens are pruned from the directory.
	Failed int `json:"failed"`
}
