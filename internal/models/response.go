package models

// ResponseEnvelope is the canonical response shape for the connector API.
type ResponseEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NotifyRequest is the body of /notify and /batch.
type NotifyRequest struct {
	Messages []UpdateMessage `json:"messages" binding:"required"`
}

// StatusReport is the outcome of a connector status check.
type StatusReport struct {
	Status   string   `json:"status"`
	Messages []string `json:"messages"`
}
