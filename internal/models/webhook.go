package models

// WebhookPayload is the callback body posted by the marketing service.
type WebhookPayload struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Timestamp int64       `json:"timestamp"`
	Data      WebhookData `json:"data"`
}

// WebhookData holds the customer and campaign fields of a callback.
type WebhookData struct {
	EmailAddress string `json:"email_address"`
	EmailID      string `json:"email_id"`
	CustomerID   string `json:"customer_id"`
	CampaignID   Value  `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	TemplateID   Value  `json:"template_id"`
	Subject      string `json:"subject"`
}
