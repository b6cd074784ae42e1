package services

import "github.com/fossabot/hull-customerio/internal/models"

// SubscriptionProbeID is the event id the service sends when a webhook
// endpoint is first registered.
const SubscriptionProbeID = "abc123"

// webhookEvents maps service event types to platform event names. Types not
// listed here are ignored.
var webhookEvents = map[string]string{
	"customer_subscribed":   "Customer Subscribed",
	"customer_unsubscribed": "Customer Unsubscribed",
	"email_attempted":       "Email Attempted",
	"email_bounced":         "Email Bounced",
	"email_clicked":         "Email Link Clicked",
	"email_converted":       "Email Converted",
	"email_delivered":       "Email Delivered",
	"email_drafted":         "Email Drafted",
	"email_dropped":         "Email Dropped",
	"email_failed":          "Email Failed",
	"email_opened":          "Email Opened",
	"email_sent":            "Email Sent",
	"email_spammed":         "Email Marked as Spam",
	"email_unsubscribed":    "Unsubscribed",
}

// WebhookEventName returns the platform name of a service event type.
func WebhookEventName(eventType string) (string, bool) {
	name, ok := webhookEvents[eventType]
	return name, ok
}

// TranslateWebhook turns a callback into the user and event to track. ok is
// false for payloads that must be ignored.
func TranslateWebhook(p models.WebhookPayload, userIDMapping string) (models.UserIdent, models.PlatformEvent, bool) {
	if p.EventID == "" || p.EventID == SubscriptionProbeID {
		return models.UserIdent{}, models.PlatformEvent{}, false
	}
	name, ok := WebhookEventName(p.EventType)
	if !ok {
		return models.UserIdent{}, models.PlatformEvent{}, false
	}

	var ident models.UserIdent
	if userIDMapping == "external_id" {
		ident.ExternalID = p.Data.CustomerID
	} else {
		ident.Email = p.Data.EmailAddress
	}

	event := models.PlatformEvent{
		Name: name,
		Properties: models.Attributes{
			"email_address": models.String(p.Data.EmailAddress),
			"email_id":      models.String(p.Data.EmailID),
			"template_id":   p.Data.TemplateID,
			"email_subject": models.String(p.Data.Subject),
			"customer_id":   models.String(p.Data.CustomerID),
			"campaign_id":   p.Data.CampaignID,
			"campaign_name": models.String(p.Data.CampaignName),
		},
		Context: models.Attributes{
			"ip":         models.String("0"),
			"event_id":   models.String(p.EventID),
			"created_at": models.Number(float64(p.Timestamp)),
		},
	}
	return ident, event, true
}
