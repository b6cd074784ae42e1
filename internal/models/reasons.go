package models

// Skip and error reasons shared by every log line the connector writes.
const (
	ReasonMissingEmail        = "missing email"
	ReasonNotInSegments       = "not in synchronized segments"
	ReasonNeverSynced         = "not in synchronized segments and never synced, nothing to delete"
	ReasonAlreadyDeleted      = "not in synchronized segments and already deleted"
	ReasonMissingID           = "missing identifier value"
	ReasonNoChanges           = "no changes to process"
	ReasonEventNotWhitelisted = "event not whitelisted"
	ReasonUserNotSynced       = "user is not synchronized"
	ReasonNoAnonymousEvents   = "missing identifier value and anonymous events are disabled"
)
