package models

// Customer is the service-side representation of a platform user. Attributes
// is flat and always carries "email".
type Customer struct {
	ID         string
	Attributes Attributes
}

// CustomerEvent is the body of an event call to the service.
type CustomerEvent struct {
	Type string     `json:"type,omitempty"`
	Name string     `json:"name"`
	Data Attributes `json:"data"`
}
