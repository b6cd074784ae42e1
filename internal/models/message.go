package models

import "strings"

// Segment is a platform segment the user belongs to.
type Segment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is a platform-tracked event attached to an update notification.
type Event struct {
	ID         string     `json:"id"`
	Event      string     `json:"event"`
	Properties Attributes `json:"properties"`
	Context    Attributes `json:"context"`
	CreatedAt  string     `json:"created_at"`
}

// User is the platform user record: a flat attribute bag with an optional
// nested "account" object.
type User Attributes

func (u User) Attrs() Attributes { return Attributes(u) }

func (u User) ID() string { return u.Attrs().Get("id").String() }
func (u User) Email() string { return u.Attrs().Get("email").String() }
func (u User) IndexedAt() string { return u.Attrs().Get("indexed_at").String() }

// ChangeSet lists what changed since the previous notification. Each user
// entry holds [previous, current].
type ChangeSet struct {
	User     map[string][]Value   `json:"user,omitempty"`
	Segments map[string][]Segment `json:"segments,omitempty"`
}

// OnlyTouches reports whether the change set is non-empty and every changed
// user attribute starts with prefix.
func (c ChangeSet) OnlyTouches(prefix string) bool {
	if len(c.User) == 0 {
		return false
	}
	for _, seg := range c.Segments {
		if len(seg) > 0 {
			return false
		}
	}
	for key := range c.User {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
	}
	return true
}

// UpdateMessage is one user-update notification from the platform.
type UpdateMessage struct {
	User     User       `json:"user"`
	Account  Attributes `json:"account,omitempty"`
	Segments []Segment  `json:"segments"`
	Events   []Event    `json:"events"`
	Changes  ChangeSet  `json:"changes"`
}

// SegmentNames returns the names of the message segments in order.
func (m UpdateMessage) SegmentNames() []string {
	names := make([]string, 0, len(m.Segments))
	for _, s := range m.Segments {
		names = append(names, s.Name)
	}
	return names
}
