package models

// Classification is the outbound action chosen for one envelope.
type Classification int

const (
	ClassSkip Classification = iota
	ClassInsert
	ClassUpdate
	ClassDelete
)

func (c Classification) String() string {
	switch c {
	case ClassInsert:
		return "insert"
	case ClassUpdate:
		return "update"
	case ClassDelete:
		return "delete"
	default:
		return "skip"
	}
}

// Envelope carries one deduplicated user through a single batch run.
type Envelope struct {
	Message        UpdateMessage
	Lifecycle      Lifecycle
	Customer       Customer
	CustomerHash   string
	EventsToSend   []Event
	EventsSkipped  []Event
	Classification Classification
	SkipReason     string
}

// Skip marks the envelope as skipped with reason.
func (e *Envelope) Skip(reason string) {
	e.Classification = ClassSkip
	e.SkipReason = reason
}

// FilterResults partitions items by outbound action.
type FilterResults[T any] struct {
	ToSkip   []T
	ToInsert []T
	ToUpdate []T
	ToDelete []T
}
