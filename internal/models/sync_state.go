package models

// Sync-state trait fields written back to the platform.
const (
	TraitID        = "id"
	TraitCreatedAt = "created_at"
	TraitDeletedAt = "deleted_at"
	TraitHash      = "hash"
)

// Lifecycle is the synchronization state of a user, derived once per envelope.
type Lifecycle int

const (
	NeverSynced Lifecycle = iota
	Active
	Deleted
)

func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case Deleted:
		return "deleted"
	default:
		return "never_synced"
	}
}

// Namespace names the trait group the connector owns on the platform user,
// e.g. "customerio".
type Namespace string

// ReadKey is the key under which the platform exposes a sync-state trait on
// the user record ("traits_customerio/created_at").
func (n Namespace) ReadKey(field string) string {
	return "traits_" + string(n) + "/" + field
}

// WriteKey is the key used when writing a trait back ("customerio/created_at").
func (n Namespace) WriteKey(field string) string {
	return string(n) + "/" + field
}

// Prefix is the read prefix shared by every trait in the namespace.
func (n Namespace) Prefix() string {
	return "traits_" + string(n) + "/"
}

// SyncState is the last known synchronization outcome stored on the user.
type SyncState struct {
	ID        Value
	CreatedAt Value
	DeletedAt Value
	Hash      string
}

// ReadSyncState extracts the connector's traits from a platform user.
func ReadSyncState(u User, ns Namespace) SyncState {
	attrs := u.Attrs()
	return SyncState{
		ID:        attrs.Get(ns.ReadKey(TraitID)),
		CreatedAt: attrs.Get(ns.ReadKey(TraitCreatedAt)),
		DeletedAt: attrs.Get(ns.ReadKey(TraitDeletedAt)),
		Hash:      attrs.Get(ns.ReadKey(TraitHash)).String(),
	}
}

// Lifecycle collapses the stored traits into one state. A set deleted_at wins
// over a stale created_at.
func (s SyncState) Lifecycle() Lifecycle {
	switch {
	case !s.DeletedAt.IsNull():
		return Deleted
	case !s.CreatedAt.IsNull():
		return Active
	default:
		return NeverSynced
	}
}
