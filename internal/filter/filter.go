// Package filter deduplicates update notifications and decides which outbound
// action each user gets. It never touches the network.
package filter

import (
	"sort"
	"strconv"

	"github.com/fossabot/hull-customerio/internal/models"
)

// Options configures a Filter.
type Options struct {
	SynchronizedSegments    []string
	SynchronizedEvents      []string
	IgnoreUsersWithoutEmail bool
	DeletionEnabled         bool
	UserIDMapping           string
	Namespace               models.Namespace
}

// Filter classifies envelopes and events against the connector settings.
type Filter struct {
	opts     Options
	segments map[string]struct{}
	events   map[string]struct{}
}

func New(opts Options) *Filter {
	if opts.UserIDMapping == "" {
		opts.UserIDMapping = "external_id"
	}
	return &Filter{
		opts:     opts,
		segments: toSet(opts.SynchronizedSegments),
		events:   toSet(opts.SynchronizedEvents),
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// ServiceID returns the value of the configured identifier attribute, or the
// empty string when it is absent or null.
func (f *Filter) ServiceID(user models.User) string {
	return user.Attrs().Get(f.opts.UserIDMapping).String()
}

// MatchesSegments reports whether the message is in at least one synchronized
// segment.
func (f *Filter) MatchesSegments(msg models.UpdateMessage) bool {
	for _, s := range msg.Segments {
		if _, ok := f.segments[s.ID]; ok {
			return true
		}
	}
	return false
}

// Classify sorts envelopes into skip, insert, update and delete. Rules are
// evaluated in order and the first match wins.
func (f *Filter) Classify(envelopes []*models.Envelope) models.FilterResults[*models.Envelope] {
	var results models.FilterResults[*models.Envelope]

	for _, env := range envelopes {
		env.Lifecycle = models.ReadSyncState(env.Message.User, f.opts.Namespace).Lifecycle()

		switch f.classify(env) {
		case models.ClassInsert:
			env.Classification = models.ClassInsert
			results.ToInsert = append(results.ToInsert, env)
		case models.ClassUpdate:
			env.Classification = models.ClassUpdate
			results.ToUpdate = append(results.ToUpdate, env)
		case models.ClassDelete:
			env.Classification = models.ClassDelete
			results.ToDelete = append(results.ToDelete, env)
		default:
			results.ToSkip = append(results.ToSkip, env)
		}
	}
	return results
}

func (f *Filter) classify(env *models.Envelope) models.Classification {
	user := env.Message.User

	if user.Email() == "" && f.opts.IgnoreUsersWithoutEmail {
		env.Skip(models.ReasonMissingEmail)
		return models.ClassSkip
	}

	if !f.MatchesSegments(env.Message) {
		if !f.opts.DeletionEnabled {
			env.Skip(models.ReasonNotInSegments)
			return models.ClassSkip
		}
		switch env.Lifecycle {
		case models.Active:
			return models.ClassDelete
		case models.Deleted:
			env.Skip(models.ReasonAlreadyDeleted)
			return models.ClassSkip
		case models.NeverSynced:
			env.Skip(models.ReasonNeverSynced)
			return models.ClassSkip
		}
	}

	if f.ServiceID(user) == "" {
		env.Skip(models.ReasonMissingID)
		return models.ClassSkip
	}

	switch env.Lifecycle {
	case models.Active:
		return models.ClassUpdate
	default:
		return models.ClassInsert
	}
}

// FilterEvents partitions events by whether their canonical name is
// whitelisted. The match is exact and case-sensitive.
func (f *Filter) FilterEvents(events []models.Event) models.FilterResults[models.Event] {
	var results models.FilterResults[models.Event]
	for _, e := range events {
		if _, ok := f.events[e.Event]; ok {
			results.ToInsert = append(results.ToInsert, e)
			continue
		}
		results.ToSkip = append(results.ToSkip, e)
	}
	return results
}

// DeduplicateMessages collapses notifications for the same user. The most
// recently indexed snapshot wins; events from every message in the group are
// merged in source order, keeping the first occurrence of each event id.
// Groups are returned in order of first appearance.
func DeduplicateMessages(messages []models.UpdateMessage) []models.UpdateMessage {
	if len(messages) == 0 {
		return nil
	}

	var order []string
	groups := make(map[string][]int)
	for i, msg := range messages {
		key := groupKey(msg, i)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := make([]models.UpdateMessage, 0, len(order))
	for _, key := range order {
		idx := groups[key]

		latest := append([]int(nil), idx...)
		sort.SliceStable(latest, func(a, b int) bool {
			return messages[latest[a]].User.IndexedAt() < messages[latest[b]].User.IndexedAt()
		})
		merged := messages[latest[len(latest)-1]]

		seen := make(map[string]bool)
		events := make([]models.Event, 0)
		for _, i := range idx {
			for _, e := range messages[i].Events {
				if e.ID != "" {
					if seen[e.ID] {
						continue
					}
					seen[e.ID] = true
				}
				events = append(events, e)
			}
		}
		merged.Events = events
		out = append(out, merged)
	}
	return out
}

// groupKey prefers the platform user id, then the email. Messages without
// either are never merged.
func groupKey(msg models.UpdateMessage, index int) string {
	if id := msg.User.ID(); id != "" {
		return "id:" + id
	}
	if email := msg.User.Email(); email != "" {
		return "email:" + email
	}
	return "idx:" + strconv.Itoa(index)
}
