package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fossabot/hull-customerio/internal/models"
)

const ns = models.Namespace("customerio")

func newFilter(deletion, ignoreNoEmail bool) *Filter {
	return New(Options{
		SynchronizedSegments:    []string{"S1"},
		SynchronizedEvents:      []string{"page", "custom"},
		IgnoreUsersWithoutEmail: ignoreNoEmail,
		DeletionEnabled:         deletion,
		UserIDMapping:           "ext_id",
		Namespace:               ns,
	})
}

func envelope(user models.User, segments ...string) *models.Envelope {
	msg := models.UpdateMessage{User: user}
	for _, id := range segments {
		msg.Segments = append(msg.Segments, models.Segment{ID: id, Name: "segment " + id})
	}
	return &models.Envelope{Message: msg}
}

func syncedUser() models.User {
	return models.User{
		"email":                        models.String("a@b.com"),
		"ext_id":                       models.String("1"),
		"traits_customerio/created_at": models.Number(1500000000),
		"traits_customerio/id":         models.String("1"),
	}
}

func TestClassify(t *testing.T) {
	newUser := models.User{"email": models.String("a@b.com"), "ext_id": models.String("1")}
	deletedUser := models.User{
		"email":                        models.String("a@b.com"),
		"ext_id":                       models.String("1"),
		"traits_customerio/deleted_at": models.String("2018-01-01T00:00:00Z"),
	}

	tests := []struct {
		name       string
		filter     *Filter
		env        *models.Envelope
		want       models.Classification
		wantReason string
	}{
		{
			name:       "missing email ignored",
			filter:     newFilter(false, true),
			env:        envelope(models.User{"ext_id": models.String("1")}, "S1"),
			want:       models.ClassSkip,
			wantReason: models.ReasonMissingEmail,
		},
		{
			name:   "missing email allowed",
			filter: newFilter(false, false),
			env:    envelope(models.User{"ext_id": models.String("1")}, "S1"),
			want:   models.ClassInsert,
		},
		{
			name:       "not in segments without deletion",
			filter:     newFilter(false, false),
			env:        envelope(syncedUser(), "S2"),
			want:       models.ClassSkip,
			wantReason: models.ReasonNotInSegments,
		},
		{
			name:   "not in segments with deletion and prior state",
			filter: newFilter(true, false),
			env:    envelope(syncedUser()),
			want:   models.ClassDelete,
		},
		{
			name:       "not in segments with deletion and never synced",
			filter:     newFilter(true, false),
			env:        envelope(newUser, "S2"),
			want:       models.ClassSkip,
			wantReason: models.ReasonNeverSynced,
		},
		{
			name:       "not in segments with deletion and already deleted",
			filter:     newFilter(true, false),
			env:        envelope(deletedUser),
			want:       models.ClassSkip,
			wantReason: models.ReasonAlreadyDeleted,
		},
		{
			name:       "missing identifier",
			filter:     newFilter(false, false),
			env:        envelope(models.User{"email": models.String("a@b.com"), "ext_id": models.Null()}, "S1"),
			want:       models.ClassSkip,
			wantReason: models.ReasonMissingID,
		},
		{
			name:   "new user",
			filter: newFilter(false, false),
			env:    envelope(newUser, "S1"),
			want:   models.ClassInsert,
		},
		{
			name:   "deleted user back in segment is reinserted",
			filter: newFilter(true, false),
			env:    envelope(deletedUser, "S1"),
			want:   models.ClassInsert,
		},
		{
			name:   "synced user",
			filter: newFilter(true, false),
			env:    envelope(syncedUser(), "S2", "S1"),
			want:   models.ClassUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := tt.filter.Classify([]*models.Envelope{tt.env})

			assert.Equal(t, tt.want, tt.env.Classification)
			assert.Equal(t, tt.wantReason, tt.env.SkipReason)
			total := len(results.ToSkip) + len(results.ToInsert) + len(results.ToUpdate) + len(results.ToDelete)
			assert.Equal(t, 1, total, "envelope must land in exactly one bucket")
		})
	}
}

func TestClassify_Partitions(t *testing.T) {
	f := newFilter(true, true)
	envs := []*models.Envelope{
		envelope(models.User{"email": models.String("a@b.com"), "ext_id": models.String("1")}, "S1"),
		envelope(syncedUser(), "S1"),
		envelope(syncedUser()),
		envelope(models.User{"ext_id": models.String("3")}, "S1"),
	}

	results := f.Classify(envs)

	require.Len(t, results.ToInsert, 1)
	require.Len(t, results.ToUpdate, 1)
	require.Len(t, results.ToDelete, 1)
	require.Len(t, results.ToSkip, 1)
	assert.Same(t, envs[3], results.ToSkip[0])
	assert.Equal(t, models.Active, results.ToDelete[0].Lifecycle)
}

func TestFilterEvents(t *testing.T) {
	f := newFilter(false, false)
	events := []models.Event{
		{ID: "1", Event: "page"},
		{ID: "2", Event: "custom"},
		{ID: "3", Event: "unlisted"},
		{ID: "4", Event: "Page"},
	}

	results := f.FilterEvents(events)

	assert.Equal(t, []models.Event{events[0], events[1]}, results.ToInsert)
	assert.Equal(t, []models.Event{events[2], events[3]}, results.ToSkip)
}

func TestDeduplicateMessages(t *testing.T) {
	messages := []models.UpdateMessage{
		{
			User:   models.User{"id": models.String("u1"), "indexed_at": models.String("2017-01-02T00:00:00Z"), "name": models.String("newest")},
			Events: []models.Event{{ID: "e1", Event: "a"}, {ID: "e2", Event: "b"}},
		},
		{
			User:   models.User{"id": models.String("u2"), "indexed_at": models.String("2017-01-01T00:00:00Z")},
			Events: []models.Event{{ID: "e9", Event: "z"}},
		},
		{
			User:   models.User{"id": models.String("u1"), "indexed_at": models.String("2017-01-01T00:00:00Z"), "name": models.String("older")},
			Events: []models.Event{{ID: "e2", Event: "b-duplicate"}, {ID: "e3", Event: "c"}},
		},
	}

	got := DeduplicateMessages(messages)

	require.Len(t, got, 2)
	assert.Equal(t, "newest", got[0].User.Attrs().Get("name").String())
	require.Len(t, got[0].Events, 3)
	assert.Equal(t, "a", got[0].Events[0].Event)
	assert.Equal(t, "b", got[0].Events[1].Event)
	assert.Equal(t, "c", got[0].Events[2].Event)
	assert.Equal(t, "u2", got[1].User.ID())

	// the source messages are left untouched
	assert.Len(t, messages[0].Events, 2)
}

func TestDeduplicateMessages_EmptyAndAnonymous(t *testing.T) {
	assert.Empty(t, DeduplicateMessages(nil))

	got := DeduplicateMessages([]models.UpdateMessage{
		{User: models.User{"name": models.String("x")}},
		{User: models.User{"name": models.String("y")}},
	})
	assert.Len(t, got, 2)
}

func TestDeduplicateMessages_TieKeepsLastMessage(t *testing.T) {
	got := DeduplicateMessages([]models.UpdateMessage{
		{User: models.User{"id": models.String("u1"), "name": models.String("first")}},
		{User: models.User{"id": models.String("u1"), "name": models.String("second")}},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].User.Attrs().Get("name").String())
}
