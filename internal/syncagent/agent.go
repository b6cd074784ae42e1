// Package syncagent turns batches of platform user-update notifications into
// customer.io calls and writes the sync outcome back to the platform.
package syncagent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fossabot/hull-customerio/internal/filter"
	"github.com/fossabot/hull-customerio/internal/hashutil"
	"github.com/fossabot/hull-customerio/internal/mapper"
	"github.com/fossabot/hull-customerio/internal/models"
)

// Metric names.
const (
	MetricOutgoingUsers  = "ship.outgoing.users"
	MetricOutgoingEvents = "ship.outgoing.events"
	MetricErrors         = "ship.errors"
)

const defaultConcurrency = 10

var (
	// ErrNotConfigured is returned when credentials or the id mapping are missing.
	ErrNotConfigured = errors.New("connector is not configured")
	// ErrInvalidCredentials is returned when the service rejects the credentials.
	ErrInvalidCredentials = errors.New("customer.io credentials are invalid")
)

// ServiceClient is the subset of the customer.io client the agent drives.
type ServiceClient interface {
	IsConfigured() bool
	CheckAuth(ctx context.Context) (bool, error)
	Identify(ctx context.Context, id string, attrs models.Attributes) error
	DeleteCustomer(ctx context.Context, id string) error
	SendEvent(ctx context.Context, id, name string, data models.Attributes) error
	SendPageEvent(ctx context.Context, id, page string, data models.Attributes) error
	SendAnonymousEvent(ctx context.Context, name string, data models.Attributes) error
}

// Platform receives sync-state write-backs.
type Platform interface {
	Traits(ctx context.Context, user models.UserIdent, traits models.Attributes) error
}

// Metrics counts outcomes.
type Metrics interface {
	Increment(name string, delta int64)
}

// Options configures an Agent.
type Options struct {
	Filter          filter.Options
	Attributes      []string
	AnonymousEvents bool
	// Concurrency bounds the users processed at once within a batch.
	Concurrency int
	Now         func() time.Time
}

// Agent runs the notification pipeline for one connector.
type Agent struct {
	client   ServiceClient
	platform Platform
	metrics  Metrics
	logger   *slog.Logger

	filter          *filter.Filter
	mapper          *mapper.Mapper
	namespace       models.Namespace
	idMapping       string
	anonymousEvents bool
	concurrency     int
	now             func() time.Time
}

// New creates an Agent.
func New(client ServiceClient, platform Platform, metrics Metrics, logger *slog.Logger, opts Options) *Agent {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Filter.Namespace == "" {
		opts.Filter.Namespace = "customerio"
	}
	return &Agent{
		client:          client,
		platform:        platform,
		metrics:         metrics,
		logger:          logger,
		filter:          filter.New(opts.Filter),
		mapper:          mapper.New(opts.Attributes, opts.Filter.Namespace),
		namespace:       opts.Filter.Namespace,
		idMapping:       opts.Filter.UserIDMapping,
		anonymousEvents: opts.AnonymousEvents,
		concurrency:     opts.Concurrency,
		now:             opts.Now,
	}
}

// IsConfigured reports whether the credentials and the id mapping are set.
func (a *Agent) IsConfigured() bool {
	return a.client.IsConfigured() && a.idMapping != ""
}

// CheckAuth probes the service credentials.
func (a *Agent) CheckAuth(ctx context.Context) (bool, error) {
	return a.client.CheckAuth(ctx)
}

// ProcessBatch synchronizes a batch of notifications. It returns once every
// user has settled. Per-user failures are logged and never abort the batch;
// only a missing configuration or a failed credential probe is returned, in
// which case no call was made. An empty batch makes no call at all.
func (a *Agent) ProcessBatch(ctx context.Context, messages []models.UpdateMessage) error {
	if !a.IsConfigured() {
		return ErrNotConfigured
	}
	if len(messages) == 0 {
		return nil
	}
	ok, err := a.client.CheckAuth(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	envelopes := a.Prepare(messages)

	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for _, env := range envelopes {
		g.Go(func() error {
			a.process(ctx, env)
			return nil
		})
	}
	return g.Wait()
}

// Prepare deduplicates and classifies messages and derives the service
// representation of every user. Updates whose content did not change are
// turned into skips before any call is made.
func (a *Agent) Prepare(messages []models.UpdateMessage) []*models.Envelope {
	deduped := filter.DeduplicateMessages(messages)
	envelopes := make([]*models.Envelope, 0, len(deduped))
	for _, msg := range deduped {
		envelopes = append(envelopes, &models.Envelope{Message: msg})
	}

	results := a.filter.Classify(envelopes)
	createdAt := a.now()
	for _, env := range envelopes {
		a.compose(env, createdAt)
	}

	for _, env := range results.ToUpdate {
		state := models.ReadSyncState(env.Message.User, a.namespace)
		if state.Hash == env.CustomerHash || env.Message.Changes.OnlyTouches(a.namespace.Prefix()) {
			env.Skip(models.ReasonNoChanges)
		}
	}
	return envelopes
}

func (a *Agent) compose(env *models.Envelope, createdAt time.Time) {
	user := env.Message.User
	if len(env.Message.Account) > 0 {
		combined := user.Attrs().Clone()
		combined["account"] = models.Object(env.Message.Account)
		user = models.User(combined)
	}

	env.Customer = models.Customer{
		ID:         a.filter.ServiceID(env.Message.User),
		Attributes: a.mapper.Map(user, env.Message.SegmentNames(), createdAt),
	}
	env.CustomerHash = hashutil.Hash(env.Customer)

	events := a.filter.FilterEvents(env.Message.Events)
	env.EventsToSend = events.ToInsert
	env.EventsSkipped = events.ToSkip
}

func (a *Agent) userLogger(env *models.Envelope) *slog.Logger {
	user := env.Message.User
	return a.logger.With(
		slog.String("user_id", user.ID()),
		slog.String("email", user.Email()),
		slog.String("service_id", env.Customer.ID),
	)
}

func (a *Agent) process(ctx context.Context, env *models.Envelope) {
	logr := a.userLogger(env)

	switch env.Classification {
	case models.ClassInsert, models.ClassUpdate:
		if err := a.syncUser(ctx, logr, env); err != nil {
			a.skipEvents(logr, env.EventsToSend, models.ReasonUserNotSynced)
			return
		}
		a.sendEvents(ctx, logr, env)
	case models.ClassDelete:
		a.deleteUser(ctx, logr, env)
		a.skipEvents(logr, env.EventsToSend, models.ReasonUserNotSynced)
	default:
		logr.Info("outgoing.user.skip", slog.String("reason", env.SkipReason))
		switch env.SkipReason {
		case models.ReasonNoChanges, models.ReasonMissingID:
			a.sendEvents(ctx, logr, env)
		default:
			a.skipEvents(logr, env.EventsToSend, models.ReasonUserNotSynced)
		}
	}
}

func (a *Agent) syncUser(ctx context.Context, logr *slog.Logger, env *models.Envelope) error {
	customer := env.Customer
	if err := a.client.Identify(ctx, customer.ID, customer.Attributes); err != nil {
		logr.Error("outgoing.user.error",
			slog.String("operation", env.Classification.String()),
			slog.Any("error", err),
		)
		a.metrics.Increment(MetricErrors, 1)
		return err
	}

	traits := models.Attributes{
		a.namespace.WriteKey(models.TraitID):   models.String(customer.ID),
		a.namespace.WriteKey(models.TraitHash): models.String(env.CustomerHash),
	}
	if env.Lifecycle != models.Active {
		traits[a.namespace.WriteKey(models.TraitCreatedAt)] = customer.Attributes.Get(models.TraitCreatedAt)
		traits[a.namespace.WriteKey(models.TraitDeletedAt)] = models.Null()
	}
	if err := a.platform.Traits(ctx, identOf(env.Message.User), traits); err != nil {
		logr.Error("outgoing.user.error",
			slog.String("operation", "write-back"),
			slog.Any("error", err),
		)
		a.metrics.Increment(MetricErrors, 1)
	}

	a.metrics.Increment(MetricOutgoingUsers, 1)
	logr.Info("outgoing.user.success",
		slog.String("operation", env.Classification.String()),
		slog.Int("attributes", len(customer.Attributes)),
	)
	return nil
}

func (a *Agent) deleteUser(ctx context.Context, logr *slog.Logger, env *models.Envelope) {
	id := models.ReadSyncState(env.Message.User, a.namespace).ID.String()
	if id == "" {
		id = env.Customer.ID
	}
	if id == "" {
		logr.Info("outgoing.user.skip", slog.String("reason", models.ReasonMissingID))
		return
	}

	if err := a.client.DeleteCustomer(ctx, id); err != nil {
		logr.Error("outgoing.user.deletion.error", slog.Any("error", err))
		a.metrics.Increment(MetricErrors, 1)
		return
	}

	traits := models.Attributes{
		a.namespace.WriteKey(models.TraitDeletedAt): models.String(a.now().UTC().Format(time.RFC3339)),
		a.namespace.WriteKey(models.TraitCreatedAt): models.Null(),
		a.namespace.WriteKey(models.TraitHash):      models.Null(),
	}
	if err := a.platform.Traits(ctx, identOf(env.Message.User), traits); err != nil {
		logr.Error("outgoing.user.deletion.error",
			slog.String("operation", "write-back"),
			slog.Any("error", err),
		)
		a.metrics.Increment(MetricErrors, 1)
	}

	a.metrics.Increment(MetricOutgoingUsers, 1)
	logr.Info("outgoing.user.deletion.success", slog.String("service_id", id))
}

// sendEvents sends the whitelisted events of one user in order. A failed event
// is logged and does not stop the ones after it.
func (a *Agent) sendEvents(ctx context.Context, logr *slog.Logger, env *models.Envelope) {
	a.skipEvents(logr, env.EventsSkipped, models.ReasonEventNotWhitelisted)

	id := env.Customer.ID
	for _, e := range env.EventsToSend {
		data := e.Properties
		if data == nil {
			data = models.Attributes{}
		}

		var err error
		switch {
		case id != "" && e.Event == "page":
			err = a.client.SendPageEvent(ctx, id, e.Properties.Get("url").String(), data)
		case id != "":
			err = a.client.SendEvent(ctx, id, e.Event, data)
		case a.anonymousEvents:
			err = a.client.SendAnonymousEvent(ctx, e.Event, data)
		default:
			a.skipEvents(logr, []models.Event{e}, models.ReasonNoAnonymousEvents)
			continue
		}

		if err != nil {
			logr.Error("outgoing.event.error",
				slog.String("event", e.Event),
				slog.String("event_id", e.ID),
				slog.Any("error", err),
			)
			a.metrics.Increment(MetricErrors, 1)
			continue
		}
		a.metrics.Increment(MetricOutgoingEvents, 1)
		logr.Info("outgoing.event.success",
			slog.String("event", e.Event),
			slog.String("event_id", e.ID),
		)
	}
}

func (a *Agent) skipEvents(logr *slog.Logger, events []models.Event, reason string) {
	if len(events) == 0 {
		return
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Event)
	}
	logr.Info("outgoing.event.skip",
		slog.Any("events", names),
		slog.String("reason", reason),
	)
}

func identOf(user models.User) models.UserIdent {
	return models.UserIdent{
		ID:         user.ID(),
		Email:      user.Email(),
		ExternalID: user.Attrs().Get("external_id").String(),
	}
}
