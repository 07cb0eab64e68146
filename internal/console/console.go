// Package console owns the client-side state of the quiz administration
// console: one canonical store and one set of operation machines per entity
// type. Stores are written only from successful operation completions.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/terra-clan/quiz-console/internal/events"
	"github.com/terra-clan/quiz-console/internal/journal"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/internal/store"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// Common errors
var (
	ErrCancelled       = errors.New("operation was cancelled")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrUnknownKind     = errors.New("entity has no such operation")
	ErrLevelsNotLoaded = errors.New("levels must be loaded before creating a topic")
	ErrScopeNotLoaded  = errors.New("topic questions must be loaded first")
	ErrRefreshFailed   = errors.New("dependent refresh failed")
)

// Entity names an entity type
type Entity string

const (
	Levels    Entity = "levels"
	Topics    Entity = "topics"
	Pools     Entity = "pools"
	Questions Entity = "questions"
	Learners  Entity = "learners"
)

// Entities lists every entity type in display order
var Entities = []Entity{Levels, Topics, Pools, Questions, Learners}

// Gateway is the remote API as seen by the console
type Gateway interface {
	ListLevels(ctx context.Context) ([]models.Level, error)
	GetLevel(ctx context.Context, id string) (models.Level, error)
	CreateLevel(ctx context.Context, in models.LevelInput) (models.Level, error)
	UpdateLevel(ctx context.Context, id string, in models.LevelInput) (models.Level, error)
	DeleteLevel(ctx context.Context, id string) error

	ListPools(ctx context.Context) ([]models.Pool, error)
	GetPool(ctx context.Context, id string) (models.Pool, error)
	CreatePool(ctx context.Context, in models.PoolInput) (models.Pool, error)
	UpdatePool(ctx context.Context, id string, in models.PoolInput) (models.Pool, error)
	DeletePool(ctx context.Context, id string) error

	ListTopics(ctx context.Context) (*client.TopicPage, error)
	GetTopic(ctx context.Context, id string) (models.Topic, error)
	CreateTopic(ctx context.Context, form *client.FormData) (models.Topic, error)
	UpdateTopic(ctx context.Context, id string, form *client.FormData) (models.Topic, error)
	AttachQuestions(ctx context.Context, in client.AttachRequest) error
	DeleteTopic(ctx context.Context, id string) error

	ListQuestions(ctx context.Context, f client.QuestionFilter) ([]models.Question, error)
	GetQuestion(ctx context.Context, id string) (models.Question, error)
	CreateQuestion(ctx context.Context, form *client.FormData) (models.Question, error)
	UpdateQuestion(ctx context.Context, id string, form *client.FormData) (models.Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	ListLearners(ctx context.Context) ([]models.Learner, error)
	EnableLearner(ctx context.Context, id string) error
	DisableLearner(ctx context.Context, id string) error
}

// Notifier receives every state change
type Notifier interface {
	Publish(e events.Event)
}

// Resource is the read side of one entity type's state
type Resource[T models.Entity] struct {
	entity Entity
	store  *store.Store[T]
	ops    *opstate.Set
}

func newResource[T models.Entity](entity Entity, kinds ...opstate.Kind) *Resource[T] {
	return &Resource[T]{
		entity: entity,
		store:  store.New[T](),
		ops:    opstate.NewSet(kinds...),
	}
}

// Items returns the canonical collection
func (r *Resource[T]) Items() []T { return r.store.Items() }

// Projection returns the search projection
func (r *Resource[T]) Projection() []T { return r.store.Projection() }

// Get looks an entity up by id in the canonical collection
func (r *Resource[T]) Get(id string) (T, bool) { return r.store.Get(id) }

// Len returns the size of the canonical collection
func (r *Resource[T]) Len() int { return r.store.Len() }

// Predicate returns the last applied search predicate
func (r *Resource[T]) Predicate() string { return r.store.Predicate() }

// State returns the state of the machine tracking kind
func (r *Resource[T]) State(kind opstate.Kind) opstate.State {
	if m := r.ops.Get(kind); m != nil {
		return m.State()
	}
	return opstate.State{Status: opstate.StatusIdle}
}

// Statuses returns the state of every machine of the entity
func (r *Resource[T]) Statuses() map[opstate.Kind]opstate.State { return r.ops.Snapshot() }

func (r *Resource[T]) machine(kind opstate.Kind) *opstate.Machine { return r.ops.Get(kind) }
func (r *Resource[T]) machines() *opstate.Set                    { return r.ops }
func (r *Resource[T]) applyFilter(p string)                      { r.store.ApplyFilter(p) }

// resource is the type-erased view used for entity-indexed calls
type resource interface {
	machines() *opstate.Set
	applyFilter(p string)
}

// Console coordinates every operation against the remote API
type Console struct {
	gw       Gateway
	journal  journal.Recorder
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate

	Levels    *Resource[models.Level]
	Topics    *Resource[models.Topic]
	Pools     *Resource[models.Pool]
	Questions *Resource[models.Question]
	Learners  *Resource[models.Learner]

	resources map[Entity]resource

	mu         sync.Mutex
	topicCount int
	scope      QuestionScope
	attached   map[string][models.LessonCount][]string
	workflows  []*TopicCreation
}

// Option configures the console
type Option func(*Console)

// WithJournal sets where workflow transitions are recorded
func WithJournal(r journal.Recorder) Option {
	return func(c *Console) {
		c.journal = r
	}
}

// WithNotifier sets who is told about state changes
func WithNotifier(n Notifier) Option {
	return func(c *Console) {
		c.notifier = n
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) {
		c.logger = l
	}
}

// New creates a console with empty stores and idle machines
func New(gw Gateway, opts ...Option) *Console {
	crud := []opstate.Kind{opstate.KindFetch, opstate.KindAdd, opstate.KindUpdate, opstate.KindDelete}

	c := &Console{
		gw:       gw,
		journal:  journal.NewMemoryRecorder(),
		logger:   slog.Default(),
		validate: validator.New(validator.WithRequiredStructEnabled()),

		Levels:    newResource[models.Level](Levels, crud...),
		Topics:    newResource[models.Topic](Topics, append(crud, opstate.KindAttach)...),
		Pools:     newResource[models.Pool](Pools, crud...),
		Questions: newResource[models.Question](Questions, crud...),
		Learners:  newResource[models.Learner](Learners, opstate.KindFetch, opstate.KindEnable, opstate.KindDisable),

		attached: make(map[string][models.LessonCount][]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.resources = map[Entity]resource{
		Levels:    c.Levels,
		Topics:    c.Topics,
		Pools:     c.Pools,
		Questions: c.Questions,
		Learners:  c.Learners,
	}

	return c
}

// Search recomputes the search projection of entity
func (c *Console) Search(entity Entity, predicate string) error {
	r, ok := c.resources[entity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	r.applyFilter(predicate)
	return nil
}

// Dismiss returns a finished operation to idle without re-running it
func (c *Console) Dismiss(entity Entity, kind opstate.Kind) error {
	m, err := c.lookup(entity, kind)
	if err != nil {
		return err
	}
	if err := m.Reset(); err != nil {
		return fmt.Errorf("dismiss %s %s: %w", kind, entity, err)
	}
	c.publish(entity, kind, m, "")
	return nil
}

// Cancel abandons the in-flight operation; its result will not be applied
func (c *Console) Cancel(entity Entity, kind opstate.Kind) (bool, error) {
	m, err := c.lookup(entity, kind)
	if err != nil {
		return false, err
	}
	cancelled := m.CancelCurrent()
	if cancelled {
		c.logger.Info("operation cancelled", "entity", entity, "op", kind)
		c.publish(entity, kind, m, "")
	}
	return cancelled, nil
}

// Statuses returns the machine states of entity
func (c *Console) Statuses(entity Entity) (map[opstate.Kind]opstate.State, error) {
	r, ok := c.resources[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return r.machines().Snapshot(), nil
}

func (c *Console) lookup(entity Entity, kind opstate.Kind) (*opstate.Machine, error) {
	r, ok := c.resources[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	m := r.machines().Get(kind)
	if m == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownKind, kind, entity)
	}
	return m, nil
}

func (c *Console) publish(entity Entity, kind opstate.Kind, m *opstate.Machine, target string) {
	if c.notifier == nil {
		return
	}
	st := m.State()
	c.notifier.Publish(events.Event{
		Entity: string(entity),
		Op:     string(kind),
		Status: string(st.Status),
		Error:  st.Error,
		Target: target,
	})
}

func (c *Console) check(in any) error {
	if err := c.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
