package console

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/terra-clan/quiz-console/internal/events"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/pkg/client"
)

var errRemote = errors.New("remote rejected the request")

// fakeGateway is an in-memory Gateway that counts calls and can be told to
// fail or block individual methods
type fakeGateway struct {
	mu sync.Mutex

	levels     []models.Level
	pools      []models.Pool
	topics     []models.Topic
	topicCount int
	questions  []models.Question
	learners   []models.Learner

	calls map[string]int
	fail  map[string]error
	// block holds a method until the channel is closed; started is signalled
	// once the call is in flight
	block   map[string]chan struct{}
	started chan string

	topicForms  []*client.FormData
	attachCalls []client.AttachRequest
	nextID      int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:   make(map[string]int),
		fail:    make(map[string]error),
		block:   make(map[string]chan struct{}),
		started: make(chan string, 8),
	}
}

func (g *fakeGateway) enter(method string) error {
	g.mu.Lock()
	g.calls[method]++
	err := g.fail[method]
	wait := g.block[method]
	g.mu.Unlock()

	if wait != nil {
		g.started <- method
		<-wait
	}
	return err
}

func (g *fakeGateway) count(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *fakeGateway) failWith(method string, err error) {
	g.mu.Lock()
	g.fail[method] = err
	g.mu.Unlock()
}

func (g *fakeGateway) holdUntil(method string) chan struct{} {
	ch := make(chan struct{})
	g.mu.Lock()
	g.block[method] = ch
	g.mu.Unlock()
	return ch
}

func (g *fakeGateway) id(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return prefix + "-" + string(rune('0'+g.nextID))
}

func (g *fakeGateway) ListLevels(ctx context.Context) ([]models.Level, error) {
	if err := g.enter("ListLevels"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Level(nil), g.levels...), nil
}

func (g *fakeGateway) GetLevel(ctx context.Context, id string) (models.Level, error) {
	if err := g.enter("GetLevel"); err != nil {
		return models.Level{}, err
	}
	return models.Level{ID: id}, nil
}

func (g *fakeGateway) CreateLevel(ctx context.Context, in models.LevelInput) (models.Level, error) {
	if err := g.enter("CreateLevel"); err != nil {
		return models.Level{}, err
	}
	return models.Level{ID: g.id("level"), Name: in.Name, Order: in.Order, RequiredExp: in.RequiredExp}, nil
}

func (g *fakeGateway) UpdateLevel(ctx context.Context, id string, in models.LevelInput) (models.Level, error) {
	if err := g.enter("UpdateLevel"); err != nil {
		return models.Level{}, err
	}
	return models.Level{ID: id, Name: in.Name, Order: in.Order, RequiredExp: in.RequiredExp}, nil
}

func (g *fakeGateway) DeleteLevel(ctx context.Context, id string) error {
	return g.enter("DeleteLevel")
}

func (g *fakeGateway) ListPools(ctx context.Context) ([]models.Pool, error) {
	if err := g.enter("ListPools"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Pool(nil), g.pools...), nil
}

func (g *fakeGateway) GetPool(ctx context.Context, id string) (models.Pool, error) {
	if err := g.enter("GetPool"); err != nil {
		return models.Pool{}, err
	}
	return models.Pool{ID: id}, nil
}

func (g *fakeGateway) CreatePool(ctx context.Context, in models.PoolInput) (models.Pool, error) {
	if err := g.enter("CreatePool"); err != nil {
		return models.Pool{}, err
	}
	return models.Pool{ID: g.id("pool"), Name: in.Name}, nil
}

func (g *fakeGateway) UpdatePool(ctx context.Context, id string, in models.PoolInput) (models.Pool, error) {
	if err := g.enter("UpdatePool"); err != nil {
		return models.Pool{}, err
	}
	return models.Pool{ID: id, Name: in.Name}, nil
}

func (g *fakeGateway) DeletePool(ctx context.Context, id string) error {
	return g.enter("DeletePool")
}

func (g *fakeGateway) ListTopics(ctx context.Context) (*client.TopicPage, error) {
	if err := g.enter("ListTopics"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return &client.TopicPage{Topics: append([]models.Topic(nil), g.topics...), Count: g.topicCount}, nil
}

func (g *fakeGateway) GetTopic(ctx context.Context, id string) (models.Topic, error) {
	if err := g.enter("GetTopic"); err != nil {
		return models.Topic{}, err
	}
	return models.Topic{ID: id}, nil
}

func (g *fakeGateway) CreateTopic(ctx context.Context, form *client.FormData) (models.Topic, error) {
	g.mu.Lock()
	g.topicForms = append(g.topicForms, form)
	g.mu.Unlock()

	if err := g.enter("CreateTopic"); err != nil {
		return models.Topic{}, err
	}
	name, _ := form.Value("name")
	level, _ := form.Value("level")
	return models.Topic{ID: g.id("topic"), Name: name, Level: models.LevelRef{ID: level}}, nil
}

func (g *fakeGateway) UpdateTopic(ctx context.Context, id string, form *client.FormData) (models.Topic, error) {
	g.mu.Lock()
	g.topicForms = append(g.topicForms, form)
	g.mu.Unlock()

	if err := g.enter("UpdateTopic"); err != nil {
		return models.Topic{}, err
	}
	name, _ := form.Value("name")
	level, _ := form.Value("level")
	return models.Topic{ID: id, Name: name, Level: models.LevelRef{ID: level}}, nil
}

func (g *fakeGateway) AttachQuestions(ctx context.Context, in client.AttachRequest) error {
	g.mu.Lock()
	g.attachCalls = append(g.attachCalls, in)
	g.mu.Unlock()
	return g.enter("AttachQuestions")
}

func (g *fakeGateway) DeleteTopic(ctx context.Context, id string) error {
	return g.enter("DeleteTopic")
}

func (g *fakeGateway) ListQuestions(ctx context.Context, f client.QuestionFilter) ([]models.Question, error) {
	if err := g.enter("ListQuestions"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []models.Question
	for _, q := range g.questions {
		if (f.PoolID != "" && q.Pool == f.PoolID) || (f.TopicID != "" && q.Topic == f.TopicID) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (g *fakeGateway) GetQuestion(ctx context.Context, id string) (models.Question, error) {
	if err := g.enter("GetQuestion"); err != nil {
		return models.Question{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, q := range g.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return models.Question{}, &client.APIError{StatusCode: 404, Message: "question not found"}
}

func (g *fakeGateway) CreateQuestion(ctx context.Context, form *client.FormData) (models.Question, error) {
	if err := g.enter("CreateQuestion"); err != nil {
		return models.Question{}, err
	}
	typ, _ := form.Value("type")
	pool, _ := form.Value("pool")
	q := models.Question{ID: g.id("question"), Type: models.QuestionType(typ), Pool: pool}
	q.Topic, q.LessonOrder = placement(form)
	return q, nil
}

func (g *fakeGateway) UpdateQuestion(ctx context.Context, id string, form *client.FormData) (models.Question, error) {
	if err := g.enter("UpdateQuestion"); err != nil {
		return models.Question{}, err
	}
	typ, _ := form.Value("type")
	pool, _ := form.Value("pool")
	q := models.Question{ID: id, Type: models.QuestionType(typ), Pool: pool}
	q.Topic, q.LessonOrder = placement(form)
	return q, nil
}

// placement reads the topic and lesson a question form targets
func placement(form *client.FormData) (string, int) {
	topic, _ := form.Value("topic")
	order, _ := form.Value("lessonOrder")
	lesson, _ := strconv.Atoi(order)
	return topic, lesson
}

func (g *fakeGateway) DeleteQuestion(ctx context.Context, id string) error {
	return g.enter("DeleteQuestion")
}

func (g *fakeGateway) ListLearners(ctx context.Context) ([]models.Learner, error) {
	if err := g.enter("ListLearners"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Learner(nil), g.learners...), nil
}

func (g *fakeGateway) EnableLearner(ctx context.Context, id string) error {
	return g.enter("EnableLearner")
}

func (g *fakeGateway) DisableLearner(ctx context.Context, id string) error {
	return g.enter("DisableLearner")
}

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) statuses(entity, op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Entity == entity && e.Op == op {
			out = append(out, e.Status)
		}
	}
	return out
}
