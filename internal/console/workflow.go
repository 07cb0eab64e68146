package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/terra-clan/quiz-console/internal/journal"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// LessonAssignment places one question in one lesson of a new topic
type LessonAssignment struct {
	QuestionID  string `json:"question" validate:"required"`
	LessonOrder int    `json:"lessonOrder" validate:"min=1,max=3"`
}

// TopicCreation is one run of the create-then-attach workflow
type TopicCreation struct {
	ID        string             `json:"id"`
	Topic     models.Topic       `json:"topic"`
	State     journal.State      `json:"state"`
	Questions []LessonAssignment `json:"questions"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PartialFailureError reports a topic that was created on the server while
// attaching its questions failed. The topic is kept; nothing is rolled back.
type PartialFailureError struct {
	WorkflowID string
	Topic      models.Topic
	Cause      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("topic %q was created but its questions were not attached: %v", e.Topic.Name, e.Cause)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}

// CreateTopic creates a topic and then attaches the selected questions to its
// lessons. The two calls share the add machine of topics: it ends succeeded
// when both commit, failed when the topic itself was rejected and partial
// when only the topic was created. In the partial case the topic is still
// inserted and a *PartialFailureError is returned.
func (c *Console) CreateTopic(ctx context.Context, in TopicInput, assignments []LessonAssignment) (models.Topic, error) {
	if !c.TopicFormReady() {
		return models.Topic{}, ErrLevelsNotLoaded
	}
	if err := c.check(in); err != nil {
		return models.Topic{}, err
	}
	if in.Image == nil {
		return models.Topic{}, fmt.Errorf("%w: topic image is required", ErrInvalidInput)
	}
	if err := validateTopicLevel(c.Levels, in.LevelID); err != nil {
		return models.Topic{}, err
	}
	for _, a := range assignments {
		if err := c.check(a); err != nil {
			return models.Topic{}, err
		}
	}
	assignments = lo.UniqBy(assignments, func(a LessonAssignment) string { return a.QuestionID })
	if in.Order == 0 {
		in.Order = c.nextTopicOrder()
	}
	in.OldLevelID = ""

	m, err := c.lookup(Topics, opstate.KindAdd)
	if err != nil {
		return models.Topic{}, err
	}
	t, err := m.Begin(ctx)
	if err != nil {
		return models.Topic{}, fmt.Errorf("%s %s: %w", opstate.KindAdd, Topics, err)
	}
	c.publish(Topics, opstate.KindAdd, m, "")

	topic, err := c.gw.CreateTopic(t.Context(), in.form())
	if err != nil {
		if ferr := m.Fail(t, err.Error()); ferr != nil {
			return models.Topic{}, ErrCancelled
		}
		c.logger.Warn("topic creation failed", "name", in.Name, "error", err)
		c.publish(Topics, opstate.KindAdd, m, "")
		return models.Topic{}, err
	}

	wf := c.startWorkflow(ctx, topic, assignments)
	insert := func() {
		c.Topics.store.Insert(topic)
		c.topicInserted()
	}

	if len(assignments) == 0 {
		c.advance(ctx, wf, journal.StateAttached, "")
		return c.finishTopic(m, t, topic, insert)
	}

	c.advance(ctx, wf, journal.StateAttaching, "")
	err = c.gw.AttachQuestions(t.Context(), client.AttachRequest{
		Topic:     topic.ID,
		Questions: lo.Map(assignments, func(a LessonAssignment, _ int) client.QuestionAssignment {
			return client.QuestionAssignment{Question: a.QuestionID, LessonOrder: a.LessonOrder}
		}),
	})
	if err != nil {
		c.advance(ctx, wf, journal.StateAttachFailed, err.Error())
		c.logger.Warn("topic created without its questions",
			"workflow_id", wf.ID,
			"topic_id", topic.ID,
			"questions", len(assignments),
			"error", err,
		)

		if perr := m.Partial(t, err.Error(), insert); perr != nil {
			return models.Topic{}, ErrCancelled
		}
		c.publish(Topics, opstate.KindAdd, m, topic.ID)
		return topic, &PartialFailureError{WorkflowID: wf.ID, Topic: topic, Cause: err}
	}

	c.advance(ctx, wf, journal.StateAttached, "")
	return c.finishTopic(m, t, topic, insert)
}

func (c *Console) finishTopic(m *opstate.Machine, t *opstate.Ticket, topic models.Topic, insert func()) (models.Topic, error) {
	if err := m.Succeed(t, insert); err != nil {
		c.logger.Debug("dropping stale topic creation", "topic_id", topic.ID)
		return models.Topic{}, ErrCancelled
	}
	c.logger.Info("topic created", "topic_id", topic.ID, "name", topic.Name)
	c.publish(Topics, opstate.KindAdd, m, topic.ID)
	return topic, nil
}

func (c *Console) startWorkflow(ctx context.Context, topic models.Topic, assignments []LessonAssignment) *TopicCreation {
	wf := &TopicCreation{
		ID:        uuid.NewString(),
		Topic:     topic,
		Questions: assignments,
	}

	c.mu.Lock()
	c.workflows = append(c.workflows, wf)
	c.mu.Unlock()

	c.advance(ctx, wf, journal.StateCreated, "")
	return wf
}

// advance moves a workflow to state and records the transition. Journal
// writes outlive a cancelled request.
func (c *Console) advance(ctx context.Context, wf *TopicCreation, state journal.State, msg string) {
	now := time.Now().UTC()

	c.mu.Lock()
	wf.State = state
	wf.Error = msg
	wf.UpdatedAt = now
	entry := journal.Entry{
		WorkflowID: wf.ID,
		TopicID:    wf.Topic.ID,
		TopicName:  wf.Topic.Name,
		State:      state,
		Questions:  toAssignments(wf.Questions),
		Error:      msg,
		UpdatedAt:  now,
	}
	c.mu.Unlock()

	if err := c.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Error("failed to record workflow transition",
			"workflow_id", wf.ID,
			"state", state,
			"error", err,
		)
	}
}

// Workflows returns the topic-creation workflows run by this console, oldest
// first
func (c *Console) Workflows() []TopicCreation {
	c.mu.Lock()
	defer c.mu.Unlock()

	return lo.Map(c.workflows, func(wf *TopicCreation, _ int) TopicCreation {
		out := *wf
		out.Questions = append([]LessonAssignment(nil), wf.Questions...)
		return out
	})
}

// PendingOrphans returns the recorded topics that exist without the
// questions they were created with, including those of earlier runs
func (c *Console) PendingOrphans(ctx context.Context) ([]journal.Entry, error) {
	entries, err := c.journal.ListByState(ctx, journal.StateAttachFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned topics: %w", err)
	}
	return entries, nil
}

// Candidate is one question offered for a lesson. Fixed questions are already
// attached and cannot be selected again.
type Candidate struct {
	Question models.Question `json:"question"`
	Fixed    bool            `json:"fixed"`
}

// LessonCandidates marks which of the offered questions are already attached
// to a lesson
func (c *Console) LessonCandidates(topicID string, lesson int, offered []models.Question) ([]Candidate, error) {
	attached, ok := c.Attached(topicID, lesson)
	if !ok {
		return nil, c.attachedMissing(lesson)
	}
	return lo.Map(offered, func(q models.Question, _ int) Candidate {
		return Candidate{Question: q, Fixed: lo.Contains(attached, q.ID)}
	}), nil
}

// AttachToLesson attaches the newly selected questions to one lesson of an
// existing topic. Questions already attached are left out of the request;
// when nothing new remains no call is made. The submitted ids are returned.
// On success the topic's questions are fetched again.
func (c *Console) AttachToLesson(ctx context.Context, topicID string, lesson int, selected []string) ([]string, error) {
	attached, ok := c.Attached(topicID, lesson)
	if !ok {
		return nil, c.attachedMissing(lesson)
	}

	delta := lo.Without(lo.Uniq(lo.Reject(selected, func(id string, _ int) bool { return id == "" })), attached...)
	if len(delta) == 0 {
		return nil, nil
	}

	req := client.AttachRequest{
		Topic: topicID,
		Questions: lo.Map(delta, func(id string, _ int) client.QuestionAssignment {
			return client.QuestionAssignment{Question: id, LessonOrder: lesson}
		}),
	}

	err := exec(ctx, c, Topics, opstate.KindAttach, topicID,
		func(ctx context.Context) error { return c.gw.AttachQuestions(ctx, req) },
		func() {
			c.mu.Lock()
			ids := c.attached[topicID]
			ids[lesson-1] = append(ids[lesson-1], delta...)
			c.attached[topicID] = ids
			c.mu.Unlock()
		},
	)
	if err != nil {
		return nil, err
	}
	c.resolveOrphans(ctx, topicID)

	if c.Scope().TopicID == topicID {
		scope := QuestionScope{TopicID: topicID}
		if err := c.refresh(ctx, Questions, func(ctx context.Context) error {
			return c.FetchQuestions(ctx, scope)
		}); err != nil {
			return delta, err
		}
	}
	return delta, nil
}

// resolveOrphans marks the attach_failed workflows of a topic attached once
// an operator has attached questions to it, so the topic is no longer
// reported as orphaned
func (c *Console) resolveOrphans(ctx context.Context, topicID string) {
	ctx = context.WithoutCancel(ctx)

	entries, err := c.journal.ListByState(ctx, journal.StateAttachFailed)
	if err != nil {
		c.logger.Error("failed to list orphaned topics", "topic_id", topicID, "error", err)
		return
	}

	now := time.Now().UTC()
	for _, e := range entries {
		if e.TopicID != topicID {
			continue
		}
		e.State = journal.StateAttached
		e.Error = ""
		e.UpdatedAt = now
		if err := c.journal.Record(ctx, e); err != nil {
			c.logger.Error("failed to record workflow transition",
				"workflow_id", e.WorkflowID,
				"state", e.State,
				"error", err,
			)
			continue
		}
		c.logger.Info("orphaned topic resolved", "workflow_id", e.WorkflowID, "topic_id", topicID)
	}

	c.mu.Lock()
	for _, wf := range c.workflows {
		if wf.Topic.ID == topicID && wf.State == journal.StateAttachFailed {
			wf.State = journal.StateAttached
			wf.Error = ""
			wf.UpdatedAt = now
		}
	}
	c.mu.Unlock()
}

func (c *Console) attachedMissing(lesson int) error {
	if lesson < 1 || lesson > models.LessonCount {
		return fmt.Errorf("%w: lesson must be between 1 and %d", ErrInvalidInput, models.LessonCount)
	}
	return ErrScopeNotLoaded
}

func toAssignments(in []LessonAssignment) []journal.Assignment {
	return lo.Map(in, func(a LessonAssignment, _ int) journal.Assignment {
		return journal.Assignment{QuestionID: a.QuestionID, LessonOrder: a.LessonOrder}
	})
}

// IsPartialFailure reports whether err left a created topic without its
// questions
func IsPartialFailure(err error) bool {
	var perr *PartialFailureError
	return errors.As(err, &perr)
}
