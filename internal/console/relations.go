package console

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
)

// TopicFormReady reports whether the topic creation form can render: levels
// were fetched successfully and at least one exists to preselect.
func (c *Console) TopicFormReady() bool {
	return c.Levels.State(opstate.KindFetch).Status == opstate.StatusSucceeded && c.Levels.Len() > 0
}

// PrepareTopicForm fetches levels when they are not loaded yet and returns
// the level preselected by the topic form
func (c *Console) PrepareTopicForm(ctx context.Context) (models.Level, error) {
	if !c.TopicFormReady() {
		st := c.Levels.State(opstate.KindFetch)
		if st.Status != opstate.StatusIdle {
			return models.Level{}, fmt.Errorf("%w: level fetch is %s", ErrLevelsNotLoaded, st.Status)
		}
		if err := c.FetchLevels(ctx); err != nil {
			return models.Level{}, err
		}
	}

	levels := c.Levels.Items()
	if len(levels) == 0 {
		return models.Level{}, ErrLevelsNotLoaded
	}
	return levels[0], nil
}

// QuestionScope selects which questions the question store holds
type QuestionScope struct {
	PoolID  string `json:"poolId,omitempty"`
	TopicID string `json:"topicId,omitempty"`
}

// IsZero reports whether no scope is selected
func (s QuestionScope) IsZero() bool {
	return s.PoolID == "" && s.TopicID == ""
}

func (s QuestionScope) validate() error {
	if (s.PoolID == "") == (s.TopicID == "") {
		return fmt.Errorf("%w: exactly one of pool or topic must be selected", ErrInvalidInput)
	}
	return nil
}

// contains reports whether q belongs to the scope
func (s QuestionScope) contains(q models.Question) bool {
	if s.PoolID != "" {
		return q.Pool == s.PoolID
	}
	return q.Topic == s.TopicID
}

// Scope returns the scope of the last successful question fetch
func (c *Console) Scope() QuestionScope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Lessons partitions the topic questions currently held into the three lesson
// buckets. The store itself is not regrouped.
func (c *Console) Lessons() [models.LessonCount][]models.Question {
	return partition(c.Questions.Items())
}

func partition(questions []models.Question) [models.LessonCount][]models.Question {
	var out [models.LessonCount][]models.Question
	groups := lo.GroupBy(questions, func(q models.Question) int { return q.LessonOrder })
	for i := range out {
		out[i] = groups[i+1]
		if out[i] == nil {
			out[i] = []models.Question{}
		}
	}
	return out
}

// rememberAttached records which questions each lesson of a topic already
// holds, as read-only context for later attach calls
func (c *Console) rememberAttached(topicID string, questions []models.Question) {
	var ids [models.LessonCount][]string
	for i, bucket := range partition(questions) {
		ids[i] = lo.Map(bucket, func(q models.Question, _ int) string { return q.ID })
	}

	c.mu.Lock()
	c.attached[topicID] = ids
	c.mu.Unlock()
}

// trackQuestion moves q into its lesson of the attached snapshot. Topics
// whose questions were never loaded get no snapshot.
func (c *Console) trackQuestion(q models.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.untrackLocked(q.ID)
	if q.Topic == "" || q.LessonOrder < 1 || q.LessonOrder > models.LessonCount {
		return
	}
	ids, ok := c.attached[q.Topic]
	if !ok {
		return
	}
	ids[q.LessonOrder-1] = append(ids[q.LessonOrder-1], q.ID)
	c.attached[q.Topic] = ids
}

// untrackQuestion drops id from every lesson snapshot
func (c *Console) untrackQuestion(id string) {
	c.mu.Lock()
	c.untrackLocked(id)
	c.mu.Unlock()
}

func (c *Console) untrackLocked(id string) {
	for topicID, ids := range c.attached {
		for i := range ids {
			ids[i] = lo.Without(ids[i], id)
		}
		c.attached[topicID] = ids
	}
}

// Attached returns the ids already attached to a lesson, and whether the
// topic's questions have been loaded
func (c *Console) Attached(topicID string, lesson int) ([]string, bool) {
	if lesson < 1 || lesson > models.LessonCount {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, ok := c.attached[topicID]
	if !ok {
		return nil, false
	}
	return append([]string{}, ids[lesson-1]...), true
}
