package console

import (
	"context"

	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/internal/question"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// FetchQuestions replaces the question collection with the questions of one
// pool or one topic. A topic fetch also refreshes the already-attached
// context used by AttachToLesson.
func (c *Console) FetchQuestions(ctx context.Context, scope QuestionScope) error {
	if err := scope.validate(); err != nil {
		return err
	}

	filter := client.QuestionFilter{PoolID: scope.PoolID, TopicID: scope.TopicID}
	_, err := run(ctx, c, Questions, opstate.KindFetch, scope.PoolID+scope.TopicID,
		func(ctx context.Context) ([]models.Question, error) { return c.gw.ListQuestions(ctx, filter) },
		func(qs []models.Question) {
			c.Questions.store.ReplaceAll(qs)
			c.mu.Lock()
			c.scope = scope
			c.mu.Unlock()
			if scope.TopicID != "" {
				c.rememberAttached(scope.TopicID, qs)
			}
		},
	)
	return err
}

// GetQuestion loads a question and decodes it into form state
func (c *Console) GetQuestion(ctx context.Context, id string) (*question.Form, error) {
	q, err := c.gw.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return question.Decode(q), nil
}

// AddQuestion validates and submits a new question. An invalid form is
// rejected before the machine leaves idle.
func (c *Console) AddQuestion(ctx context.Context, f *question.Form) (models.Question, error) {
	form, err := question.Encode(f)
	if err != nil {
		return models.Question{}, err
	}

	return run(ctx, c, Questions, opstate.KindAdd, "",
		func(ctx context.Context) (models.Question, error) { return c.gw.CreateQuestion(ctx, form) },
		func(q models.Question) {
			if c.inScope(q) {
				c.Questions.store.Insert(q)
			}
			c.trackQuestion(q)
		},
	)
}

// UpdateQuestion validates and submits changes to a question
func (c *Console) UpdateQuestion(ctx context.Context, id string, f *question.Form) (models.Question, error) {
	form, err := question.Encode(f)
	if err != nil {
		return models.Question{}, err
	}

	return run(ctx, c, Questions, opstate.KindUpdate, id,
		func(ctx context.Context) (models.Question, error) { return c.gw.UpdateQuestion(ctx, id, form) },
		func(q models.Question) {
			// A question moved to another pool or topic leaves the held scope
			if c.inScope(q) {
				c.Questions.store.ReplaceByID(q)
			} else {
				c.Questions.store.RemoveByID(q.ID)
			}
			c.trackQuestion(q)
		},
	)
}

// DeleteQuestion removes a question
func (c *Console) DeleteQuestion(ctx context.Context, id string) error {
	return exec(ctx, c, Questions, opstate.KindDelete, id,
		func(ctx context.Context) error { return c.gw.DeleteQuestion(ctx, id) },
		func() {
			c.Questions.store.RemoveByID(id)
			c.untrackQuestion(id)
		},
	)
}

// inScope reports whether a created question belongs with the questions
// currently held. Called from apply, so c.mu is free.
func (c *Console) inScope(q models.Question) bool {
	c.mu.Lock()
	scope := c.scope
	c.mu.Unlock()
	return scope.IsZero() || scope.contains(q)
}
