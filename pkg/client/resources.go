package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/terra-clan/quiz-console/internal/models"
)

// Levels

// ListLevels retrieves all levels
func (c *Client) ListLevels(ctx context.Context) ([]models.Level, error) {
	return call[[]models.Level](ctx, c, request{method: http.MethodGet, path: "/levels"}, "levels")
}

// GetLevel retrieves a level by ID
func (c *Client) GetLevel(ctx context.Context, id string) (models.Level, error) {
	return call[models.Level](ctx, c, request{method: http.MethodGet, path: "/levels/" + url.PathEscape(id)}, "level")
}

// CreateLevel creates a new level
func (c *Client) CreateLevel(ctx context.Context, in models.LevelInput) (models.Level, error) {
	req, err := jsonRequest(http.MethodPost, "/levels", in)
	if err != nil {
		return models.Level{}, err
	}
	return call[models.Level](ctx, c, req, "level")
}

// UpdateLevel replaces a level's fields
func (c *Client) UpdateLevel(ctx context.Context, id string, in models.LevelInput) (models.Level, error) {
	req, err := jsonRequest(http.MethodPut, "/levels/"+url.PathEscape(id), in)
	if err != nil {
		return models.Level{}, err
	}
	return call[models.Level](ctx, c, req, "level")
}

// DeleteLevel removes a level
func (c *Client) DeleteLevel(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, request{method: http.MethodDelete, path: "/levels/" + url.PathEscape(id)})
	return err
}

// Pools

// ListPools retrieves all pools
func (c *Client) ListPools(ctx context.Context) ([]models.Pool, error) {
	return call[[]models.Pool](ctx, c, request{method: http.MethodGet, path: "/pools"}, "pools")
}

// GetPool retrieves a pool by ID
func (c *Client) GetPool(ctx context.Context, id string) (models.Pool, error) {
	return call[models.Pool](ctx, c, request{method: http.MethodGet, path: "/pools/" + url.PathEscape(id)}, "pool")
}

// CreatePool creates a new pool
func (c *Client) CreatePool(ctx context.Context, in models.PoolInput) (models.Pool, error) {
	req, err := jsonRequest(http.MethodPost, "/pools", in)
	if err != nil {
		return models.Pool{}, err
	}
	return call[models.Pool](ctx, c, req, "pool")
}

// UpdatePool renames a pool
func (c *Client) UpdatePool(ctx context.Context, id string, in models.PoolInput) (models.Pool, error) {
	req, err := jsonRequest(http.MethodPut, "/pools/"+url.PathEscape(id), in)
	if err != nil {
		return models.Pool{}, err
	}
	return call[models.Pool](ctx, c, req, "pool")
}

// DeletePool removes a pool
func (c *Client) DeletePool(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, request{method: http.MethodDelete, path: "/pools/" + url.PathEscape(id)})
	return err
}

// Topics

// TopicPage is the result of listing topics
type TopicPage struct {
	Topics []models.Topic
	Count  int
}

// ListTopics retrieves all topics together with the server-side count
func (c *Client) ListTopics(ctx context.Context) (*TopicPage, error) {
	body, err := c.doRequest(ctx, request{method: http.MethodGet, path: "/topics"})
	if err != nil {
		return nil, err
	}

	topics, err := unwrap[[]models.Topic](body, "topics")
	if err != nil {
		return nil, err
	}

	page := &TopicPage{Topics: topics, Count: len(topics)}
	if count, err := unwrap[int](body, "count"); err == nil {
		page.Count = count
	}
	return page, nil
}

// GetTopic retrieves a topic by ID
func (c *Client) GetTopic(ctx context.Context, id string) (models.Topic, error) {
	return call[models.Topic](ctx, c, request{method: http.MethodGet, path: "/topics/" + url.PathEscape(id)}, "topic")
}

// CreateTopic uploads topic metadata and image
func (c *Client) CreateTopic(ctx context.Context, form *FormData) (models.Topic, error) {
	req, err := multipartRequest(http.MethodPost, "/topics", form)
	if err != nil {
		return models.Topic{}, err
	}
	return c.topicWithLevel(ctx, req)
}

// UpdateTopic uploads changed topic metadata and, optionally, a new image
func (c *Client) UpdateTopic(ctx context.Context, id string, form *FormData) (models.Topic, error) {
	req, err := multipartRequest(http.MethodPut, "/topics/edit/"+url.PathEscape(id), form)
	if err != nil {
		return models.Topic{}, err
	}
	return c.topicWithLevel(ctx, req)
}

// topicWithLevel decodes a topic response; a populated sibling "level" key
// replaces the bare level reference
func (c *Client) topicWithLevel(ctx context.Context, req request) (models.Topic, error) {
	body, err := c.doRequest(ctx, req)
	if err != nil {
		return models.Topic{}, err
	}

	topic, err := unwrap[models.Topic](body, "topic")
	if err != nil {
		return models.Topic{}, err
	}

	if level, err := unwrap[models.LevelRef](body, "level"); err == nil && level.ID != "" {
		topic.Level = level
	}
	return topic, nil
}

// QuestionAssignment attaches one question to one lesson
type QuestionAssignment struct {
	Question    string `json:"question"`
	LessonOrder int    `json:"lessonOrder"`
}

// AttachRequest is the body of the attach-questions call
type AttachRequest struct {
	Topic     string               `json:"topic"`
	Questions []QuestionAssignment `json:"questions"`
}

// AttachQuestions attaches questions to lessons of a topic
func (c *Client) AttachQuestions(ctx context.Context, in AttachRequest) error {
	req, err := jsonRequest(http.MethodPost, "/topics/edit", in)
	if err != nil {
		return err
	}
	_, err = c.doRequest(ctx, req)
	return err
}

// DeleteTopic removes a topic
func (c *Client) DeleteTopic(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, request{method: http.MethodDelete, path: "/topics/" + url.PathEscape(id)})
	return err
}

// Questions

// QuestionFilter selects the owning context when listing questions
type QuestionFilter struct {
	PoolID  string
	TopicID string
}

// ListQuestions retrieves the questions of one pool or one topic
func (c *Client) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, error) {
	q := url.Values{}
	if f.PoolID != "" {
		q.Set("poolId", f.PoolID)
	}
	if f.TopicID != "" {
		q.Set("topicId", f.TopicID)
	}

	path := "/questions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	return call[[]models.Question](ctx, c, request{method: http.MethodGet, path: path}, "questions")
}

// GetQuestion retrieves a question by ID
func (c *Client) GetQuestion(ctx context.Context, id string) (models.Question, error) {
	return call[models.Question](ctx, c, request{method: http.MethodGet, path: "/questions/" + url.PathEscape(id)}, "question")
}

// CreateQuestion uploads a new question
func (c *Client) CreateQuestion(ctx context.Context, form *FormData) (models.Question, error) {
	req, err := multipartRequest(http.MethodPost, "/questions", form)
	if err != nil {
		return models.Question{}, err
	}
	return call[models.Question](ctx, c, req, "question")
}

// UpdateQuestion uploads a changed question
func (c *Client) UpdateQuestion(ctx context.Context, id string, form *FormData) (models.Question, error) {
	req, err := multipartRequest(http.MethodPut, "/questions/"+url.PathEscape(id), form)
	if err != nil {
		return models.Question{}, err
	}
	return call[models.Question](ctx, c, req, "question")
}

// DeleteQuestion removes a question
func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, request{method: http.MethodDelete, path: "/questions/" + url.PathEscape(id)})
	return err
}

// Learners

// ListLearners retrieves all learner accounts
func (c *Client) ListLearners(ctx context.Context) ([]models.Learner, error) {
	return call[[]models.Learner](ctx, c, request{method: http.MethodGet, path: "/users/all"}, "users")
}

// EnableLearner re-enables a learner account
func (c *Client) EnableLearner(ctx context.Context, id string) error {
	return c.setLearnerEnabled(ctx, id, "enable")
}

// DisableLearner disables a learner account
func (c *Client) DisableLearner(ctx context.Context, id string) error {
	return c.setLearnerEnabled(ctx, id, "disable")
}

func (c *Client) setLearnerEnabled(ctx context.Context, id, action string) error {
	path := fmt.Sprintf("/users/%s/%s", url.PathEscape(id), action)
	_, err := c.doRequest(ctx, request{method: http.MethodPut, path: path})
	return err
}
