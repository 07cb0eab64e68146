package console

import (
	"context"
	"fmt"

	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// TopicImageField is the multipart part carrying the topic picture
const TopicImageField = "topicImage"

// Upload is an opaque file handed to the remote API
type Upload struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data" validate:"required"`
}

// TopicInput is the editable state of a topic
type TopicInput struct {
	Name    string `json:"name" validate:"required"`
	LevelID string `json:"level" validate:"required"`
	// OldLevelID is the level the topic belonged to before an update
	OldLevelID string  `json:"oldLevel,omitempty"`
	Order      int     `json:"order,omitempty" validate:"gte=0"`
	Image      *Upload `json:"image,omitempty"`
}

func (in TopicInput) form() *client.FormData {
	form := client.NewFormData().
		Set("name", in.Name).
		Set("level", in.LevelID)
	if in.OldLevelID != "" {
		form.Set("oldLevel", in.OldLevelID)
	}
	form.SetBool("isRemoved", false)
	if in.Order > 0 {
		form.SetInt("order", in.Order)
	}
	if in.Image != nil {
		form.AttachFile(TopicImageField, in.Image.Filename, in.Image.ContentType, in.Image.Data)
	}
	return form
}

// FetchTopics replaces the topic collection with the server's
func (c *Console) FetchTopics(ctx context.Context) error {
	_, err := run(ctx, c, Topics, opstate.KindFetch, "", c.gw.ListTopics, func(page *client.TopicPage) {
		c.Topics.store.ReplaceAll(page.Topics)
		c.mu.Lock()
		c.topicCount = page.Count
		c.mu.Unlock()
	})
	return err
}

// GetTopic loads one topic for editing
func (c *Console) GetTopic(ctx context.Context, id string) (models.Topic, error) {
	return c.gw.GetTopic(ctx, id)
}

// UpdateTopic changes a topic; the image is re-uploaded only when supplied
func (c *Console) UpdateTopic(ctx context.Context, id string, in TopicInput) (models.Topic, error) {
	if err := c.check(in); err != nil {
		return models.Topic{}, err
	}
	if in.OldLevelID == "" {
		if current, ok := c.Topics.Get(id); ok {
			in.OldLevelID = current.Level.ID
		}
	}
	return run(ctx, c, Topics, opstate.KindUpdate, id,
		func(ctx context.Context) (models.Topic, error) { return c.gw.UpdateTopic(ctx, id, in.form()) },
		func(t models.Topic) { c.Topics.store.ReplaceByID(t) },
	)
}

// DeleteTopic removes a topic
func (c *Console) DeleteTopic(ctx context.Context, id string) error {
	return exec(ctx, c, Topics, opstate.KindDelete, id,
		func(ctx context.Context) error { return c.gw.DeleteTopic(ctx, id) },
		func() {
			c.Topics.store.RemoveByID(id)
			c.mu.Lock()
			delete(c.attached, id)
			c.mu.Unlock()
		},
	)
}

// nextTopicOrder is the display rank given to a topic created without one
func (c *Console) nextTopicOrder() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topicCount + 1
}

func (c *Console) topicInserted() {
	c.mu.Lock()
	c.topicCount++
	c.mu.Unlock()
}

func validateTopicLevel(levels *Resource[models.Level], levelID string) error {
	if _, ok := levels.Get(levelID); !ok {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidInput, levelID)
	}
	return nil
}
