package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entity is implemented by every resource the console keeps in a store
type Entity interface {
	// EntityID returns the server-assigned identifier
	EntityID() string
	// SearchField returns the attribute matched by the search projection
	SearchField() string
}

// Level represents a progression tier that topics belong to
type Level struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Order       int    `json:"order"`
	RequiredExp int    `json:"requiredExp"`
}

func (l Level) EntityID() string    { return l.ID }
func (l Level) SearchField() string { return l.Name }

// LevelInput is the body sent when creating or updating a level
type LevelInput struct {
	Name        string `json:"name" validate:"required"`
	Order       int    `json:"order" validate:"gte=0"`
	RequiredExp int    `json:"requiredExp" validate:"gte=0"`
	IsRemoved   bool   `json:"isRemoved"`
}

// Pool is an unordered bucket of questions
type Pool struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (p Pool) EntityID() string    { return p.ID }
func (p Pool) SearchField() string { return p.Name }

// PoolInput is the body sent when creating or updating a pool
type PoolInput struct {
	Name      string `json:"name" validate:"required"`
	IsRemoved bool   `json:"isRemoved"`
}

// LevelRef points a topic at its level. The remote API returns either the
// bare level id or the populated level document.
type LevelRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts both `"<id>"` and `{"_id": "<id>", ...}`
func (r *LevelRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = LevelRef{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("failed to decode level id: %w", err)
		}
		*r = LevelRef{ID: id}
		return nil
	}

	type plain LevelRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode level: %w", err)
	}
	*r = LevelRef(p)
	return nil
}

// Topic is a named unit of learning content with three lessons
type Topic struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	Order     int      `json:"order"`
	Level     LevelRef `json:"level"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	IsRemoved bool     `json:"isRemoved"`
}

func (t Topic) EntityID() string    { return t.ID }
func (t Topic) SearchField() string { return t.Name }

// Learner represents a learner account
type Learner struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Enabled  bool   `json:"enabled"`
}

func (l Learner) EntityID() string    { return l.ID }
func (l Learner) SearchField() string { return l.FullName }
