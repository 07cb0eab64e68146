package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// QuestionType is the discriminator selecting a question's answer shape
type QuestionType string

const (
	TypeSingleSelection QuestionType = "singleSelection"
	TypeTranslate       QuestionType = "translate"
	TypeArrange         QuestionType = "arrange"
)

// Valid reports whether t is one of the known answer shapes
func (t QuestionType) Valid() bool {
	switch t {
	case TypeSingleSelection, TypeTranslate, TypeArrange:
		return true
	}
	return false
}

// Difficulty grades a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// LessonCount is the fixed number of lessons in every topic
const LessonCount = 3

// SingleSelectionOptions is the fixed number of options of a singleSelection question
const SingleSelectionOptions = 4

var (
	ErrInvalidScope   = errors.New("question must belong to exactly one pool or one topic lesson")
	ErrUnknownType    = errors.New("unknown question type")
	ErrAnswerMismatch = errors.New("answer payload does not match question type")
)

// Answer is the type-specific payload of a question. It is implemented only
// by SingleSelection, Translate and Arrange.
type Answer interface {
	Kind() QuestionType
	isAnswer()
}

// Option is one of the four choices of a singleSelection question
type Option struct {
	Content   string `json:"content"`
	Order     int    `json:"order"`
	IsCorrect bool   `json:"isCorrect"`
}

// SingleSelection holds exactly four ordered options
type SingleSelection struct {
	Options [SingleSelectionOptions]Option
}

func (SingleSelection) Kind() QuestionType { return TypeSingleSelection }
func (SingleSelection) isAnswer()          {}

// Correct returns the order of the correct option, or 0 if none is marked
func (s SingleSelection) Correct() int {
	for _, opt := range s.Options {
		if opt.IsCorrect {
			return opt.Order
		}
	}
	return 0
}

// Translation is one acceptable translation
type Translation struct {
	Content string `json:"content"`
}

// Translate holds the accepted translations in order
type Translate struct {
	Translations []Translation
}

func (Translate) Kind() QuestionType { return TypeTranslate }
func (Translate) isAnswer()          {}

// ArrangeWord is a token of an arrange question. ID is a client-side handle
// kept for edit continuity and is never sent to the server.
type ArrangeWord struct {
	ID    string `json:"-"`
	Word  string `json:"word"`
	Order int    `json:"order"`
}

// Arrange holds the tokens whose Order defines the target arrangement
type Arrange struct {
	Words []ArrangeWord
}

func (Arrange) Kind() QuestionType { return TypeArrange }
func (Arrange) isAnswer()          {}

// Question is a quiz question. Exactly one of Pool or Topic is set; Topic
// questions carry a LessonOrder in 1..3.
type Question struct {
	ID          string       `json:"_id"`
	Code        string       `json:"code,omitempty"`
	Requirement string       `json:"questionRequirement"`
	Text        string       `json:"questionText"`
	Difficulty  Difficulty   `json:"difficulty"`
	Type        QuestionType `json:"type"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	IsRemoved   bool         `json:"isRemoved"`
	Pool        string       `json:"pool,omitempty"`
	Topic       string       `json:"topic,omitempty"`
	LessonOrder int          `json:"lessonOrder,omitempty"`
	Answer      Answer       `json:"-"`
}

func (q Question) EntityID() string    { return q.ID }
func (q Question) SearchField() string { return q.Code }

// Scope classifies the owning context of a question
type Scope int

const (
	ScopeNone Scope = iota
	ScopePool
	ScopeTopic
)

// Scope returns which context owns the question, or ErrInvalidScope
func (q Question) Scope() (Scope, error) {
	switch {
	case q.Pool != "" && q.Topic == "":
		return ScopePool, nil
	case q.Topic != "" && q.Pool == "":
		if q.LessonOrder < 1 || q.LessonOrder > LessonCount {
			return ScopeNone, fmt.Errorf("%w: lesson order %d", ErrInvalidScope, q.LessonOrder)
		}
		return ScopeTopic, nil
	default:
		return ScopeNone, ErrInvalidScope
	}
}

// Wire keys of the variant arrays
const (
	OptionsKey      = "options"
	TranslationsKey = "translations"
	WordsKey        = "words"
)

type questionAlias Question

type questionWire struct {
	questionAlias
	Options      json.RawMessage `json:"options,omitempty"`
	Translations json.RawMessage `json:"translations,omitempty"`
	Words        json.RawMessage `json:"words,omitempty"`
}

// MarshalJSON writes only the array that belongs to q.Type
func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{questionAlias: questionAlias(q)}
	if q.Answer != nil {
		if q.Answer.Kind() != q.Type {
			return nil, fmt.Errorf("%w: %s carries %s", ErrAnswerMismatch, q.Type, q.Answer.Kind())
		}
		raw, err := MarshalAnswer(q.Answer)
		if err != nil {
			return nil, err
		}
		switch q.Type {
		case TypeSingleSelection:
			w.Options = raw
		case TypeTranslate:
			w.Translations = raw
		case TypeArrange:
			w.Words = raw
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the answer array selected by the type field and
// ignores the other two.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*q = Question(w.questionAlias)

	var raw json.RawMessage
	switch q.Type {
	case TypeSingleSelection:
		raw = w.Options
	case TypeTranslate:
		raw = w.Translations
	case TypeArrange:
		raw = w.Words
	case "":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, q.Type)
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	answer, err := UnmarshalAnswer(q.Type, raw)
	if err != nil {
		return err
	}
	q.Answer = answer
	return nil
}

// MarshalAnswer encodes the variant array exactly as it travels on the wire
func MarshalAnswer(a Answer) ([]byte, error) {
	switch v := a.(type) {
	case SingleSelection:
		return json.Marshal(v.Options[:])
	case Translate:
		return json.Marshal(nonNil(v.Translations))
	case Arrange:
		return json.Marshal(nonNil(v.Words))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, a)
	}
}

// UnmarshalAnswer decodes a variant array for the given type
func UnmarshalAnswer(t QuestionType, raw []byte) (Answer, error) {
	switch t {
	case TypeSingleSelection:
		var opts []Option
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("failed to decode options: %w", err)
		}
		var s SingleSelection
		for _, opt := range opts {
			if opt.Order < 1 || opt.Order > SingleSelectionOptions {
				return nil, fmt.Errorf("option order %d out of range", opt.Order)
			}
			s.Options[opt.Order-1] = opt
		}
		for i := range s.Options {
			s.Options[i].Order = i + 1
		}
		return s, nil
	case TypeTranslate:
		var items []Translation
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode translations: %w", err)
		}
		return Translate{Translations: items}, nil
	case TypeArrange:
		var words []ArrangeWord
		if err := json.Unmarshal(raw, &words); err != nil {
			return nil, fmt.Errorf("failed to decode words: %w", err)
		}
		return Arrange{Words: words}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
