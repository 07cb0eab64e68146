// Package question converts between the editable form state of a question and
// its transport encoding. Only the slot matching the form's type is ever
// populated or read.
package question

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/terra-clan/quiz-console/internal/models"
)

// ErrInvalidForm is wrapped by every local validation failure
var ErrInvalidForm = errors.New("invalid question form")

// ValidationError lists the fields that prevented submission
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidForm, strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidForm
}

// Context is the owning pool, or the owning topic and lesson
type Context struct {
	PoolID      string `json:"poolId,omitempty"`
	TopicID     string `json:"topicId,omitempty"`
	LessonOrder int    `json:"lessonOrder,omitempty"`
}

// Image is an optional picture attached to a question
type Image struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data" validate:"required"`
}

// SingleSelectionForm holds the four option inputs and the single radio
// group choosing the correct one
type SingleSelectionForm struct {
	Contents      [models.SingleSelectionOptions]string `json:"contents"`
	SelectedOrder string                                `json:"selectedOrder"`
}

// TranslateForm holds the accepted translations in order
type TranslateForm struct {
	Items []string `json:"items"`
}

// ArrangeItem is one editable arrange token
type ArrangeItem struct {
	ID    string `json:"id,omitempty"`
	Word  string `json:"word"`
	Order int    `json:"order"`
}

// ArrangeForm holds the arrange tokens being edited
type ArrangeForm struct {
	Items []ArrangeItem `json:"items"`
}

// Form is the editable state of a question
type Form struct {
	Requirement string              `json:"questionRequirement" validate:"required"`
	Text        string              `json:"questionText" validate:"required"`
	Difficulty  models.Difficulty   `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
	Type        models.QuestionType `json:"type" validate:"required,oneof=singleSelection translate arrange"`
	Context     Context             `json:"context"`
	Image       *Image              `json:"image,omitempty"`
	IsRemoved   bool                `json:"isRemoved"`

	SingleSelection *SingleSelectionForm `json:"singleSelection,omitempty"`
	Translate       *TranslateForm       `json:"translate,omitempty"`
	Arrange         *ArrangeForm         `json:"arrange,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the form locally. It never touches the network.
func (f *Form) Validate() error {
	var problems []string

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}

	problems = append(problems, f.contextProblems()...)
	problems = append(problems, f.variantProblems()...)

	if len(problems) > 0 {
		return &ValidationError{Fields: problems}
	}
	return nil
}

func (f *Form) contextProblems() []string {
	c := f.Context
	switch {
	case c.PoolID != "" && c.TopicID != "":
		return []string{"context: question cannot belong to both a pool and a topic"}
	case c.PoolID == "" && c.TopicID == "":
		return []string{"context: pool or topic is required"}
	case c.TopicID != "" && (c.LessonOrder < 1 || c.LessonOrder > models.LessonCount):
		return []string{fmt.Sprintf("context: lesson order must be between 1 and %d", models.LessonCount)}
	case c.PoolID != "" && c.LessonOrder != 0:
		return []string{"context: pool questions have no lesson order"}
	}
	return nil
}

func (f *Form) variantProblems() []string {
	var problems []string

	set := 0
	for _, present := range []bool{f.SingleSelection != nil, f.Translate != nil, f.Arrange != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		problems = append(problems, "answer: only the slot for the question type may be set")
	}

	switch f.Type {
	case models.TypeSingleSelection:
		if f.SingleSelection == nil {
			return append(problems, "singleSelection: options are required")
		}
		for i, content := range f.SingleSelection.Contents {
			if strings.TrimSpace(content) == "" {
				problems = append(problems, fmt.Sprintf("singleSelection: option %d is empty", i+1))
			}
		}
		if _, err := selectedOrder(f.SingleSelection.SelectedOrder); err != nil {
			problems = append(problems, "singleSelection: "+err.Error())
		}
	case models.TypeTranslate:
		if f.Translate == nil || len(f.Translate.Items) == 0 {
			return append(problems, "translate: at least one translation is required")
		}
		for i, item := range f.Translate.Items {
			if strings.TrimSpace(item) == "" {
				problems = append(problems, fmt.Sprintf("translate: translation %d is empty", i+1))
			}
		}
	case models.TypeArrange:
		if f.Arrange == nil || len(f.Arrange.Items) == 0 {
			return append(problems, "arrange: at least one word is required")
		}
		for i, item := range f.Arrange.Items {
			if strings.TrimSpace(item.Word) == "" {
				problems = append(problems, fmt.Sprintf("arrange: word %d is empty", i+1))
			}
		}
	}

	return problems
}
