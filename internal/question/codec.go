package question

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/pkg/client"
)

// ImageField is the multipart part carrying the question picture
const ImageField = "questionImage"

// Answer builds the typed answer payload of a validated form
func (f *Form) Answer() (models.Answer, error) {
	switch f.Type {
	case models.TypeSingleSelection:
		if f.SingleSelection == nil {
			return nil, &ValidationError{Fields: []string{"singleSelection: options are required"}}
		}
		correct, err := selectedOrder(f.SingleSelection.SelectedOrder)
		if err != nil {
			return nil, &ValidationError{Fields: []string{"singleSelection: " + err.Error()}}
		}
		var s models.SingleSelection
		for i, content := range f.SingleSelection.Contents {
			order := i + 1
			s.Options[i] = models.Option{
				Content:   content,
				Order:     order,
				IsCorrect: order == correct,
			}
		}
		return s, nil
	case models.TypeTranslate:
		if f.Translate == nil {
			return nil, &ValidationError{Fields: []string{"translate: at least one translation is required"}}
		}
		items := make([]models.Translation, 0, len(f.Translate.Items))
		for _, content := range f.Translate.Items {
			items = append(items, models.Translation{Content: content})
		}
		return models.Translate{Translations: items}, nil
	case models.TypeArrange:
		if f.Arrange == nil {
			return nil, &ValidationError{Fields: []string{"arrange: at least one word is required"}}
		}
		words := make([]models.ArrangeWord, 0, len(f.Arrange.Items))
		for _, item := range f.Arrange.Items {
			words = append(words, models.ArrangeWord{ID: item.ID, Word: item.Word, Order: item.Order})
		}
		return models.Arrange{Words: words}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownType, f.Type)
	}
}

// Encode validates the form and renders the multipart body sent to the
// remote API. Nothing is returned for an invalid form.
func Encode(f *Form) (*client.FormData, error) {
	f.EnsureItemIDs()

	if err := f.Validate(); err != nil {
		return nil, err
	}

	answer, err := f.Answer()
	if err != nil {
		return nil, err
	}

	variant, err := models.MarshalAnswer(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer: %w", err)
	}

	form := client.NewFormData().
		Set("questionRequirement", f.Requirement).
		Set("questionText", f.Text).
		Set("type", string(f.Type)).
		Set("difficulty", string(f.Difficulty)).
		SetBool("isRemoved", f.IsRemoved).
		Set(variantKey(f.Type), string(variant))

	if f.Context.PoolID != "" {
		form.Set("pool", f.Context.PoolID)
	} else {
		form.Set("topic", f.Context.TopicID).SetInt("lessonOrder", f.Context.LessonOrder)
	}

	if f.Image != nil {
		form.AttachFile(ImageField, f.Image.Filename, f.Image.ContentType, f.Image.Data)
	}

	return form, nil
}

// Decode turns a fetched question back into form state. Only the slot for
// the question's type is populated.
func Decode(q models.Question) *Form {
	f := &Form{
		Requirement: q.Requirement,
		Text:        q.Text,
		Difficulty:  q.Difficulty,
		Type:        q.Type,
		IsRemoved:   q.IsRemoved,
		Context: Context{
			PoolID:      q.Pool,
			TopicID:     q.Topic,
			LessonOrder: q.LessonOrder,
		},
	}

	switch a := q.Answer.(type) {
	case models.SingleSelection:
		if q.Type != models.TypeSingleSelection {
			break
		}
		ss := &SingleSelectionForm{}
		for i, opt := range a.Options {
			ss.Contents[i] = opt.Content
		}
		if correct := a.Correct(); correct > 0 {
			ss.SelectedOrder = strconv.Itoa(correct)
		}
		f.SingleSelection = ss
	case models.Translate:
		if q.Type != models.TypeTranslate {
			break
		}
		items := make([]string, 0, len(a.Translations))
		for _, t := range a.Translations {
			items = append(items, t.Content)
		}
		f.Translate = &TranslateForm{Items: items}
	case models.Arrange:
		if q.Type != models.TypeArrange {
			break
		}
		items := make([]ArrangeItem, 0, len(a.Words))
		for _, w := range a.Words {
			items = append(items, ArrangeItem{ID: w.ID, Word: w.Word, Order: w.Order})
		}
		f.Arrange = &ArrangeForm{Items: items}
	}

	f.EnsureItemIDs()
	return f
}

// EnsureItemIDs gives every arrange token a stable client-side id
func (f *Form) EnsureItemIDs() {
	if f.Arrange == nil {
		return
	}
	for i := range f.Arrange.Items {
		if f.Arrange.Items[i].ID == "" {
			f.Arrange.Items[i].ID = uuid.NewString()
		}
	}
}

func variantKey(t models.QuestionType) string {
	switch t {
	case models.TypeTranslate:
		return models.TranslationsKey
	case models.TypeArrange:
		return models.WordsKey
	default:
		return models.OptionsKey
	}
}

func selectedOrder(raw string) (int, error) {
	order, err := strconv.Atoi(raw)
	if err != nil || order < 1 || order > models.SingleSelectionOptions {
		return 0, fmt.Errorf("selected order %q must be between 1 and %d", raw, models.SingleSelectionOptions)
	}
	return order, nil
}
