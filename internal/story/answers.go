// Package story holds the prompt templates and deterministic fallback content
// for the proposal flows.
package story

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Language selects the output language of a story.
type Language string

const (
	English Language = "english"
	Hindi   Language = "hindi"
	Marathi Language = "marathi"
)

// ParseLanguage maps a request tag to a Language. Unknown tags are English.
func ParseLanguage(tag string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(tag))) {
	case Hindi:
		return Hindi
	case Marathi:
		return Marathi
	default:
		return English
	}
}

func (l Language) displayName() string {
	switch l {
	case Hindi:
		return "Hindi (हिंदी)"
	case Marathi:
		return "Marathi (मराठी)"
	default:
		return "English"
	}
}

func (l Language) devanagari() bool { return l == Hindi || l == Marathi }

// Answers are the seven questionnaire answers plus the story language.
type Answers struct {
	DreamDestination string   `json:"dreamDestination" validate:"required"`
	TimeOfDay        string   `json:"timeOfDay" validate:"required"`
	Mood             string   `json:"mood" validate:"required"`
	Activity         string   `json:"activity" validate:"required"`
	Weather          string   `json:"weather" validate:"required"`
	OutfitStyle      string   `json:"outfitStyle" validate:"required"`
	SpecialEffect    string   `json:"specialEffect" validate:"required"`
	Language         Language `json:"language,omitempty"`
}

// ErrMissingAnswers is returned when any of the seven answers is blank.
var ErrMissingAnswers = errors.New("all 7 answers are required")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims every answer and resolves the language tag.
func (a Answers) Normalize() Answers {
	a.DreamDestination = strings.TrimSpace(a.DreamDestination)
	a.TimeOfDay = strings.TrimSpace(a.TimeOfDay)
	a.Mood = strings.TrimSpace(a.Mood)
	a.Activity = strings.TrimSpace(a.Activity)
	a.Weather = strings.TrimSpace(a.Weather)
	a.OutfitStyle = strings.TrimSpace(a.OutfitStyle)
	a.SpecialEffect = strings.TrimSpace(a.SpecialEffect)
	a.Language = ParseLanguage(string(a.Language))
	return a
}

// Validate reports ErrMissingAnswers, naming the blank fields, when any
// answer is empty after trimming.
func (a Answers) Validate() error {
	err := validate.Struct(a.Normalize())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &MissingAnswersError{Fields: fields}
}

// MissingAnswersError lists the blank answer fields.
type MissingAnswersError struct {
	Fields []string
}

func (e *MissingAnswersError) Error() string {
	return ErrMissingAnswers.Error() + " (missing: " + strings.Join(e.Fields, ", ") + ")"
}

func (e *MissingAnswersError) Is(target error) bool { return target == ErrMissingAnswers }

// Key is a stable identifier for an answer set: the hex sha256 of its
// normalized JSON form.
func (a Answers) Key() string {
	raw, _ := json.Marshal(a.Normalize())
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
