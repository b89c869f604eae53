// Package content models the subject, course and concept graph.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Course levels.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Subject is the top of the hierarchy, e.g. "Computer Science".
type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Course belongs to a subject.
type Course struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id" validate:"required,uuid4"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	Level       string    `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Concept belongs to a course and may link to a renderable vertical kind.
type Concept struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id" validate:"required,uuid4"`
	Name       string    `json:"name" validate:"required,max=200"`
	Summary    string    `json:"summary" validate:"max=4000"`
	Domain     string    `json:"domain,omitempty" validate:"required_with=RenderKind,max=50"`
	RenderKind string    `json:"render_kind,omitempty" validate:"max=50"`
	Tags       []string  `json:"tags,omitempty" validate:"max=20,dive,required,max=50"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Counts summarises a store.
type Counts struct {
	Subjects      int `json:"subjects"`
	Courses       int `json:"courses"`
	Concepts      int `json:"concepts"`
	Prerequisites int `json:"prerequisites"`
}

var validate = validator.New()

// Validate checks struct tags and wraps failures in ErrInvalid.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %s", ErrInvalid, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// KindChecker reports whether a vertical can render (domain, kind).
type KindChecker interface {
	Has(domain, kind string) bool
}

// ValidateConcept validates c and, when it names a render kind, checks it
// against kinds.
func ValidateConcept(c Concept, kinds KindChecker) error {
	if err := Validate(c); err != nil {
		return err
	}
	if c.RenderKind != "" && kinds != nil && !kinds.Has(c.Domain, c.RenderKind) {
		return fmt.Errorf("%w: no renderer for %s/%s", ErrInvalid, c.Domain, c.RenderKind)
	}
	return nil
}

// NewID returns a random UUIDv4 string.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id parses as a UUID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NormalizeName folds names for uniqueness and search.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
