// Package contentstore persists the subject, course and concept graph.
package contentstore

import (
	"context"
	"time"

	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/pkg/metrics"
)

// Store provides read/write access to content metadata.
//
// Errors wrap content.ErrNotFound, content.ErrConflict, content.ErrCycle
// and content.ErrInvalid.
type Store interface {
	CreateSubject(ctx context.Context, s content.Subject) (content.Subject, error)
	GetSubject(ctx context.Context, id string) (content.Subject, error)
	ListSubjects(ctx context.Context, req content.PageRequest) (content.Page[content.Subject], error)
	UpdateSubject(ctx context.Context, s content.Subject) (content.Subject, error)
	// DeleteSubject fails with ErrConflict while the subject has courses.
	DeleteSubject(ctx context.Context, id string) error

	CreateCourse(ctx context.Context, c content.Course) (content.Course, error)
	GetCourse(ctx context.Context, id string) (content.Course, error)
	ListCourses(ctx context.Context, subjectID string, req content.PageRequest) (content.Page[content.Course], error)
	UpdateCourse(ctx context.Context, c content.Course) (content.Course, error)
	// DeleteCourse fails with ErrConflict while the course has concepts.
	DeleteCourse(ctx context.Context, id string) error

	CreateConcept(ctx context.Context, c content.Concept) (content.Concept, error)
	GetConcept(ctx context.Context, id string) (content.Concept, error)
	ListConcepts(ctx context.Context, courseID string, req content.PageRequest) (content.Page[content.Concept], error)
	UpdateConcept(ctx context.Context, c content.Concept) (content.Concept, error)
	// DeleteConcept also drops every prerequisite edge touching the concept.
	DeleteConcept(ctx context.Context, id string) error
	// SearchConcepts matches a case-insensitive substring of the name.
	SearchConcepts(ctx context.Context, query string, req content.PageRequest) (content.Page[content.Concept], error)

	// AddPrerequisite records that id requires requiresID; ErrCycle if that
	// would close a loop. Adding an existing edge is a no-op.
	AddPrerequisite(ctx context.Context, id, requiresID string) error
	RemovePrerequisite(ctx context.Context, id, requiresID string) error
	// Prerequisites returns the direct prerequisites ordered by name.
	Prerequisites(ctx context.Context, id string) ([]content.Concept, error)
	// LearningPath returns every transitive prerequisite in dependency
	// order, ending with the concept itself.
	LearningPath(ctx context.Context, id string) ([]content.Concept, error)

	Counts(ctx context.Context) (content.Counts, error)
	Close(ctx context.Context) error
}

// observe records the outcome and latency of a store operation.
func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordContentOperation(op, outcome, float64(time.Since(start).Microseconds())/1000)
}
