package contentstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/pkg/metrics"
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps the content graph in maps guarded by a RWMutex.
// Listings are ordered by created_at, then id.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	subjects map[string]content.Subject
	courses  map[string]content.Course
	concepts map[string]content.Concept
	names    map[string]string // normalized subject name -> id

	subjectOrder     index
	conceptOrder     index
	coursesBySubject map[string]*index
	conceptsByCourse map[string]*index

	requires content.Requires
	edges    int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:              func() time.Time { return time.Now().UTC() },
		subjects:         make(map[string]content.Subject),
		courses:          make(map[string]content.Course),
		concepts:         make(map[string]content.Concept),
		names:            make(map[string]string),
		coursesBySubject: make(map[string]*index),
		conceptsByCourse: make(map[string]*index),
		requires:         make(content.Requires),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func childIndex(m map[string]*index, parent string) *index {
	x, ok := m[parent]
	if !ok {
		x = &index{}
		m[parent] = x
	}
	return x
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", content.ErrNotFound, kind, id)
}

func (s *MemoryStore) publishCounts() {
	metrics.UpdateContentItems("subjects", len(s.subjects))
	metrics.UpdateContentItems("courses", len(s.courses))
	metrics.UpdateContentItems("concepts", len(s.concepts))
	metrics.UpdateContentItems("prerequisites", s.edges)
}

// CreateSubject implements Store.
func (s *MemoryStore) CreateSubject(_ context.Context, in content.Subject) (out content.Subject, err error) {
	defer func(start time.Time) { observe("create_subject", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Subject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := content.NormalizeName(in.Name)
	if _, dup := s.names[name]; dup {
		return content.Subject{}, fmt.Errorf("%w: subject %q exists", content.ErrConflict, in.Name)
	}
	in.ID = content.NewID()
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	s.subjects[in.ID] = in
	s.names[name] = in.ID
	s.subjectOrder.add(in.ID, in.CreatedAt)
	s.publishCounts()
	return in, nil
}

// GetSubject implements Store.
func (s *MemoryStore) GetSubject(_ context.Context, id string) (out content.Subject, err error) {
	defer func(start time.Time) { observe("get_subject", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return content.Subject{}, notFound("subject", id)
	}
	return sub, nil
}

// ListSubjects implements Store.
func (s *MemoryStore) ListSubjects(_ context.Context, req content.PageRequest) (content.Page[content.Subject], error) {
	defer func(start time.Time) { observe("list_subjects", start, nil) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.subjectOrder.page(req.Offset(), req.PageSize)
	items := make([]content.Subject, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.subjects[id])
	}
	return content.NewPage(items, req, s.subjectOrder.len()), nil
}

// UpdateSubject implements Store.
func (s *MemoryStore) UpdateSubject(_ context.Context, in content.Subject) (out content.Subject, err error) {
	defer func(start time.Time) { observe("update_subject", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Subject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.subjects[in.ID]
	if !ok {
		return content.Subject{}, notFound("subject", in.ID)
	}
	oldName, newName := content.NormalizeName(cur.Name), content.NormalizeName(in.Name)
	if oldName != newName {
		if _, dup := s.names[newName]; dup {
			return content.Subject{}, fmt.Errorf("%w: subject %q exists", content.ErrConflict, in.Name)
		}
		delete(s.names, oldName)
		s.names[newName] = in.ID
	}
	cur.Name, cur.Description = in.Name, in.Description
	cur.UpdatedAt = s.now()
	s.subjects[cur.ID] = cur
	return cur, nil
}

// DeleteSubject implements Store.
func (s *MemoryStore) DeleteSubject(_ context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_subject", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subjects[id]
	if !ok {
		return notFound("subject", id)
	}
	if x := s.coursesBySubject[id]; x != nil && x.len() > 0 {
		return fmt.Errorf("%w: subject %s still has %d courses", content.ErrConflict, id, x.len())
	}
	delete(s.subjects, id)
	delete(s.names, content.NormalizeName(sub.Name))
	delete(s.coursesBySubject, id)
	s.subjectOrder.remove(id, sub.CreatedAt)
	s.publishCounts()
	return nil
}

// CreateCourse implements Store.
func (s *MemoryStore) CreateCourse(_ context.Context, in content.Course) (out content.Course, err error) {
	defer func(start time.Time) { observe("create_course", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Course{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[in.SubjectID]; !ok {
		return content.Course{}, notFound("subject", in.SubjectID)
	}
	in.ID = content.NewID()
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	s.courses[in.ID] = in
	childIndex(s.coursesBySubject, in.SubjectID).add(in.ID, in.CreatedAt)
	s.publishCounts()
	return in, nil
}

// GetCourse implements Store.
func (s *MemoryStore) GetCourse(_ context.Context, id string) (out content.Course, err error) {
	defer func(start time.Time) { observe("get_course", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return content.Course{}, notFound("course", id)
	}
	return c, nil
}

// ListCourses implements Store.
func (s *MemoryStore) ListCourses(_ context.Context, subjectID string, req content.PageRequest) (out content.Page[content.Course], err error) {
	defer func(start time.Time) { observe("list_courses", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.subjects[subjectID]; !ok {
		return content.Page[content.Course]{}, notFound("subject", subjectID)
	}
	x := s.coursesBySubject[subjectID]
	if x == nil {
		return content.NewPage[content.Course](nil, req, 0), nil
	}
	ids := x.page(req.Offset(), req.PageSize)
	items := make([]content.Course, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.courses[id])
	}
	return content.NewPage(items, req, x.len()), nil
}

// UpdateCourse implements Store. Moving a course to another subject is allowed.
func (s *MemoryStore) UpdateCourse(_ context.Context, in content.Course) (out content.Course, err error) {
	defer func(start time.Time) { observe("update_course", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Course{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.courses[in.ID]
	if !ok {
		return content.Course{}, notFound("course", in.ID)
	}
	if _, ok := s.subjects[in.SubjectID]; !ok {
		return content.Course{}, notFound("subject", in.SubjectID)
	}
	if cur.SubjectID != in.SubjectID {
		s.coursesBySubject[cur.SubjectID].remove(cur.ID, cur.CreatedAt)
		childIndex(s.coursesBySubject, in.SubjectID).add(cur.ID, cur.CreatedAt)
	}
	cur.SubjectID, cur.Title, cur.Description, cur.Level = in.SubjectID, in.Title, in.Description, in.Level
	cur.UpdatedAt = s.now()
	s.courses[cur.ID] = cur
	return cur, nil
}

// DeleteCourse implements Store.
func (s *MemoryStore) DeleteCourse(_ context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_course", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return notFound("course", id)
	}
	if x := s.conceptsByCourse[id]; x != nil && x.len() > 0 {
		return fmt.Errorf("%w: course %s still has %d concepts", content.ErrConflict, id, x.len())
	}
	delete(s.courses, id)
	delete(s.conceptsByCourse, id)
	s.coursesBySubject[c.SubjectID].remove(id, c.CreatedAt)
	s.publishCounts()
	return nil
}

func cloneConcept(c content.Concept) content.Concept {
	c.Tags = append([]string(nil), c.Tags...)
	return c
}

// CreateConcept implements Store.
func (s *MemoryStore) CreateConcept(_ context.Context, in content.Concept) (out content.Concept, err error) {
	defer func(start time.Time) { observe("create_concept", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Concept{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[in.CourseID]; !ok {
		return content.Concept{}, notFound("course", in.CourseID)
	}
	in = cloneConcept(in)
	in.ID = content.NewID()
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	s.concepts[in.ID] = in
	s.conceptOrder.add(in.ID, in.CreatedAt)
	childIndex(s.conceptsByCourse, in.CourseID).add(in.ID, in.CreatedAt)
	s.publishCounts()
	return cloneConcept(in), nil
}

// GetConcept implements Store.
func (s *MemoryStore) GetConcept(_ context.Context, id string) (out content.Concept, err error) {
	defer func(start time.Time) { observe("get_concept", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.concepts[id]
	if !ok {
		return content.Concept{}, notFound("concept", id)
	}
	return cloneConcept(c), nil
}

// ListConcepts implements Store.
func (s *MemoryStore) ListConcepts(_ context.Context, courseID string, req content.PageRequest) (out content.Page[content.Concept], err error) {
	defer func(start time.Time) { observe("list_concepts", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.courses[courseID]; !ok {
		return content.Page[content.Concept]{}, notFound("course", courseID)
	}
	x := s.conceptsByCourse[courseID]
	if x == nil {
		return content.NewPage[content.Concept](nil, req, 0), nil
	}
	ids := x.page(req.Offset(), req.PageSize)
	items := make([]content.Concept, 0, len(ids))
	for _, id := range ids {
		items = append(items, cloneConcept(s.concepts[id]))
	}
	return content.NewPage(items, req, x.len()), nil
}

// UpdateConcept implements Store.
func (s *MemoryStore) UpdateConcept(_ context.Context, in content.Concept) (out content.Concept, err error) {
	defer func(start time.Time) { observe("update_concept", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Concept{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.concepts[in.ID]
	if !ok {
		return content.Concept{}, notFound("concept", in.ID)
	}
	if _, ok := s.courses[in.CourseID]; !ok {
		return content.Concept{}, notFound("course", in.CourseID)
	}
	if cur.CourseID != in.CourseID {
		s.conceptsByCourse[cur.CourseID].remove(cur.ID, cur.CreatedAt)
		childIndex(s.conceptsByCourse, in.CourseID).add(cur.ID, cur.CreatedAt)
	}
	cur.CourseID, cur.Name, cur.Summary = in.CourseID, in.Name, in.Summary
	cur.Domain, cur.RenderKind, cur.Tags = in.Domain, in.RenderKind, append([]string(nil), in.Tags...)
	cur.UpdatedAt = s.now()
	s.concepts[cur.ID] = cur
	return cloneConcept(cur), nil
}

// DeleteConcept implements Store.
func (s *MemoryStore) DeleteConcept(_ context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_concept", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.concepts[id]
	if !ok {
		return notFound("concept", id)
	}
	s.edges -= len(s.requires[id])
	delete(s.requires, id)
	for other, pres := range s.requires {
		for i, p := range pres {
			if p == id {
				s.requires[other] = append(pres[:i:i], pres[i+1:]...)
				s.edges--
				break
			}
		}
	}
	delete(s.concepts, id)
	s.conceptOrder.remove(id, c.CreatedAt)
	s.conceptsByCourse[c.CourseID].remove(id, c.CreatedAt)
	s.publishCounts()
	return nil
}

// SearchConcepts implements Store.
func (s *MemoryStore) SearchConcepts(_ context.Context, query string, req content.PageRequest) (content.Page[content.Concept], error) {
	defer func(start time.Time) { observe("search_concepts", start, nil) }(time.Now())
	q := content.NormalizeName(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []content.Concept
	s.conceptOrder.each(func(id string) bool {
		c := s.concepts[id]
		if strings.Contains(strings.ToLower(c.Name), q) {
			matches = append(matches, cloneConcept(c))
		}
		return true
	})
	return content.Paginate(matches, req), nil
}

// AddPrerequisite implements Store.
func (s *MemoryStore) AddPrerequisite(_ context.Context, id, requiresID string) (err error) {
	defer func(start time.Time) { observe("add_prerequisite", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.concepts[id]; !ok {
		return notFound("concept", id)
	}
	if _, ok := s.concepts[requiresID]; !ok {
		return notFound("concept", requiresID)
	}
	for _, p := range s.requires[id] {
		if p == requiresID {
			return nil
		}
	}
	if err := s.requires.CheckPrerequisite(id, requiresID); err != nil {
		return err
	}
	s.requires[id] = append(s.requires[id], requiresID)
	s.edges++
	s.publishCounts()
	return nil
}

// RemovePrerequisite implements Store.
func (s *MemoryStore) RemovePrerequisite(_ context.Context, id, requiresID string) (err error) {
	defer func(start time.Time) { observe("remove_prerequisite", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	pres := s.requires[id]
	for i, p := range pres {
		if p == requiresID {
			s.requires[id] = append(pres[:i:i], pres[i+1:]...)
			s.edges--
			s.publishCounts()
			return nil
		}
	}
	return fmt.Errorf("%w: %s does not require %s", content.ErrNotFound, id, requiresID)
}

// Prerequisites implements Store.
func (s *MemoryStore) Prerequisites(_ context.Context, id string) (out []content.Concept, err error) {
	defer func(start time.Time) { observe("prerequisites", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.concepts[id]; !ok {
		return nil, notFound("concept", id)
	}
	out = make([]content.Concept, 0, len(s.requires[id]))
	for _, p := range s.requires[id] {
		out = append(out, cloneConcept(s.concepts[p]))
	}
	sortByName(out)
	return out, nil
}

func sortByName(cs []content.Concept) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
}

// LearningPath implements Store.
func (s *MemoryStore) LearningPath(_ context.Context, id string) (out []content.Concept, err error) {
	defer func(start time.Time) { observe("learning_path", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, err := content.LearningPath(id, s.concepts, s.requires)
	if err != nil {
		return nil, err
	}
	for i := range path {
		path[i] = cloneConcept(path[i])
	}
	return path, nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(_ context.Context) (content.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return content.Counts{
		Subjects:      len(s.subjects),
		Courses:       len(s.courses),
		Concepts:      len(s.concepts),
		Prerequisites: s.edges,
	}, nil
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error { return nil }
