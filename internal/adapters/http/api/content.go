package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/visualverse/internal/adapters/repository/contentstore"
	"github.com/okian/visualverse/internal/domain/content"
)

// ContentHandler serves subjects, courses, concepts and prerequisites.
type ContentHandler struct {
	store       contentstore.Store
	maxBody     int64
	pageSize    int
	maxPageSize int
}

// NewContentHandler creates a new content handler.
func NewContentHandler(store contentstore.Store, maxBody int64, pageSize, maxPageSize int) *ContentHandler {
	return &ContentHandler{store: store, maxBody: maxBody, pageSize: pageSize, maxPageSize: maxPageSize}
}

type subjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type courseRequest struct {
	SubjectID   string `json:"subject_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
}

type conceptRequest struct {
	CourseID   string   `json:"course_id"`
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	Domain     string   `json:"domain"`
	RenderKind string   `json:"render_kind"`
	Tags       []string `json:"tags"`
}

func (c conceptRequest) concept(id string) content.Concept {
	return content.Concept{
		ID:         id,
		CourseID:   c.CourseID,
		Name:       c.Name,
		Summary:    c.Summary,
		Domain:     c.Domain,
		RenderKind: c.RenderKind,
		Tags:       c.Tags,
	}
}

type prerequisiteRequest struct {
	RequiresID string `json:"requires_id" validate:"required"`
}

func (h *ContentHandler) page(w http.ResponseWriter, r *http.Request, op string) (content.PageRequest, bool) {
	req, err := pageRequest(r, h.pageSize, h.maxPageSize)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return content.PageRequest{}, false
	}
	return req, true
}

// respond writes v with status, or the mapped error.
func respond[T any](w http.ResponseWriter, r *http.Request, op string, status int, v T, err error) {
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, status, v)
}

func noContent(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubjects handles GET /api/v1/subjects.
func (h *ContentHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_subjects"
	req, ok := h.page(w, r, op)
	if !ok {
		return
	}
	page, err := h.store.ListSubjects(r.Context(), req)
	respond(w, r, op, http.StatusOK, page, err)
}

// CreateSubject handles POST /api/v1/subjects.
func (h *ContentHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_subject"
	var in subjectRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	s, err := h.store.CreateSubject(r.Context(), content.Subject{Name: in.Name, Description: in.Description})
	respond(w, r, op, http.StatusCreated, s, err)
}

// GetSubject handles GET /api/v1/subjects/{id}.
func (h *ContentHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_subject"
	s, err := h.store.GetSubject(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, op, http.StatusOK, s, err)
}

// UpdateSubject handles PUT /api/v1/subjects/{id}.
func (h *ContentHandler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_subject"
	var in subjectRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	s, err := h.store.UpdateSubject(r.Context(), content.Subject{ID: chi.URLParam(r, "id"), Name: in.Name, Description: in.Description})
	respond(w, r, op, http.StatusOK, s, err)
}

// DeleteSubject handles DELETE /api/v1/subjects/{id}.
func (h *ContentHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, "api.delete_subject", h.store.DeleteSubject(r.Context(), chi.URLParam(r, "id")))
}

// ListCourses handles GET /api/v1/subjects/{id}/courses.
func (h *ContentHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_courses"
	req, ok := h.page(w, r, op)
	if !ok {
		return
	}
	page, err := h.store.ListCourses(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, r, op, http.StatusOK, page, err)
}

// CreateCourse handles POST /api/v1/courses.
func (h *ContentHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_course"
	var in courseRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	c, err := h.store.CreateCourse(r.Context(), content.Course{
		SubjectID: in.SubjectID, Title: in.Title, Description: in.Description, Level: in.Level,
	})
	respond(w, r, op, http.StatusCreated, c, err)
}

// GetCourse handles GET /api/v1/courses/{id}.
func (h *ContentHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_course"
	c, err := h.store.GetCourse(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, op, http.StatusOK, c, err)
}

// UpdateCourse handles PUT /api/v1/courses/{id}.
func (h *ContentHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_course"
	var in courseRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	c, err := h.store.UpdateCourse(r.Context(), content.Course{
		ID: chi.URLParam(r, "id"), SubjectID: in.SubjectID, Title: in.Title, Description: in.Description, Level: in.Level,
	})
	respond(w, r, op, http.StatusOK, c, err)
}

// DeleteCourse handles DELETE /api/v1/courses/{id}.
func (h *ContentHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, "api.delete_course", h.store.DeleteCourse(r.Context(), chi.URLParam(r, "id")))
}

// ListConcepts handles GET /api/v1/courses/{id}/concepts.
func (h *ContentHandler) ListConcepts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_concepts"
	req, ok := h.page(w, r, op)
	if !ok {
		return
	}
	page, err := h.store.ListConcepts(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, r, op, http.StatusOK, page, err)
}

// CreateConcept handles POST /api/v1/concepts.
func (h *ContentHandler) CreateConcept(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_concept"
	var in conceptRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	c, err := h.store.CreateConcept(r.Context(), in.concept(""))
	respond(w, r, op, http.StatusCreated, c, err)
}

// GetConcept handles GET /api/v1/concepts/{id}.
func (h *ContentHandler) GetConcept(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_concept"
	c, err := h.store.GetConcept(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, op, http.StatusOK, c, err)
}

// UpdateConcept handles PUT /api/v1/concepts/{id}.
func (h *ContentHandler) UpdateConcept(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_concept"
	var in conceptRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	c, err := h.store.UpdateConcept(r.Context(), in.concept(chi.URLParam(r, "id")))
	respond(w, r, op, http.StatusOK, c, err)
}

// DeleteConcept handles DELETE /api/v1/concepts/{id}.
func (h *ContentHandler) DeleteConcept(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, "api.delete_concept", h.store.DeleteConcept(r.Context(), chi.URLParam(r, "id")))
}

// SearchConcepts handles GET /api/v1/concepts/search?q=.
func (h *ContentHandler) SearchConcepts(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_concepts"
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, WrapKind(op, ErrBadRequest, errEmptyQuery))
		return
	}
	req, ok := h.page(w, r, op)
	if !ok {
		return
	}
	page, err := h.store.SearchConcepts(r.Context(), q, req)
	respond(w, r, op, http.StatusOK, page, err)
}

// ListPrerequisites handles GET /api/v1/concepts/{id}/prerequisites.
func (h *ContentHandler) ListPrerequisites(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_prerequisites"
	out, err := h.store.Prerequisites(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, op, http.StatusOK, nonNil(out), err)
}

// AddPrerequisite handles POST /api/v1/concepts/{id}/prerequisites.
func (h *ContentHandler) AddPrerequisite(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_prerequisite"
	var in prerequisiteRequest
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	noContent(w, r, op, h.store.AddPrerequisite(r.Context(), chi.URLParam(r, "id"), in.RequiresID))
}

// RemovePrerequisite handles DELETE /api/v1/concepts/{id}/prerequisites/{requiresID}.
func (h *ContentHandler) RemovePrerequisite(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, "api.remove_prerequisite",
		h.store.RemovePrerequisite(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "requiresID")))
}

// LearningPath handles GET /api/v1/concepts/{id}/learning-path.
func (h *ContentHandler) LearningPath(w http.ResponseWriter, r *http.Request) {
	const op = "api.learning_path"
	out, err := h.store.LearningPath(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, op, http.StatusOK, nonNil(out), err)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
