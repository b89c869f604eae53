// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/internal/adapters/repository/contentstore"
	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/pkg/logger"
)

const (
	defaultMaxBody        = 1 << 20
	defaultStreamInterval = 250 * time.Millisecond
	defaultPageSize       = 20
	defaultMaxPageSize    = 100
)

// Deps bundles the collaborators of every handler. Each handler only sees
// the narrow interface it needs.
type Deps struct {
	Renderer  Renderer
	Jobs      JobService
	Content   contentstore.Store
	Admin     AdminService
	Stats     StatsProvider
	Dashboard DashboardProvider
}

type options struct {
	maxBody        int64
	streamInterval time.Duration
	pageSize       int
	maxPageSize    int
}

// Option configures a Server.
type Option func(*options)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

// WithStreamInterval sets the default delay between streamed frames.
func WithStreamInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.streamInterval = d
		}
	}
}

// WithPageSizes sets the default and maximum page sizes of listings.
func WithPageSizes(def, max int) Option {
	return func(o *options) {
		if def > 0 && max >= def {
			o.pageSize, o.maxPageSize = def, max
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	opts options

	opsHandler     *OpsHandler
	renderHandler  *RenderHandler
	jobsHandler    *JobsHandler
	streamHandler  *StreamHandler
	contentHandler *ContentHandler
	adminHandler   *AdminHandler
	auth           *authMiddleware
}

// NewServer creates a new API server with all handlers.
func NewServer(d Deps, opts ...Option) *Server {
	o := options{
		maxBody:        defaultMaxBody,
		streamInterval: defaultStreamInterval,
		pageSize:       defaultPageSize,
		maxPageSize:    defaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		opts:           o,
		opsHandler:     NewOpsHandler(d.Stats),
		renderHandler:  NewRenderHandler(d.Renderer, o.maxBody),
		jobsHandler:    NewJobsHandler(d.Jobs, o.maxBody),
		streamHandler:  NewStreamHandler(d.Renderer, o.streamInterval),
		contentHandler: NewContentHandler(d.Content, o.maxBody, o.pageSize, o.maxPageSize),
		adminHandler:   NewAdminHandler(d.Admin, d.Dashboard, o.maxBody),
		auth:           newAuthMiddleware(d.Admin),
	}
}

// Routes returns the router with every route registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.opsHandler.HandleHealth)
	r.Get("/stats", s.opsHandler.HandleStats)
	r.Get("/dashboard", s.opsHandler.HandleDashboard)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", s.renderHandler.HandleCatalog)
		r.Post("/render/{domain}/{kind}", s.renderHandler.HandleRender)
		r.Get("/stream/{domain}/{kind}", s.streamHandler.HandleStream)

		r.Post("/jobs", s.jobsHandler.HandleSubmit)
		r.Get("/jobs", s.jobsHandler.HandleList)
		r.Get("/jobs/{id}", s.jobsHandler.HandleGet)

		c := s.contentHandler
		editor := s.auth.require(adminstore.RoleEditor)

		r.Get("/subjects", c.ListSubjects)
		r.Get("/subjects/{id}", c.GetSubject)
		r.Get("/subjects/{id}/courses", c.ListCourses)
		r.Get("/courses/{id}", c.GetCourse)
		r.Get("/courses/{id}/concepts", c.ListConcepts)
		r.Get("/concepts/search", c.SearchConcepts)
		r.Get("/concepts/{id}", c.GetConcept)
		r.Get("/concepts/{id}/prerequisites", c.ListPrerequisites)
		r.Get("/concepts/{id}/learning-path", c.LearningPath)

		r.Group(func(r chi.Router) {
			r.Use(editor)
			r.Post("/subjects", c.CreateSubject)
			r.Put("/subjects/{id}", c.UpdateSubject)
			r.Delete("/subjects/{id}", c.DeleteSubject)
			r.Post("/courses", c.CreateCourse)
			r.Put("/courses/{id}", c.UpdateCourse)
			r.Delete("/courses/{id}", c.DeleteCourse)
			r.Post("/concepts", c.CreateConcept)
			r.Put("/concepts/{id}", c.UpdateConcept)
			r.Delete("/concepts/{id}", c.DeleteConcept)
			r.Post("/concepts/{id}/prerequisites", c.AddPrerequisite)
			r.Delete("/concepts/{id}/prerequisites/{requiresID}", c.RemovePrerequisite)
		})
	})

	a := s.adminHandler
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", a.HandleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.require(adminstore.RoleViewer))
			r.Post("/logout", a.HandleLogout)
			r.Get("/me", a.HandleMe)
			r.Get("/dashboard/stats", a.HandleDashboardStats)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.auth.require(adminstore.RoleAdmin))
			r.Get("/users", a.HandleListUsers)
			r.Post("/users", a.HandleCreateUser)
			r.Delete("/users/{id}", a.HandleDeleteUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, NewKind("api.route", ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: "method_not_allowed", Message: http.StatusText(http.StatusMethodNotAllowed)})
	})
	return r
}

// Register mounts the API on mux at the root.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	routes := s.Routes()
	for _, p := range []string{"/healthz", "/stats", "/dashboard", "/api/", "/admin/"} {
		mux.Handle(p, routes)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing status; encoding failures become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Get().Named("http").Error(context.Background(), "encode response",
			logger.Int("status", status),
			logger.Error(err),
		)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeError maps err to a status and writes {code, message}. Server
// errors are logged and their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	var apiErr *Error
	if errors.As(err, &apiErr) {
		msg = apiErr.message()
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

var validate = validator.New()

// decodeJSON reads a single JSON object into dst, rejecting unknown fields,
// trailing data and bodies over limit, then runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if isMaxBytes(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after body", ErrBadRequest)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %s", ErrBadRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// pageRequest parses ?page= and ?page_size=.
func pageRequest(r *http.Request, def, max int) (content.PageRequest, error) {
	var req content.PageRequest
	q := r.URL.Query()
	for name, dst := range map[string]*int{"page": &req.Page, "page_size": &req.PageSize} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return content.PageRequest{}, fmt.Errorf("%w: %s must be a positive integer", ErrBadRequest, name)
		}
		*dst = n
	}
	return req.Normalize(def, max), nil
}
