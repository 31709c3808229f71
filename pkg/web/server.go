package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/DatabayAG/VhbShibAuth/pkg/authflow"
	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/matching"
	"github.com/DatabayAG/VhbShibAuth/pkg/observability"
)

// Server holds the HTTP handlers of the service.
type Server struct {
	flow     *authflow.Flow
	cfg      *config.Catalog
	cfgStore *config.Store
	courses  matching.CourseStore
	saml     *SAMLService // nil = header intake only
	logger   *observability.Logger
	metrics  *observability.Metrics // optional
}

// NewServer creates the HTTP surface. cfgStore may be nil when the
// settings form should not persist (tests); saml may be nil when
// attributes arrive from the host service provider via headers.
func NewServer(flow *authflow.Flow, cfg *config.Catalog, cfgStore *config.Store,
	courses matching.CourseStore, saml *SAMLService,
	logger *observability.Logger, metrics *observability.Metrics) *Server {
	return &Server{
		flow:     flow,
		cfg:      cfg,
		cfgStore: cfgStore,
		courses:  courses,
		saml:     saml,
		logger:   logger,
		metrics:  metrics,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/auth/shibboleth/login", s.handleLogin).Methods(http.MethodGet, http.MethodPost)
	if s.saml != nil {
		r.HandleFunc("/auth/shibboleth/callback", s.handleSAMLCallback).Methods(http.MethodPost)
	}
	r.HandleFunc("/select-courses", s.showSelection).Methods(http.MethodGet)
	r.HandleFunc("/select-courses", s.submitSelection).Methods(http.MethodPost)
	r.HandleFunc("/settings", s.showSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.saveSettings).Methods(http.MethodPost)
	r.HandleFunc("/api/courses", s.listCourses).Methods(http.MethodGet)

	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	return r
}

type pageData struct {
	Title   string
	Errors  []string
	Notice  string
	Message string
	BackURL string
}

func (s *Server) renderMessage(w http.ResponseWriter, status int, title, message, backURL string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := pageTemplates.ExecuteTemplate(w, "message", pageData{
		Title:   title,
		Message: message,
		BackURL: backURL,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to render page")
	}
}

// renderLoginError translates pipeline failures into user facing
// pages. Configuration problems and refused logins get distinct
// wording; everything else is a generic failure.
func (s *Server) renderLoginError(w http.ResponseWriter, err error) {
	switch {
	case authflow.IsAmbiguity(err):
		s.logger.WithError(err).Error("login failed on ambiguous attribute aggregation")
		s.renderMessage(w, http.StatusConflict, "Login failed",
			"Your institutions delivered conflicting identity data. Please contact the platform support.", "")
	case authflow.IsAccessDenied(err):
		s.logger.WithError(err).Warn("login refused")
		s.renderMessage(w, http.StatusForbidden, "Access denied",
			"Your federation account does not grant access to this platform.", "")
	default:
		s.logger.WithError(err).Error("login failed")
		s.renderMessage(w, http.StatusInternalServerError, "Login failed",
			"The login could not be completed. Please try again later.", "")
	}
}
