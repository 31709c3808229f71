package web

import (
	"net/http"

	"github.com/DatabayAG/VhbShibAuth/pkg/httputil"
	"github.com/DatabayAG/VhbShibAuth/pkg/matching"
)

// courseInfo is the JSON shape of one registered course.
type courseInfo struct {
	RefID             int64    `json:"ref_id"`
	Title             string   `json:"title"`
	Patterns          []string `json:"patterns"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
}

// listCourses exposes the registered courses for operators: which
// courses carry a course number pattern, and optionally which of them
// match a given number. Intended for verifying the course tagging
// after registration.
func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	var (
		matched []*matching.Course
		err     error
	)
	if lvnr := httputil.QueryString(r, "lvnr", ""); lvnr != "" {
		matcher := matching.NewMatcher(s.cfg, s.courses, nil, s.logger, nil)
		matched, err = matcher.MatchingCourses(r.Context(), lvnr)
	} else {
		matched, err = s.courses.RelevantCourses(r.Context())
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to list registered courses")
		httputil.WriteInternalError(w)
		return
	}

	out := make([]courseInfo, 0, len(matched))
	for _, c := range matched {
		out = append(out, courseInfo{
			RefID:             c.RefID,
			Title:             c.Title,
			Patterns:          c.LVPatterns,
			NeedsConfirmation: c.NeedsConfirmation,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
