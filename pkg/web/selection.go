package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DatabayAG/VhbShibAuth/pkg/authflow"
	"github.com/DatabayAG/VhbShibAuth/pkg/matching"
)

type selectionPage struct {
	pageData
	Action    string
	SessionID string
	DeepLink  string
	Groups    []*matching.SelectionGroup
}

// showSelection renders the pending course choices of a session.
func (s *Server) showSelection(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		s.renderMessage(w, http.StatusBadRequest, "Course selection",
			"This page can only be reached from a federation login.", s.flow.StartPageURL())
		return
	}

	_, groups, err := s.flow.PendingGroups(r.Context(), sessionID)
	if err != nil {
		s.logger.WithError(err).Error("failed to load pending selection")
		s.renderMessage(w, http.StatusInternalServerError, "Course selection",
			"The course selection could not be loaded. Please try again later.", "")
		return
	}
	if groups == nil {
		s.renderMessage(w, http.StatusGone, "Course selection",
			"Your selection expired. Please log in again.", s.flow.StartPageURL())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = pageTemplates.ExecuteTemplate(w, "selection", selectionPage{
		pageData:  pageData{Title: "Course selection"},
		Action:    "/select-courses",
		SessionID: sessionID,
		DeepLink:  r.URL.Query().Get(authflow.DeepLinkParam),
		Groups:    groups,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to render selection page")
	}
}

// submitSelection applies the confirmed choices and sends the user on
// to the platform.
func (s *Server) submitSelection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderMessage(w, http.StatusBadRequest, "Course selection", "Invalid form submission.", "")
		return
	}
	sessionID := r.PostForm.Get("session")
	if sessionID == "" {
		s.renderMessage(w, http.StatusBadRequest, "Course selection", "Invalid form submission.", "")
		return
	}

	pending, _, err := s.flow.PendingGroups(r.Context(), sessionID)
	if err != nil {
		s.logger.WithError(err).Error("failed to load pending selection")
		s.renderMessage(w, http.StatusInternalServerError, "Course selection",
			"The course selection could not be processed. Please try again later.", "")
		return
	}
	if pending == nil {
		s.renderMessage(w, http.StatusGone, "Course selection",
			"Your selection expired. Please log in again.", s.flow.StartPageURL())
		return
	}

	choices := make([]matching.SelectionChoice, 0, len(pending.Courses))
	for lvnr := range pending.Courses {
		choice := matching.SelectionChoice{CourseNumber: lvnr}
		if ref, err := strconv.ParseInt(r.PostForm.Get("direct_"+lvnr), 10, 64); err == nil {
			choice.DirectRef = ref
		}
		for _, raw := range r.PostForm["wait_"+lvnr] {
			if ref, err := strconv.ParseInt(raw, 10, 64); err == nil {
				choice.WaitlistRefs = append(choice.WaitlistRefs, ref)
			}
		}
		choices = append(choices, choice)
	}

	redirect, err := s.flow.CompleteSelection(r.Context(), sessionID, choices,
		r.PostForm.Get(authflow.DeepLinkParam))
	if err != nil {
		var expired *authflow.SessionExpiredError
		if errors.As(err, &expired) {
			s.renderMessage(w, http.StatusGone, "Course selection",
				"Your selection expired. Please log in again.", s.flow.StartPageURL())
			return
		}
		s.logger.WithError(err).Error("failed to apply course selection")
		s.renderMessage(w, http.StatusBadRequest, "Course selection",
			"Your selection could not be applied. Please log in again.", s.flow.StartPageURL())
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}
