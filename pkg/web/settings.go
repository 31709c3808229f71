package web

import (
	"net/http"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
)

type settingsField struct {
	Name        string
	Title       string
	Description string
	Value       string
	IsBool      bool
	IsInt       bool
	Checked     bool
}

type settingsGroup struct {
	Title       string
	Description string
	Fields      []settingsField
}

type settingsPage struct {
	pageData
	Action string
	Groups []settingsGroup
}

// settingsGroups renders the catalog in definition order, split at
// the heading markers.
func settingsGroups(cfg *config.Catalog) []settingsGroup {
	var groups []settingsGroup
	current := settingsGroup{Title: "Settings"}
	started := false

	for _, p := range cfg.Params() {
		if p.Kind == config.KindHead {
			if started && len(current.Fields) > 0 {
				groups = append(groups, current)
			}
			current = settingsGroup{Title: p.Title, Description: p.Description}
			started = true
			continue
		}
		current.Fields = append(current.Fields, settingsField{
			Name:        p.Name,
			Title:       p.Title,
			Description: p.Description,
			Value:       p.StringValue(),
			IsBool:      p.Kind == config.KindBool,
			IsInt:       p.Kind == config.KindInt,
			Checked:     p.Kind == config.KindBool && p.StringValue() == "1",
		})
		started = true
	}
	if len(current.Fields) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func (s *Server) renderSettings(w http.ResponseWriter, cfg *config.Catalog, status int, errs []string, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := pageTemplates.ExecuteTemplate(w, "settings", settingsPage{
		pageData: pageData{Title: "Shibboleth authentication settings", Errors: errs, Notice: notice},
		Action:   "/settings",
		Groups:   settingsGroups(cfg),
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to render settings page")
	}
}

func (s *Server) showSettings(w http.ResponseWriter, r *http.Request) {
	notice := ""
	if r.URL.Query().Get("saved") == "1" {
		notice = "Settings saved."
	}
	s.renderSettings(w, s.cfg, http.StatusOK, nil, notice)
}

// saveSettings coerces the posted values into a staging copy of the
// catalog, persists it, and only then makes it live. Coercion or
// persistence failures redisplay the form with the posted values
// while logins keep seeing the previous configuration. Unchecked
// checkboxes arrive as absent fields and are set to their off value
// explicitly.
func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSettings(w, s.cfg, http.StatusBadRequest, []string{"Invalid form submission."}, "")
		return
	}

	staged := s.cfg.Clone()
	var errs []string
	for _, p := range staged.Params() {
		if p.Kind == config.KindHead {
			continue
		}
		raw := r.PostForm.Get(p.Name)
		if err := staged.Set(p.Name, raw); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		s.renderSettings(w, staged, http.StatusUnprocessableEntity, errs, "")
		return
	}

	if s.cfgStore != nil {
		if err := s.cfgStore.Save(r.Context(), staged); err != nil {
			s.logger.WithError(err).Error("failed to persist settings")
			s.renderSettings(w, staged, http.StatusInternalServerError,
				[]string{"Settings could not be saved. Please try again."}, "")
			return
		}
	}
	s.cfg.AdoptValues(staged)
	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}
