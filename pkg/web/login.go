package web

import (
	"net/http"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

// headerAttributes lists the attributes read from the request
// environment the host service provider exports. Header names equal
// the attribute names; aggregated values arrive semicolon joined.
var headerAttributes = []string{
	shibdata.AttrPrincipalName,
	shibdata.AttrEntitlement,
	shibdata.AttrGivenName,
	shibdata.AttrSurname,
	shibdata.AttrMail,
	shibdata.AttrGender,
	shibdata.AttrMatriculation,
}

// attributesFromHeaders collects the federation attributes the
// service provider injected into the request.
func (s *Server) attributesFromHeaders(r *http.Request) shibdata.AttributeSet {
	attrs := shibdata.AttributeSet{}
	for _, name := range headerAttributes {
		if v := r.Header.Get(name); v != "" {
			attrs[name] = v
		}
	}
	// configured attribute names may differ from the defaults
	for _, param := range []string{config.ParamLocalUserAttrib, config.ParamEntitlementAttrib} {
		if name := s.cfg.GetString(param); name != "" {
			if v := r.Header.Get(name); v != "" {
				attrs[name] = v
			}
		}
	}
	return attrs
}

// handleLogin is the attribute intake hook: the host service provider
// protects this path and exports the assertion attributes as request
// headers. A successful login answers with a redirect.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	attrs := s.attributesFromHeaders(r)
	res, err := s.flow.Authenticate(r.Context(), attrs, r.URL.Query())
	if err != nil {
		s.renderLoginError(w, err)
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
