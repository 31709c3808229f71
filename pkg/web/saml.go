package web

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	saml2 "github.com/russellhaering/gosaml2"
	"github.com/russellhaering/gosaml2/types"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

// SAMLConfig configures the built-in assertion consumer for
// deployments without a host service provider in front.
type SAMLConfig struct {
	EntityID    string
	IdPSSOURL   string
	IdPIssuer   string
	IdPCertFile string
	// ACSURL as registered with the identity provider.
	ACSURL string
}

// SAMLService validates SAML responses and translates the assertion
// attributes into the attribute set of the login pipeline.
type SAMLService struct {
	sp *saml2.SAMLServiceProvider
}

// oidNames maps the urn:oid attribute names Shibboleth identity
// providers emit onto the friendly names the pipeline works with.
var oidNames = map[string]string{
	"urn:oid:1.3.6.1.4.1.5923.1.1.1.6":  shibdata.AttrPrincipalName,
	"urn:oid:1.3.6.1.4.1.5923.1.1.1.7":  shibdata.AttrEntitlement,
	"urn:oid:2.5.4.42":                  shibdata.AttrGivenName,
	"urn:oid:2.5.4.4":                   shibdata.AttrSurname,
	"urn:oid:0.9.2342.19200300.100.1.3": shibdata.AttrMail,
	"urn:oid:1.3.6.1.4.1.25178.1.2.2":   shibdata.AttrGender,
}

// NewSAMLService builds the service provider. The IdP signing
// certificate is read from a PEM file.
func NewSAMLService(cfg SAMLConfig) (*SAMLService, error) {
	if cfg.IdPSSOURL == "" || cfg.IdPCertFile == "" {
		return nil, fmt.Errorf("SAML requires the IdP SSO URL and certificate file")
	}

	pemBytes, err := os.ReadFile(cfg.IdPCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read IdP certificate: %w", err)
	}
	certStore := dsig.MemoryX509CertificateStore{}
	for {
		var block *pem.Block
		block, pemBytes = pem.Decode(pemBytes)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse IdP certificate: %w", err)
		}
		certStore.Roots = append(certStore.Roots, cert)
	}
	if len(certStore.Roots) == 0 {
		return nil, fmt.Errorf("no certificate found in %s", cfg.IdPCertFile)
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      cfg.IdPSSOURL,
		IdentityProviderIssuer:      cfg.IdPIssuer,
		ServiceProviderIssuer:       cfg.EntityID,
		AssertionConsumerServiceURL: cfg.ACSURL,
		AudienceURI:                 cfg.EntityID,
		IDPCertificateStore:         &certStore,
		SPKeyStore:                  dsig.RandomKeyStoreForTest(),
	}
	return &SAMLService{sp: sp}, nil
}

// AuthURL builds the IdP redirect for a login start. relayState is
// carried through the IdP round trip unmodified.
func (s *SAMLService) AuthURL(relayState string) (string, error) {
	return s.sp.BuildAuthURL(relayState)
}

// Attributes validates the base64 encoded SAMLResponse and collapses
// the assertion attributes into the pipeline's attribute set.
// Multi-valued attributes are joined with the aggregation delimiter,
// matching what a service provider would export.
func (s *SAMLService) Attributes(samlResponse string) (shibdata.AttributeSet, error) {
	info, err := s.sp.RetrieveAssertionInfo(samlResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to validate SAML response: %w", err)
	}
	if info.WarningInfo.InvalidTime || info.WarningInfo.NotInAudience {
		return nil, fmt.Errorf("SAML assertion rejected by validity checks")
	}

	attrs := shibdata.AttributeSet{}
	for _, attr := range info.Values {
		name := attributeName(attr)
		if name == "" {
			continue
		}
		values := make([]string, 0, len(attr.Values))
		for _, v := range attr.Values {
			if v.Value != "" {
				values = append(values, v.Value)
			}
		}
		if len(values) > 0 {
			attrs[name] = strings.Join(values, shibdata.Delim)
		}
	}
	return attrs, nil
}

func attributeName(attr types.Attribute) string {
	if mapped, ok := oidNames[attr.Name]; ok {
		return mapped
	}
	if attr.FriendlyName != "" {
		return attr.FriendlyName
	}
	return attr.Name
}

// handleSAMLCallback is the assertion consumer endpoint. The relay
// state carries the query of the original login request, so deep
// links and the test override survive the IdP round trip.
func (s *Server) handleSAMLCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderMessage(w, http.StatusBadRequest, "Login failed", "Invalid SAML response.", "")
		return
	}
	samlResponse := r.PostForm.Get("SAMLResponse")
	if samlResponse == "" {
		s.renderMessage(w, http.StatusBadRequest, "Login failed", "Missing SAMLResponse parameter.", "")
		return
	}

	attrs, err := s.saml.Attributes(samlResponse)
	if err != nil {
		s.logger.WithError(err).Error("SAML response validation failed")
		s.renderMessage(w, http.StatusBadRequest, "Login failed",
			"The identity provider response could not be validated.", "")
		return
	}

	query, err := url.ParseQuery(r.PostForm.Get("RelayState"))
	if err != nil {
		query = url.Values{}
	}

	res, err := s.flow.Authenticate(r.Context(), attrs, query)
	if err != nil {
		s.renderLoginError(w, err)
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
