// Package web provides the HTTP surface of the service: the
// Shibboleth attribute intake, an optional SAML assertion consumer,
// the course selection screen and the plugin settings form.
package web
