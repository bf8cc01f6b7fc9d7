package core

import (
	"net/url"
	"strings"
)

// CleanString strips surrounding whitespace from s. Pass true to also
// lower-case the result for case-insensitive identifiers such as
// usernames and emails.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}

// FrontendURL builds an absolute link into the web frontend, for use in
// outgoing emails and SMS.
func FrontendURL(path string, query url.Values) string {
	u := strings.TrimSuffix(Conf.FrontendBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
