package service

import (
	"net/url"
	"strings"
)

// GenerateMailtoURL builds mailto:to?subject=..&body=.. with subject first.
// Spaces are encoded as %20 since mail clients do not decode '+'.
func GenerateMailtoURL(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + mailtoEscape(subject) + "&body=" + mailtoEscape(body)
}

func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
