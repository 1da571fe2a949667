// Package templates provides utility functions for use in notification templates.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nicholas-fedor/lookout/pkg/registry/helpers"
)

// shortDigestLength is the number of hex characters kept by ShortDigest.
const shortDigestLength = 12

// Funcs defines a set of utility functions for use in notification templates.
var Funcs = template.FuncMap{
	"ToUpper":     strings.ToUpper,
	"ToLower":     strings.ToLower,
	"ToJSON":      toJSON,
	"Title":       cases.Title(language.AmericanEnglish).String,
	"ShortDigest": ShortDigest,
}

// ShortDigest returns the first hex characters of a digest, or "none" when empty.
func ShortDigest(value string) string {
	normalized := helpers.NormalizeDigest(value)
	if normalized == "" {
		return "none"
	}

	if len(normalized) > shortDigestLength {
		return normalized[:shortDigestLength]
	}

	return normalized
}

// toJSON marshals a value to a formatted JSON string for use in templates.
// If marshaling fails, it logs a warning and returns an error message as the string.
func toJSON(v any) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"value": fmt.Sprintf("%v", v),
		}).Warn("Failed to marshal JSON in notification template")

		return fmt.Sprintf("failed to marshal JSON in notification template: %v", err)
	}

	return string(bytes)
}
