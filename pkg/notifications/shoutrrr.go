package notifications

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"text/template"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/lookout/pkg/notifications/templates"
)

// LocalLog is a logrus logger tagged so entries are never forwarded as notifications.
var LocalLog = logrus.WithField("notify", "no")

// router defines the interface for sending Shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// newRouter creates a shoutrrr sender logging to logrus at trace level.
func newRouter(urls []string) (router, error) {
	logger := log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)

	sender, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidNotificationURL, err)
	}

	return sender, nil
}

// send delivers one message to every service, logging per-service failures.
func send(r router, urls []string, message string, params *shoutrrrTypes.Params) int {
	failures := 0

	for i, err := range r.Send(message, params) {
		if err == nil {
			continue
		}

		failures++

		scheme := "unknown"
		if i < len(urls) {
			scheme = GetScheme(urls[i])
		}

		LocalLog.WithFields(logrus.Fields{
			"service": scheme,
			"index":   i,
		}).WithError(err).Error("Failed to send shoutrrr notification")
	}

	return failures
}

// getShoutrrrTemplate retrieves or generates a template for Shoutrrr notifications.
// It resolves built-in template names and falls back to the default template.
func getShoutrrrTemplate(tplString string) (*template.Template, error) {
	tplBase := template.New("").Funcs(templates.Funcs)

	if builtin, found := commonTemplates[tplString]; found {
		logrus.WithField("template", tplString).Debug("Using common template")
		tplString = builtin
	}

	if tplString == "" {
		return template.Must(tplBase.Parse(commonTemplates["default"])), nil
	}

	tpl, err := tplBase.Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template string: %w", err)
	}

	return tpl, nil
}

// render executes the template against the data model.
func render(tpl *template.Template, data Data) (string, error) {
	var body bytes.Buffer

	if err := tpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return body.String(), nil
}
