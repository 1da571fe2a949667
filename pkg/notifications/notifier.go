package notifications

import (
	"errors"
	"os"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/lookout/pkg/session"
)

var errInvalidNotificationURL = errors.New("invalid notification URL")

// Notifier sends update summaries to the configured services.
type Notifier struct {
	urls   []string
	router router
	tpl    *template.Template
	params *shoutrrrTypes.Params
	data   StaticData
}

// NewNotifier creates a notifier for the given shoutrrr URLs.
//
// Parameters:
//   - urls: Shoutrrr service URLs; none yields a nil notifier.
//   - data: Static template data such as the title.
//   - tplString: Built-in template name or template text; empty uses the default.
//
// Returns:
//   - *Notifier: Configured notifier, nil without URLs.
//   - error: Non-nil if a URL or the template is invalid.
func NewNotifier(urls []string, data StaticData, tplString string) (*Notifier, error) {
	if len(urls) == 0 {
		return nil, nil //nolint:nilnil
	}

	r, err := newRouter(urls)
	if err != nil {
		return nil, err
	}

	return newNotifierWithRouter(r, urls, data, tplString)
}

func newNotifierWithRouter(r router, urls []string, data StaticData, tplString string) (*Notifier, error) {
	tpl, err := getShoutrrrTemplate(tplString)
	if err != nil {
		return nil, err
	}

	params := &shoutrrrTypes.Params{}
	if data.Title != "" {
		params.SetTitle(data.Title)
	}

	logrus.WithFields(logrus.Fields{
		"services": len(urls),
		"title":    data.Title,
	}).Debug("Created notifier")

	return &Notifier{
		urls:   urls,
		router: r,
		tpl:    tpl,
		params: params,
		data:   data,
	}, nil
}

// GetNames returns the service names derived from the URL schemes.
func (n *Notifier) GetNames() []string {
	if n == nil {
		return nil
	}

	names := make([]string, len(n.urls))
	for i, u := range n.urls {
		names[i] = GetScheme(u)
	}

	return names
}

// Notify sends one message if the report contains updates.
//
// Parameters:
//   - report: Finished check report.
//
// Returns:
//   - bool: True if a message was handed to every service without error.
func (n *Notifier) Notify(report *session.Report) bool {
	if n == nil || !report.HasUpdates() {
		return false
	}

	message, err := render(n.tpl, Data{
		StaticData: n.data,
		Updates:    report.Updates(),
		Summary:    report.Summary(),
		Report:     report,
	})
	if err != nil {
		LocalLog.WithError(err).Error("Notification template error")

		return false
	}

	if strings.TrimSpace(message) == "" {
		LocalLog.Info("Skipping notification due to empty message")

		return false
	}

	return send(n.router, n.urls, message, n.params) == 0
}

// GetTitle formats the title based on the passed hostname and tag.
func GetTitle(hostname string, tag string) string {
	titleBuilder := strings.Builder{}
	if tag != "" {
		titleBuilder.WriteRune('[')
		titleBuilder.WriteString(tag)
		titleBuilder.WriteRune(']')
		titleBuilder.WriteRune(' ')
	}

	titleBuilder.WriteString("Lookout updates")

	if hostname != "" {
		titleBuilder.WriteString(" on ")
		titleBuilder.WriteString(hostname)
	}

	return titleBuilder.String()
}

// GetTemplateData populates the static notification data, using the system
// hostname when none is given.
func GetTemplateData(hostname, tag string) StaticData {
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	return StaticData{
		Host:  hostname,
		Title: GetTitle(hostname, tag),
	}
}
