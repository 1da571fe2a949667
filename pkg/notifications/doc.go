// Package notifications sends a message through shoutrrr when an update check
// finds images with newer registry digests.
//
// Key components:
//   - Notifier: Renders the report with a template and sends it (notifier.go).
//   - Shoutrrr Integration: Router creation and delivery (shoutrrr.go).
//   - Templates: Built-in message templates (common_templates.go).
//
// Usage example:
//
//	notifier, err := notifications.NewNotifier(urls, notifications.GetTemplateData("", ""), "")
//	if err != nil {
//	    return err
//	}
//	notifier.Notify(report)
//
// Send failures are logged and never fail the check.
package notifications
