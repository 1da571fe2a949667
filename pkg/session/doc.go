// Package session groups the results of one update check into a Report.
//
// A Report keeps the images in the order the orchestrator produced them and
// offers views by verdict for rendering, metrics and notifications.
package session
