package notifications

import (
	"github.com/nicholas-fedor/lookout/pkg/image"
	"github.com/nicholas-fedor/lookout/pkg/session"
)

// StaticData is the part of the notification template data model set upon initialization.
type StaticData struct {
	Title string
	Host  string
}

// Data is the notification template data model.
type Data struct {
	StaticData
	Updates []image.Image
	Summary session.Summary
	Report  *session.Report
}
