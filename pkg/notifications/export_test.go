package notifications

// NewNotifierWithRouter exposes router injection to tests.
var NewNotifierWithRouter = newNotifierWithRouter
