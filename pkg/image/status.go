package image

// Status is the update verdict for one image.
type Status string

// Verdicts, ordered from least to most actionable when rendered.
const (
	// StatusUnresolved means no digest check has run yet.
	StatusUnresolved Status = "unresolved"
	// StatusUpToDate means the remote digest equals the local one.
	StatusUpToDate Status = "up_to_date"
	// StatusUpdateAvailable means the remote digest differs from the local one.
	StatusUpdateAvailable Status = "update_available"
	// StatusUnknown means a remote digest was found but nothing local to compare it to.
	StatusUnknown Status = "unknown"
	// StatusFailed means the remote digest could not be resolved.
	StatusFailed Status = "failed"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
