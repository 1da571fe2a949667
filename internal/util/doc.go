// Package util provides small formatting and list helpers shared across Lookout.
//
// Key components:
//   - FormatDuration: Renders a duration as "1 hour, 2 minutes, 3 seconds".
//   - SplitList: Flattens repeated and comma-separated values.
//
// Usage example:
//
//	until := util.FormatDuration(time.Until(nextRun))
//	refs := util.SplitList(r.URL.Query()["image"])
package util
