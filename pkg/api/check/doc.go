// Package check serves cached and on-demand update check results.
//
// Only one check runs at a time. A full refresh arriving while another check
// is running is answered with 429 and Retry-After; a refresh naming specific
// images waits for the running check to finish.
package check
