package feed

import "fmt"

// TransportError reports a failed feed retrieval.
//
// Exactly one of the fields describing the failure is meaningful for a given
// transport: StatusCode for HTTP, ExitCode or Signaled for the curl
// subprocess, Cause for lower level I/O errors.
type TransportError struct {
	URL        string
	StatusCode int
	ExitCode   int
	Signaled   bool
	Cause      error
}

func (e *TransportError) Error() string {
	switch {
	case e.Signaled:
		return fmt.Sprintf("fetching %s: transport terminated by signal", e.URL)
	case e.ExitCode != 0:
		return fmt.Sprintf("fetching %s: transport exited with code %d", e.URL, e.ExitCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetching %s: unexpected status code %d", e.URL, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Cause)
	default:
		return fmt.Sprintf("fetching %s: transport failed", e.URL)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
