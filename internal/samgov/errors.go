package samgov

import "fmt"

// FetchError is a transport or HTTP failure from the SAM.gov API.
// Status is 0 when the request never produced a response. The orchestrator
// uses Category to isolate the affected classification code and Temporary
// to decide whether a retry is worthwhile.
type FetchError struct {
	Category string
	Status   int
	Body     string
	Err      error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("fetch naics %s: status %d: %v", e.Category, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch naics %s: %v", e.Category, e.Err)
	default:
		return fmt.Sprintf("fetch naics %s: sam.gov returned %d: %s", e.Category, e.Status, e.Body)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether the failure is worth retrying: transport
// errors, throttling and server-side errors. 4xx responses and malformed
// 200 payloads are not.
func (e *FetchError) Temporary() bool {
	if e.Status == 0 && e.Err != nil {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}
