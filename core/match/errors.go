package match

import "fmt"

// InvalidRequestError reports fundamentally malformed filter input, such as a
// request without coordinates. It is surfaced to the caller and not retried.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}
