package shop

import "fmt"

// BackendError reports a non-success response from the commerce API. The
// dialog machine treats it as fatal for the current event: the conversation
// state stays put and the next event retries the same handler.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("shop: backend status %d: %s", e.Status, e.Body)
}

// Code returns a stable identifier for log classification.
func (e *BackendError) Code() string { return "BACKEND_ERROR" }
