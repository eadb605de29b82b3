package model

import "time"

// Result is the envelope every public operation returns: a success flag, a
// human-readable message, and the originating error category on failure.
type Result struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK builds a success Result.
func OK(data any, message string) Result {
	return Result{Success: true, Data: data, Message: message, Timestamp: time.Now().UTC()}
}

// Fail builds a failure Result with the error text and category.
func Fail(err error, category string) Result {
	r := Result{Success: false, Category: category, Timestamp: time.Now().UTC()}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
