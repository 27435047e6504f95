package callback

import "fmt"

// ConfigurationError reports a callback setup that can never succeed
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// CallbackError represents a failure to deliver a status callback
type CallbackError struct {
	Operation string
	URL       string
	Err       error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %s failed for %s: %v", e.Operation, e.URL, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// redactedError keeps the wrapped error reachable while its message has the
// credentials masked
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}
