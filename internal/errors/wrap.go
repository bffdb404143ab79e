package errors

import "errors"

// UserError pairs an internal failure with the text a chat user or API
// client is allowed to see. Error() keeps the internal detail for logs.
type UserError struct {
	Op      string // e.g. "bot.feedback"
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// WithUserMessage wraps err for op. It returns nil when err is nil.
func WithUserMessage(op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &UserError{Op: op, Message: message, Err: err}
}

// UserMessage returns the message of the outermost UserError in err's chain,
// or fallback when there is none. Internal detail never leaks through it.
func UserMessage(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
