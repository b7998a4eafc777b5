package queue

import "errors"

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// ErrorClassifier allows analyzer errors to declare a classification that is
// recorded alongside the failure message. Known kinds: "source_missing",
// "timeout", "analyzer". Errors without a classification record as
// "analyzer".
type ErrorClassifier interface {
	ErrorKind() string
}

// FailureMessage renders the error message persisted on a failed job,
// prefixed with the error's kind when one is declared.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := classifier.ErrorKind(); kind != "" {
			return kind + ": " + err.Error()
		}
	}
	return err.Error()
}
