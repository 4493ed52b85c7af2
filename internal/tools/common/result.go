package common

import "errors"

// SoftFailure is implemented by payloads that report a failed operation
// to the caller without marking the tool call itself as failed.
type SoftFailure interface {
	SoftError() string
}

// Failure is the {success:false, error} payload returned by write tools
// and the admin tools when the downstream system rejects a request.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SoftError implements SoftFailure.
func (f Failure) SoftError() string { return f.Error }

// Fail builds a Failure from err.
func Fail(err error) Failure {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Failure{Error: err.Error()}
}
