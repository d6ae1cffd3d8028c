package certificate

import "fmt"

// RemoteError indicates that the upload or the remote document store
// failed. No certificate id is recorded locally when it is returned.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("certificate %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
