package storage

import "errors"

// Error kinds reported by task stores. Match them with errors.Is.
var (
	ErrNoStorageLocation     = errors.New("no storage location available")
	ErrReadFailure           = errors.New("read failure")
	ErrMalformedDocument     = errors.New("malformed document")
	ErrPersistentReadFailure = errors.New("persistent read failure")
	ErrWriteFailure          = errors.New("write failure")
)

// StorageError carries the kind of failure, the file involved and the
// underlying cause.
type StorageError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *StorageError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Kind: kind, Err: err}
}
