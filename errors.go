package pushstore

import (
	"errors"
)

// ErrStorageUnavailable is the failure kind of every error returned by the backing engine.
// Use errors.Is(err, ErrStorageUnavailable) to tell storage failures apart from domain errors.
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageError wraps the error of the backend storage.
type StorageError struct {
	// Op is the store operation that failed, e.g. "queue.enqueue".
	Op string
	// Err is the error returned by the backend storage.
	Err error
}

func (s *StorageError) Error() string {
	return s.Op + ": " + ErrStorageUnavailable.Error() + ": " + s.Err.Error()
}

func (s *StorageError) Unwrap() error {
	return s.Err
}

func (s *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// WrapStorage wraps err into a *StorageError. It returns nil if err is nil.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
