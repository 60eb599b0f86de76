package chat

import (
	"errors"
	"fmt"
)

// ErrValidation marks input rejected before any storage or model call.
var ErrValidation = errors.New("chat: invalid input")

// StorageError reports a failed message store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("chat: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CompletionError reports a failed model call.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("chat: completion: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
