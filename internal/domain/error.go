package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotOwner         = errors.New("entity belongs to another user")
	ErrTemplateInactive = errors.New("survey template is inactive")
	ErrSystemTemplate   = errors.New("system templates cannot be modified")
	ErrDecryptFailed    = errors.New("stored payload could not be decrypted")

	// ErrInvalidExecContext signals that a repository received a transaction
	// handle of an unsupported concrete type.
	ErrInvalidExecContext = errors.New("invalid executor context")
)
