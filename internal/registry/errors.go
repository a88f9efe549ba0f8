package registry

import "errors"

// Registry errors
var (
	ErrAlreadyExists = errors.New("scanner already exists for account")
	ErrNotFound      = errors.New("scanner not found for account")
	ErrUnauthorized  = errors.New("caller is not the account owner")
)
