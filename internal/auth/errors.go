package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// secrets; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken indicates the session credential failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)
