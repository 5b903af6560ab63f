package storage

import "errors"

var (
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrNotFound             = errors.New("not found")
	ErrReferenceNotFound    = errors.New("referenced entity not found")
)
