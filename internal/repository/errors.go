package repository

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAlbumNotFound = errors.New("album not found")
	ErrInvalidInput  = errors.New("invalid input")
)
