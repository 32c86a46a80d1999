package connect

import "errors"

var (
	// ErrNotFound is returned by Store lookups that miss.
	ErrNotFound = errors.New("connect: record not found")
	// ErrDuplicate is returned by Store writes that violate a uniqueness constraint.
	ErrDuplicate = errors.New("connect: record already exists")
	// ErrNoSession is returned by session resolvers when the request is anonymous.
	ErrNoSession = errors.New("connect: no active session")
)
