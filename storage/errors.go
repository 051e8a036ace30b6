package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
	ErrInvalidRef  = errors.New("storage: invalid ref name")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// CheckRefName accepts lowercase names made of [a-z0-9._-], at most 64 bytes,
// not starting with a dot.
func CheckRefName(name string) error {
	if name == "" || len(name) > 64 || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidRef, name)
		}
	}
	return nil
}
