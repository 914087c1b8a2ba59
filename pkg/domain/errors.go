package domain

import (
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// DomainError reports a malformed domain or problem. It is always
// returned at construction time, before any encoding is attempted.
type DomainError struct {
	Errs []error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("invalid domain: %s", utilerrors.NewAggregate(e.Errs))
}

func (e *DomainError) Unwrap() []error {
	return e.Errs
}

// IsDomainError reports whether err is or wraps a *DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// collector accumulates validation failures.
type collector struct {
	errs []error
}

func (c *collector) errorf(format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &DomainError{Errs: c.errs}
}
