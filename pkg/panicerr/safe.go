package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps a function that returns an error, catching any panics and
// returning them as an error.
func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

// SafeContext wraps a function that takes a context and returns an error.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn(ctx)
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

// SafeResult runs a function returning a value and an error, converting a
// panic into the returned error. The zero value of T is returned on panic.
func SafeResult[T any](fn func() (T, error)) (T, error) {
	var (
		catcher panics.Catcher
		result  T
		err     error
	)
	catcher.Try(func() {
		result, err = fn()
	})
	if err != nil {
		return result, err
	}
	if recovered := catcher.Recovered(); recovered != nil {
		var zero T
		return zero, recovered.AsError()
	}
	return result, nil
}
