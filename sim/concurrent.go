package sim

import (
	"errors"
	"strings"
)

// A Concurrent aggregates the failures of one or more tasks that failed
// while running under the same scope. Teardown signals (cancellation,
// scope-close) never appear among the children.
//
// Nested Concurrent values are kept as-is. Call Flattened to collapse them
// on demand.
type Concurrent struct {
	Children []error
}

// NewConcurrent builds a Concurrent from the given child failures,
// preserving order and dropping duplicate error values.
func NewConcurrent(children ...error) *Concurrent {
	c := &Concurrent{}
	for _, child := range children {
		if child == nil {
			continue
		}

		seen := false
		for _, existing := range c.Children {
			if existing == child {
				seen = true
				break
			}
		}

		if !seen {
			c.Children = append(c.Children, child)
		}
	}
	return c
}

func (c *Concurrent) Error() string {
	msgs := make([]string, 0, len(c.Children))
	for _, child := range c.Children {
		msgs = append(msgs, child.Error())
	}
	return "concurrent task failures: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the children to errors.Is and errors.As.
func (c *Concurrent) Unwrap() []error {
	return c.Children
}

// Flattened returns a Concurrent in which nested Concurrent layers are
// replaced by their children, depth first.
func (c *Concurrent) Flattened() *Concurrent {
	flat := &Concurrent{}
	for _, child := range c.Children {
		if nested, ok := child.(*Concurrent); ok {
			flat.Children = append(
				flat.Children, nested.Flattened().Children...)
			continue
		}
		flat.Children = append(flat.Children, child)
	}
	return flat
}

// An ErrorClass decides whether an error belongs to a class of errors.
// Classes stand in for the exception types of a type-level selector.
type ErrorClass func(error) bool

// ClassOf builds an ErrorClass that matches errors assignable to E,
// following wrapped errors the way errors.As does.
func ClassOf[E error]() ErrorClass {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// ClassIs builds an ErrorClass that matches a sentinel error value.
func ClassIs(sentinel error) ErrorClass {
	return func(err error) bool {
		return errors.Is(err, sentinel)
	}
}

// Matches reports whether the aggregate satisfies a class selector. Every
// class must be matched by at least one child. With exact set, every child
// must additionally belong to at least one of the classes; without it,
// extra child failures are permitted.
//
// Matches with no classes and exact unset accepts any aggregate.
func (c *Concurrent) Matches(exact bool, classes ...ErrorClass) bool {
	for _, class := range classes {
		matched := false
		for _, child := range c.Children {
			if class(child) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if !exact {
		return true
	}

	for _, child := range c.Children {
		covered := false
		for _, class := range classes {
			if class(child) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}

	return true
}

// ConcurrentMatches applies Concurrent.Matches to an arbitrary error. It
// reports false when err is not a Concurrent aggregate.
func ConcurrentMatches(err error, exact bool, classes ...ErrorClass) bool {
	aggregate, ok := err.(*Concurrent)
	if !ok {
		return false
	}
	return aggregate.Matches(exact, classes...)
}
