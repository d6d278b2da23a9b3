// Package async provides the single-assignment pending<T> primitive the
// Control Connection uses at its public boundary (ConnectAsync/CloseAsync).
// There is no futures/promise library anywhere in the dependency pack this
// module draws on, so this is built directly on channels and sync.Once, the
// same primitives the teacher uses for its own async handoffs (see
// internal/events.Bus).
package async

import "sync"

// Future is a single-assignment result. Resolve and Reject may be called
// any number of times, but only the first call takes effect; Wait blocks
// until that happens.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// NewFuture returns an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future that is already complete with value.
func Resolved[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(value)
	return f
}

// Failed returns a Future that is already complete with err.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Resolve completes the Future successfully. Only the first call (whether
// Resolve or Reject) has any effect.
func (f *Future[T]) Resolve(value T) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

// Reject completes the Future with an error. Only the first call (whether
// Resolve or Reject) has any effect.
func (f *Future[T]) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the Future is resolved or rejected.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future completes and returns its value or error.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Map runs fn against a resolved value and returns a new Future carrying
// fn's result; an error on f (or from fn) propagates instead of running fn.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := NewFuture[U]()
	go func() {
		v, err := f.Wait()
		if err != nil {
			out.Reject(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(u)
	}()
	return out
}

// FlatMap is Map for functions that themselves return a Future, flattening
// the result instead of nesting it.
func FlatMap[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	out := NewFuture[U]()
	go func() {
		v, err := f.Wait()
		if err != nil {
			out.Reject(err)
			return
		}
		inner := fn(v)
		u, err := inner.Wait()
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(u)
	}()
	return out
}
