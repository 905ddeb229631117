// Package loadingcache memoizes slow, fallible computations such as a
// filesystem stat or a content sniff.
package loadingcache

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

type (
	// Value manages the loading (calculation) and storing of a single cached value. It's
	// designed for use cases where loading is slow and may fail. Concurrency is well-supported:
	//  1. Only one load is in progress at a time, even if concurrent callers request the value.
	//  2. Cancellation is respected for loading: a caller's load function is invoked with their
	//     context. If it respects cancellation and returns an error immediately, the caller's
	//     GetOrLoad does, too.
	//  3. Cancellation is respected for waiting: if a caller's context is canceled while they're
	//     waiting for another in-progress load (not their own), the caller's GetOrLoad returns
	//     immediately with the cancellation error.
	//  4. Once a load succeeds its result is published atomically and never replaced: later
	//     callers read it without waiting on the load semaphore.
	//
	// Value does not cache errors: a failed load leaves the Value empty, and the next caller
	// loads again. To cache a definitive negative outcome, make it part of T (for example
	// a struct with an ok flag) and return a nil error.
	//
	// Value[T]{} is ready to use. (*Value[T])(nil) is valid and just never caches or shares
	// a result (every get loads). Value must not be copied.
	Value[T any] struct {
		// init supports at-most-once initialization of c.
		init sync.Once
		// c is a semaphore (limit 1) guarding loads.
		c chan struct{}
		// done holds the loaded value once a load has succeeded.
		done atomic.Pointer[T]
	}
	// LoadFunc computes a value. It should respect cancellation (return with cancellation error).
	LoadFunc[T any] func(context.Context) (T, error)
)

// GetOrLoad either returns the cached value or runs load and caches its result if load
// succeeds. Example:
//
//	isDir, err := f.isDir.GetOrLoad(ctx, func(ctx context.Context) (bool, error) {
//		return stat(ctx, f.path)
//	})
func (v *Value[T]) GetOrLoad(ctx context.Context, load LoadFunc[T]) (T, error) {
	if v == nil {
		return runNoPanic(ctx, load)
	}
	if p := v.done.Load(); p != nil {
		return *p, nil
	}
	v.init.Do(func() {
		v.c = make(chan struct{}, 1)
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case v.c <- struct{}{}:
	}
	defer func() { <-v.c }()

	// Another caller may have finished loading while we waited.
	if p := v.done.Load(); p != nil {
		return *p, nil
	}
	val, err := runNoPanic(ctx, load)
	if err != nil {
		return val, err
	}
	v.done.Store(&val)
	return val, nil
}

// Get returns the cached value, if a load has succeeded. It never blocks.
func (v *Value[T]) Get() (T, bool) {
	if v != nil {
		if p := v.done.Load(); p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}

func runNoPanic[T any](ctx context.Context, load LoadFunc[T]) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache: recovered panic: %v, stack:\n%v", r, string(debug.Stack()))
		}
	}()
	return load(ctx)
}
