// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package ctxsync provides synchronization primitives whose waits can be
// abandoned through a context.
package ctxsync

import (
	"context"
	"sync"

	"github.com/grailbio/pubfetch/errors"
)

// Mutex is a mutual exclusion lock whose Lock gives up when its context
// is done. The zero value is ready to use. It must not be copied.
type Mutex struct {
	once sync.Once
	ch   chan struct{}
}

// Lock locks m, waiting while it is held elsewhere. If ctx is done first,
// Lock returns an error of the context's kind and m is not locked.
func (m *Mutex) Lock(ctx context.Context) error {
	m.init()
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.E(ctx.Err(), "ctxsync: lock")
	}
}

// Unlock unlocks m. It panics if m is not locked. As with sync.Mutex,
// any goroutine may unlock m.
func (m *Mutex) Unlock() {
	m.init()
	select {
	case <-m.ch:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}

func (m *Mutex) init() {
	m.once.Do(func() { m.ch = make(chan struct{}, 1) })
}
