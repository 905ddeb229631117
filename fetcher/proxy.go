// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fetcher

import (
	"context"
)

// ProxyFunc resolves a link to a resource.
type ProxyFunc func(link Link, params Parameters) Resource

type proxy struct{ fn ProxyFunc }

// Proxy returns a Fetcher that delegates Resolve to fn. It holds no
// handles: Close is a no-op and Links returns nil.
func Proxy(fn ProxyFunc) Fetcher { return proxy{fn} }

func (p proxy) Links(context.Context) ([]Link, error)         { return nil, nil }
func (p proxy) Resolve(link Link, params Parameters) Resource { return p.fn(link, params) }
func (p proxy) Close(context.Context) error                   { return nil }
