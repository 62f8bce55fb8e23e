package middleware

import "github.com/aretw0/signaltree/pkg/ports"

// Middleware allows wrapping a ReplayStore to add behavior.
type Middleware func(ports.ReplayStore) ports.ReplayStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.ReplayStore, mws ...Middleware) ports.ReplayStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
