// Package middleware provides state.Middleware implementations for logging,
// metrics, tracing, reducer-style dispatch and the devtools bridge.
//
// Middleware is installed with state.WithMiddleware; the first one listed
// sees a transition first and finishes last:
//
//	store, err := state.New(newBears, state.WithMiddleware(
//		middleware.Logger[bears](nil),
//		middleware.Metrics[bears](collector),
//	))
package middleware

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/furry-store/state"
)

// Logger logs every transition at debug level and every failed transition
// at warn level. A nil logger uses the store's own logger.
func Logger[T any](logger *logrus.Entry) state.Middleware[T] {
	return func(set state.SetFunc[T], get state.GetFunc[T], api *state.Store[T]) state.SetFunc[T] {
		log := api.Logger()
		if logger != nil {
			log = logger.WithField("store", api.Name())
		}
		return func(partial state.Partial[T], replace bool) error {
			prev := get()
			start := time.Now()
			err := set(partial, replace)
			entry := log.WithFields(logrus.Fields{
				"kind":     state.KindOf(partial),
				"replace":  replace,
				"duration": time.Since(start),
			})
			if err != nil {
				entry.WithError(err).Warn("transition failed")
				return err
			}
			entry.WithField("changed", get() != prev).Debug("transition")
			return nil
		}
	}
}
