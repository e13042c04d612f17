package middleware

import (
	"errors"

	"github.com/odvcencio/furry-store/devtools"
	"github.com/odvcencio/furry-store/state"
)

// Devtools connects the store to hub and publishes its state after every
// transition that changed it. Destroying the store disconnects it.
func Devtools[T any](hub *devtools.Hub) state.Middleware[T] {
	return func(set state.SetFunc[T], get state.GetFunc[T], api *state.Store[T]) state.SetFunc[T] {
		inst := hub.Connect(api.Name(), func() any { return get() })
		api.OnDestroy(func() {
			if err := inst.Close(); err != nil {
				api.Logger().WithError(err).Warn("devtools disconnect failed")
			}
		})
		return func(partial state.Partial[T], replace bool) error {
			prev := get()
			if err := set(partial, replace); err != nil {
				return err
			}
			if get() == prev {
				return nil
			}
			if err := inst.Send(state.KindOf(partial), replace); err != nil && !errors.Is(err, devtools.ErrClosed) {
				api.Logger().WithError(err).Warn("devtools publish failed")
			}
			return nil
		}
	}
}
