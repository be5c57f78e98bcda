package uichanges

import (
	"errors"
	"fmt"

	"github.com/golly-go/vaultstate/stream"
)

var ErrEventType = errors.New("event type not accepted by topic")

// Topic is a typed handle on one bus topic with state S and events E.
type Topic[S, E any] struct {
	bus  *Bus
	name string
}

// Register configures name on bus with fold and returns a typed handle. The
// fold starts from the zero S when the topic has no state.
func Register[S, E any](bus *Bus, name string, fold func(S, E) S) Topic[S, E] {
	bus.Configure(name, func(prev, event any) (any, error) {
		e, ok := event.(E)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrEventType, event)
		}

		s, _ := prev.(S)
		return fold(s, e), nil
	})

	return Topic[S, E]{bus: bus, name: name}
}

func (t Topic[S, E]) Name() string { return t.name }

func (t Topic[S, E]) Publish(e E) error {
	return t.bus.Publish(t.name, e)
}

func (t Topic[S, E]) Subscribe() *stream.Stream[S] {
	return stream.Map(t.bus.Subscribe(t.name), func(v any) S {
		s, _ := v.(S)
		return s
	})
}

func (t Topic[S, E]) Last() (S, bool) {
	v, ok := t.bus.LastValue(t.name)
	if !ok {
		var zero S
		return zero, false
	}

	s, ok := v.(S)
	return s, ok
}

func (t Topic[S, E]) Clear() {
	t.bus.Clear(t.name)
}
