package uichanges

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/golly-go/vaultstate/stream"
)

// Reducer folds an event into a topic's previous state. prev is nil before
// the first publish or after Clear.
type Reducer func(prev, event any) (any, error)

// Bus is a topic addressed publish/subscribe hub. Each topic keeps its last
// folded state and replays it to new subscribers.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]*topic
	logger *logrus.Entry
}

type topic struct {
	state   *stream.Subject[any]
	reducer Reducer
}

func NewBus(logger *logrus.Entry) *Bus {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Bus{
		topics: make(map[string]*topic),
		logger: logger.WithField("component", "uichanges"),
	}
}

func (b *Bus) topic(name string) *topic {
	b.mu.RLock()
	t, ok := b.topics[name]
	b.mu.RUnlock()
	if ok {
		return t
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[name]; ok {
		return t
	}
	t = &topic{state: stream.NewSubject[any]()}
	b.topics[name] = t
	return t
}

func (b *Bus) reducer(name string) Reducer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if t, ok := b.topics[name]; ok {
		return t.reducer
	}
	return nil
}

// Configure binds reducer to topic. A topic's reducer is fixed once set.
func (b *Bus) Configure(name string, reducer Reducer) {
	if reducer == nil {
		panic(fmt.Sprintf("uichanges: nil reducer for topic %q", name))
	}

	t := b.topic(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if t.reducer != nil {
		panic(fmt.Sprintf("uichanges: topic %q configured twice", name))
	}
	t.reducer = reducer
}

// Subscribe returns every future state of topic, starting with the current
// one if the topic has state.
func (b *Bus) Subscribe(name string) *stream.Stream[any] {
	return b.topic(name).state.Stream()
}

// Publish folds event into topic's state and broadcasts the result. Without
// a reducer the previous state is rebroadcast unchanged. A reducer error
// leaves the state untouched and nothing is broadcast.
func (b *Bus) Publish(name string, event any) error {
	t := b.topic(name)
	reduce := b.reducer(name)

	if reduce == nil {
		b.logger.WithField("topic", name).Debug("publish to topic without reducer")

		t.state.Update(func(prev any, has bool) (any, bool) {
			return prev, has
		})
		return nil
	}

	var err error
	t.state.Update(func(prev any, _ bool) (any, bool) {
		next, rerr := reduce(prev, event)
		if rerr != nil {
			err = rerr
			return nil, false
		}
		return next, true
	})

	if err != nil {
		return fmt.Errorf("publish to %s: %w", name, err)
	}
	return nil
}

// LastValue returns topic's current state without subscribing.
func (b *Bus) LastValue(name string) (any, bool) {
	return b.topic(name).state.Value()
}

// Clear discards topic's state. The reducer stays bound.
func (b *Bus) Clear(name string) {
	b.topic(name).state.Clear()
}

// Topics lists every topic the bus has seen, sorted.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.topics))
	for name := range b.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
