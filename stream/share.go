package stream

import "sync"

// Share multicasts src through one upstream subscription and replays the
// latest value to late subscribers. The first subscriber connects the
// upstream; it is disconnected, and the replay value dropped, when the last
// subscriber leaves or when the upstream errors. The next subscriber then
// connects afresh.
func Share[T any](src *Stream[T]) *Stream[T] {
	sh := &shared[T]{src: src}
	return New(sh.subscribe)
}

type shared[T any] struct {
	src *Stream[T]

	mu   sync.Mutex
	conn *connection[T]
}

type connection[T any] struct {
	subject  *Subject[T]
	upstream *Subscription
	refs     int
	dead     bool
}

func (sh *shared[T]) subscribe(o Observer[T]) func() {
	sh.mu.Lock()
	c := sh.conn
	fresh := c == nil
	if fresh {
		c = &connection[T]{subject: NewSubject[T]()}
		sh.conn = c
	}
	c.refs++
	sh.mu.Unlock()

	detach := c.subject.subscribe(o)

	if fresh {
		up := sh.src.Subscribe(Funcs[T]{
			Next: c.subject.Next,
			Error: func(err error) {
				sh.drop(c)
				c.subject.Error(err)
			},
		})

		sh.mu.Lock()
		if c.dead {
			sh.mu.Unlock()
			up.Unsubscribe()
		} else {
			c.upstream = up
			sh.mu.Unlock()
		}
	}

	return func() {
		detach()
		sh.release(c)
	}
}

// drop retires c so the next subscriber builds a new connection.
func (sh *shared[T]) drop(c *connection[T]) *Subscription {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.conn == c {
		sh.conn = nil
	}
	c.dead = true

	up := c.upstream
	c.upstream = nil
	return up
}

func (sh *shared[T]) release(c *connection[T]) {
	sh.mu.Lock()
	if c.dead {
		sh.mu.Unlock()
		return
	}

	c.refs--
	if c.refs > 0 {
		sh.mu.Unlock()
		return
	}

	if sh.conn == c {
		sh.conn = nil
	}
	c.dead = true
	up := c.upstream
	c.upstream = nil
	sh.mu.Unlock()

	if up != nil {
		up.Unsubscribe()
	}
}
