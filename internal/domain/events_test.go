package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInProcessPublisher_DeliversInOrder(t *testing.T) {
	p := NewInProcessPublisher()
	var mu sync.Mutex
	var received []EventType

	unsub := p.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.Type)
	})
	defer unsub()

	p.Publish(
		Event{Type: EventRequestCreated, At: time.Now()},
		Event{Type: EventRequestStatusChanged, At: time.Now()},
	)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventRequestCreated, EventRequestStatusChanged}, received)
}

func TestInProcessPublisher_Unsubscribe(t *testing.T) {
	p := NewInProcessPublisher()
	count := 0
	unsub := p.Subscribe(func(e Event) { count++ })

	p.Publish(Event{Type: EventRequestCreated})
	unsub()
	p.Publish(Event{Type: EventRequestCreated})

	assert.Equal(t, 1, count)
}

func TestLockSet_SerializesPerKey(t *testing.T) {
	ls := NewLockSet()
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ls.WithLock("same-request", func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}(i)
	}
	wg.Wait()
	assert.Len(t, order, 10)
}

func TestLockSet_DifferentKeysDoNotBlock(t *testing.T) {
	ls := NewLockSet()
	ls.Lock("a")
	defer ls.Unlock("a")

	done := make(chan struct{})
	go func() {
		ls.WithLock("b", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
}
