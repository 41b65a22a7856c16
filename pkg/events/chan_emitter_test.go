package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanEmitterDeliversEvents(t *testing.T) {
	e := NewChanEmitter(1)
	sub := e.Subscribe()

	e.Emit(context.Background(), Event{Type: EventMessage, Timestamp: time.Now()})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, EventMessage, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestChanEmitterEmitAfterCloseIsNoop(t *testing.T) {
	e := NewChanEmitter(1)
	e.Close()

	// Не должно паниковать и не должно блокироваться
	e.Emit(context.Background(), Event{Type: EventMessage})
}

func TestChanEmitterCloseDuringEmit(t *testing.T) {
	// Без блокировки на время отправки Close между проверкой closed и
	// отправкой в канал паниковал бы send-on-closed-channel
	e := NewChanEmitter(0)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Emit(ctx, Event{Type: EventMessage})
		}()
	}

	// Подписчиков нет: отправители висят в select до отмены контекста
	cancel()
	e.Close()
	wg.Wait()

	require.NotPanics(t, func() {
		e.Emit(context.Background(), Event{Type: EventDone})
	})
}
