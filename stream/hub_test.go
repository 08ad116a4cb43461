package stream

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHub_FanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	first, unsubscribeFirst := hub.Subscribe()
	second, unsubscribeSecond := hub.Subscribe()
	defer unsubscribeSecond()
	assert.Equal(t, 2, hub.Subscribers())

	line := "Test Case '-[DemoTests testExample]' passed\n"
	n, err := io.WriteString(hub, line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	assert.Equal(t, line, string(<-first))
	assert.Equal(t, line, string(<-second))

	unsubscribeFirst()
	unsubscribeFirst()
	_, ok := <-first
	assert.False(t, ok)
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHub_WriteDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	sub, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*2; i++ {
		fmt.Fprintf(hub, "line %d\n", i)
	}
	assert.Len(t, sub, subscriberBuffer)
}

func TestHub_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	sub, unsubscribe := hub.Subscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range sub {
		}
	}()

	hub.Close()
	wg.Wait()
	unsubscribe()

	late, _ := hub.Subscribe()
	_, ok := <-late
	assert.False(t, ok)
}

func TestHub_CopiesChunks(t *testing.T) {
	hub := NewHub()
	sub, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	buf := []byte("abc")
	hub.Write(buf)
	buf[0] = 'x'
	assert.Equal(t, "abc", string(<-sub))
}
