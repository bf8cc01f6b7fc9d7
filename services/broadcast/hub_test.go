package broadcastsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core"
)

func TestHub(t *testing.T) {
	evt := core.Event{Name: "emergency_alert", Payload: map[string]string{"bloodType": "O-"}}

	t.Run("broadcast reaches all subscribers", func(t *testing.T) {
		hub := NewHub()
		ch1, cancel1 := hub.Subscribe("u1")
		ch2, cancel2 := hub.Subscribe("u2")
		defer cancel1()
		defer cancel2()

		hub.Broadcast(evt)
		assert.Equal(t, evt, <-ch1)
		assert.Equal(t, evt, <-ch2)
	})

	t.Run("send targets a single user across all their connections", func(t *testing.T) {
		hub := NewHub()
		ch1, cancel1 := hub.Subscribe("u1")
		ch1b, cancel1b := hub.Subscribe("u1")
		ch2, cancel2 := hub.Subscribe("u2")
		defer cancel1()
		defer cancel1b()
		defer cancel2()

		hub.Send("u1", evt)
		assert.Equal(t, evt, <-ch1)
		assert.Equal(t, evt, <-ch1b)
		assert.Empty(t, ch2)
	})

	t.Run("cancel closes the channel and drops the registration", func(t *testing.T) {
		hub := NewHub()
		ch, cancel := hub.Subscribe("u1")
		cancel()
		cancel() // idempotent

		_, open := <-ch
		assert.False(t, open)
		assert.Empty(t, hub.Online())

		hub.Send("u1", evt) // no registration left, no panic
	})

	t.Run("slow subscriber does not block", func(t *testing.T) {
		hub := NewHub()
		_, cancel := hub.Subscribe("u1")
		defer cancel()

		for i := 0; i < subscriberBuffer+5; i++ {
			hub.Broadcast(evt) // overflow is dropped
		}
	})

	t.Run("online users", func(t *testing.T) {
		hub := NewHub()
		_, cancel1 := hub.Subscribe("u1")
		_, cancel2 := hub.Subscribe("u2")
		defer cancel2()

		assert.ElementsMatch(t, []string{"u1", "u2"}, hub.Online())
		cancel1()
		assert.Equal(t, []string{"u2"}, hub.Online())
	})
}
