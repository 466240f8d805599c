package network

import (
	"testing"

	"github.com/automoto/carball-mp/shared/messages"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestClient_SendBeforeConnect(t *testing.T) {
	c := NewClient(zerolog.Nop())
	assert.ErrorIs(t, c.SendMessage(messages.DequeueCommand{}), ErrNotConnected)
	assert.ErrorIs(t, c.Key("throttle", true), ErrNotConnected)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, "disconnected", c.State().String())
}

func TestPush_DropsOldestWhenFull(t *testing.T) {
	ch := make(chan int, 2)
	push(ch, 1)
	push(ch, 2)
	push(ch, 3)

	assert.Equal(t, []int{2, 3}, drainChan(ch))
	assert.Empty(t, drainChan(ch))
}
