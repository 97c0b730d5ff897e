package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientWhitelist(t *testing.T) {
	wl := NewClientWhitelist(FrameRegister, FrameMessage)

	assert.True(t, wl.IsAllowed(FrameRegister))
	assert.True(t, wl.IsAllowed(FrameMessage))
	assert.False(t, wl.IsAllowed(FrameUsers))
	assert.False(t, wl.IsAllowed(""))
	assert.False(t, wl.IsAllowed("shutdown"))
}

func TestClientWhitelistDropsEmptyInitialTypes(t *testing.T) {
	wl := NewClientWhitelist("", FrameRegister)
	assert.True(t, wl.IsAllowed(FrameRegister))
	assert.False(t, wl.IsAllowed(""))
}
