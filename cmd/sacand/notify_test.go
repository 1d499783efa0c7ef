package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeNotification(t *testing.T) {
	n := volumeNotification("Volume", 84.37)
	assert.Equal(t, Notification{Summary: "Volume", Body: "84.37%", Percent: 84.37}, n)

	assert.Equal(t, "100%", volumeNotification("Volume", 100).Body)
	assert.Equal(t, "0%", volumeNotification("Volume", 0).Body)
}

func TestNotificationError_Unwrap(t *testing.T) {
	base := errors.New("no reply")
	err := error(&NotificationError{Op: "update", Err: base})
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "notification update: no reply", err.Error())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &logNotifier{logger: newLogger(&buf, false, LogLevelInfo, LogFormatText)}
	ctx := context.Background()

	h, err := n.Show(ctx, volumeNotification("Volume", 79.37))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h.ID)

	h2, err := n.Update(ctx, h, volumeNotification("Volume", 84.37))
	require.NoError(t, err)
	assert.Equal(t, h, h2)

	out := buf.String()
	assert.Contains(t, out, "body=79.37%")
	assert.Contains(t, out, "body=84.37%")
	assert.Contains(t, out, "id=1")
}
