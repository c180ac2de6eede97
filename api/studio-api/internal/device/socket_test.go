package internal_device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-device"),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// newSocketFixture spins up a websocket endpoint that attaches every upgrade
// to the device, then dials it as the publisher.
func newSocketFixture(t *testing.T, device *SocketDevice) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		if err := device.Attach(conn); err != nil {
			t.Errorf("attach failed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func recvFragment(t *testing.T, stream internal_type.LiveStream) internal_type.Fragment {
	t.Helper()
	select {
	case f, ok := <-stream.Fragments():
		if !ok {
			t.Fatal("fragment channel closed unexpectedly")
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fragment")
	}
	return internal_type.Fragment{}
}

func TestAcquireTimesOutWithoutPublisher(t *testing.T) {
	device := NewSocketDevice(newTestLogger(t), "video/webm")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	stream, err := device.Acquire(ctx, internal_type.Constraints{Audio: true, Video: true})
	assert.Nil(t, stream)
	assert.ErrorIs(t, err, internal_type.ErrDeviceUnavailable)
}

func TestFragmentsFlowAfterResume(t *testing.T) {
	device := NewSocketDevice(newTestLogger(t), "video/webm")
	client := newSocketFixture(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := device.Acquire(ctx, internal_type.Constraints{Audio: true, Video: true})
	require.NoError(t, err)
	assert.Equal(t, "video/webm", stream.MimeType())

	stream.Resume()
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))

	f := recvFragment(t, stream)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.Data)
}

func TestPausedFragmentsAreDropped(t *testing.T) {
	device := NewSocketDevice(newTestLogger(t), "video/webm")
	client := newSocketFixture(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := device.Acquire(ctx, internal_type.Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	// The stream starts paused: the first frame never reaches the channel.
	// Control and data frames share one ordered connection, so by the time
	// the post-resume frame arrives the dropped one has been processed.
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{0xAA}))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(controlResume)))
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{0xBB}))

	f := recvFragment(t, stream)
	assert.Equal(t, []byte{0xBB}, f.Data)
}

func TestChannelClosesWhenPublisherHangsUp(t *testing.T) {
	device := NewSocketDevice(newTestLogger(t), "video/webm")
	client := newSocketFixture(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := device.Acquire(ctx, internal_type.Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	require.NoError(t, client.Close())

	select {
	case _, ok := <-stream.Fragments():
		assert.False(t, ok, "expected closed fragment channel")
	case <-time.After(2 * time.Second):
		t.Fatal("fragment channel never closed after hangup")
	}
}

func TestBackloggedFragmentsAreNotDropped(t *testing.T) {
	device := NewSocketDevice(newTestLogger(t), "video/webm")
	client := newSocketFixture(t, device)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := device.Acquire(ctx, internal_type.Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	stream.Resume()

	// More frames than the channel buffers, written before anything reads.
	// Back-pressure must stall the read loop, never discard capture data.
	const frames = 70
	go func() {
		for i := 0; i < frames; i++ {
			if err := client.WriteMessage(websocket.BinaryMessage, []byte{byte(i)}); err != nil {
				t.Errorf("write frame %d: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < frames; i++ {
		f := recvFragment(t, stream)
		assert.Equal(t, []byte{byte(i)}, f.Data)
		assert.Equal(t, i+1, f.Seq)
	}
}

func TestSecondAttachRejected(t *testing.T) {
	device := NewSocketDevice(newTestLogger(t), "video/webm")
	newSocketFixture(t, device)

	// Acquire completing proves the first attach has landed.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := device.Acquire(ctx, internal_type.Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	err = device.Attach(&websocket.Conn{})
	assert.Error(t, err)
}
