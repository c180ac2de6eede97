// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
)

// Client-side control frames understood on the media socket. Everything else
// textual is ignored; binary frames are capture fragments.
const (
	controlPause  = "pause"
	controlResume = "resume"
)

// SocketDevice bridges a publisher's media websocket into the capture
// pipeline. The publisher dials the media endpoint and pushes binary capture
// fragments; Acquire blocks until that attachment happens, so session setup
// and publisher connect can race safely in either order.
type SocketDevice struct {
	logger commons.Logger
	mime   string

	mu       sync.Mutex
	attached bool
	streams  chan *socketStream
}

func NewSocketDevice(logger commons.Logger, mimeType string) *SocketDevice {
	return &SocketDevice{
		logger:  logger,
		mime:    mimeType,
		streams: make(chan *socketStream, 1),
	}
}

// Attach hands an upgraded websocket connection to the device. A media socket
// carries exactly one capture session; a second attachment is rejected.
func (d *SocketDevice) Attach(conn *websocket.Conn) error {
	d.mu.Lock()
	if d.attached {
		d.mu.Unlock()
		return fmt.Errorf("media socket already attached")
	}
	d.attached = true
	d.mu.Unlock()

	stream := newSocketStream(d.logger, conn, d.mime)
	d.streams <- stream
	d.logger.Debug("media socket attached")
	return nil
}

// Acquire blocks until a publisher attaches or the context expires. Expiry
// maps to device unavailability: nothing showed up to capture from.
func (d *SocketDevice) Acquire(ctx context.Context, constraints internal_type.Constraints) (internal_type.LiveStream, error) {
	select {
	case stream := <-d.streams:
		stream.start()
		return stream, nil
	case <-ctx.Done():
		return nil, internal_type.ErrDeviceUnavailable
	}
}

// socketStream adapts one media websocket to the LiveStream contract. It
// starts paused: fragments received before the recorder resumes it are
// dropped, not buffered.
type socketStream struct {
	logger commons.Logger
	conn   *websocket.Conn
	mime   string
	frags  chan internal_type.Fragment

	mu     sync.Mutex
	paused bool
	seq    int

	closeOnce sync.Once
}

func newSocketStream(logger commons.Logger, conn *websocket.Conn, mimeType string) *socketStream {
	return &socketStream{
		logger: logger,
		conn:   conn,
		mime:   mimeType,
		frags:  make(chan internal_type.Fragment, 64),
		paused: true,
	}
}

func (s *socketStream) start() {
	go s.readLoop()
}

func (s *socketStream) Fragments() <-chan internal_type.Fragment {
	return s.frags
}

func (s *socketStream) MimeType() string {
	return s.mime
}

func (s *socketStream) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *socketStream) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Stop asks the publisher to wrap up and tears the socket down. End of
// session is still signalled by the fragment channel closing, which happens
// when the read loop observes the connection going away.
func (s *socketStream) Stop() {
	deadline := time.Now().Add(time.Second)
	if err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session stopped"), deadline); err != nil {
		s.logger.Debugf("media socket close frame: %v", err)
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debugf("media socket close: %v", err)
	}
}

// readLoop pumps websocket frames until the connection ends, then closes the
// fragment channel. That closure is the device's end-of-session signal, so it
// must fire on every exit path and only after the last readable frame has
// been handled.
func (s *socketStream) readLoop() {
	defer s.closeOnce.Do(func() { close(s.frags) })

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debugw("media socket read ended", "error", err)
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			s.push(data)
		case websocket.TextMessage:
			s.control(string(data))
		}
	}
}

func (s *socketStream) push(data []byte) {
	s.mu.Lock()
	if s.paused || len(data) == 0 {
		s.mu.Unlock()
		return
	}
	s.seq++
	f := internal_type.Fragment{Seq: s.seq, Data: data, ReceivedAt: time.Now()}
	s.mu.Unlock()

	// Capture data is never dropped. A full channel blocks the read loop,
	// which pushes back on the publisher instead of losing fragments. The
	// read loop is the only sender and closes the channel only after it
	// returns, so this send cannot race the close.
	s.frags <- f
}

func (s *socketStream) control(message string) {
	switch message {
	case controlPause:
		s.Pause()
	case controlResume:
		s.Resume()
	default:
		s.logger.Debugw("ignoring unknown media control", "message", message)
	}
}
