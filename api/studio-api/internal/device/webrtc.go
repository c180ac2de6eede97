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

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
	"github.com/rapidaai/pkg/commons"
)

// WebRTCDevice bridges a publisher's WebRTC peer connection into the capture
// pipeline. The publisher posts an SDP offer; incoming audio and video tracks
// become the capture fragments of the session. Acquire completes once the
// peer connection reaches connected state.
type WebRTCDevice struct {
	logger commons.Logger
	mime   string

	mu      sync.Mutex
	offered bool
	streams chan *webrtcStream
}

func NewWebRTCDevice(logger commons.Logger, mimeType string) *WebRTCDevice {
	return &WebRTCDevice{
		logger:  logger,
		mime:    mimeType,
		streams: make(chan *webrtcStream, 1),
	}
}

// HandleOffer negotiates the publisher's SDP offer and returns the local
// answer once ICE gathering has completed. One offer per device; a renegotiation
// attempt is rejected rather than silently replacing the live session.
func (d *WebRTCDevice) HandleOffer(offerSDP string) (string, error) {
	d.mu.Lock()
	if d.offered {
		d.mu.Unlock()
		return "", fmt.Errorf("webrtc session already negotiated")
	}
	d.offered = true
	d.mu.Unlock()

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return "", fmt.Errorf("failed to register codecs: %w", err)
	}
	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return "", fmt.Errorf("failed to register interceptors: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(registry))

	peer, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return "", fmt.Errorf("failed to create peer connection: %w", err)
	}

	stream := newWebRTCStream(d.logger, d.mime, peer)

	peer.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		d.logger.Infow("remote track started", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		go stream.readTrack(track)
	})
	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		d.logger.Debugw("peer connection state changed", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateConnected:
			stream.markConnected()
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			stream.end()
		}
	})

	if err := peer.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}); err != nil {
		peer.Close()
		return "", fmt.Errorf("failed to apply remote offer: %w", err)
	}

	answer, err := peer.CreateAnswer(nil)
	if err != nil {
		peer.Close()
		return "", fmt.Errorf("failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(peer)
	if err := peer.SetLocalDescription(answer); err != nil {
		peer.Close()
		return "", fmt.Errorf("failed to apply local answer: %w", err)
	}
	// Non-trickle signalling: wait for a complete candidate set so the
	// answer is usable as-is.
	<-gatherComplete

	d.streams <- stream
	return peer.LocalDescription().SDP, nil
}

// Acquire blocks until the negotiated peer connection is live or the context
// expires. Expiry maps to device unavailability.
func (d *WebRTCDevice) Acquire(ctx context.Context, constraints internal_type.Constraints) (internal_type.LiveStream, error) {
	select {
	case stream := <-d.streams:
		select {
		case <-stream.connected:
			return stream, nil
		case <-ctx.Done():
			stream.Stop()
			return nil, internal_type.ErrDeviceUnavailable
		}
	case <-ctx.Done():
		return nil, internal_type.ErrDeviceUnavailable
	}
}

// webrtcStream adapts RTP tracks of one peer connection to the LiveStream
// contract. Multiple track readers push concurrently; end-of-session closes
// the fragment channel exactly once, after which late packets are dropped.
type webrtcStream struct {
	logger commons.Logger
	mime   string
	peer   *webrtc.PeerConnection
	frags  chan internal_type.Fragment

	connected   chan struct{}
	connectOnce sync.Once

	mu     sync.Mutex
	paused bool
	closed bool
	seq    int
}

func newWebRTCStream(logger commons.Logger, mimeType string, peer *webrtc.PeerConnection) *webrtcStream {
	return &webrtcStream{
		logger:    logger,
		mime:      mimeType,
		peer:      peer,
		frags:     make(chan internal_type.Fragment, 256),
		connected: make(chan struct{}),
		paused:    true,
	}
}

func (s *webrtcStream) Fragments() <-chan internal_type.Fragment {
	return s.frags
}

func (s *webrtcStream) MimeType() string {
	return s.mime
}

func (s *webrtcStream) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *webrtcStream) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Stop closes the peer connection. The resulting connection state change
// drives end(), so the fragment channel closes on the same path as a
// publisher-initiated hangup.
func (s *webrtcStream) Stop() {
	if err := s.peer.Close(); err != nil {
		s.logger.Debugf("peer connection close: %v", err)
	}
}

func (s *webrtcStream) markConnected() {
	s.connectOnce.Do(func() { close(s.connected) })
}

// end closes the fragment channel exactly once. Safe against racing track
// readers: closed is flipped under the same lock the readers push under.
func (s *webrtcStream) end() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.frags)
	s.mu.Unlock()
}

// readTrack pumps RTP packets from one remote track until it ends. Track
// errors are terminal for the reader, not for the session: the session ends
// on connection state, not per-track.
func (s *webrtcStream) readTrack(track *webrtc.TrackRemote) {
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			s.logger.Debugw("remote track ended", "kind", track.Kind().String(), "error", err)
			return
		}
		s.pushPacket(packet)
	}
}

func (s *webrtcStream) pushPacket(packet *rtp.Packet) {
	if len(packet.Payload) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.paused {
		return
	}
	s.seq++
	f := internal_type.Fragment{Seq: s.seq, Data: packet.Payload, ReceivedAt: time.Now()}
	// Capture data is never dropped. A full channel blocks this reader,
	// pushing back on the track instead of losing payloads. Holding mu across
	// the send is what makes it safe: end() closes the channel under the same
	// lock, so a close cannot land mid-send.
	s.frags <- f
}
