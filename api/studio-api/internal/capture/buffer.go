// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	internal_type "github.com/rapidaai/api/studio-api/internal/type"
)

// Artifact is a merged, playable recording. Immutable after creation; a later
// merge supersedes it with a fresh handle rather than mutating it.
type Artifact struct {
	ID        string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// URL derives the dereferenceable playback handle for this artifact.
func (a *Artifact) URL() string {
	return "/v1/studio/artifacts/" + a.ID
}

// FragmentBuffer accumulates capture fragments in arrival order. Order is
// significant: MergeAll replays fragments in emission order to produce a
// valid artifact.
type FragmentBuffer struct {
	mu        sync.Mutex
	fragments []internal_type.Fragment
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

func NewFragmentBuffer() *FragmentBuffer {
	return &FragmentBuffer{clock: time.Now}
}

// Append stores a fragment at the end of the buffer. The payload is copied so
// later caller mutations cannot corrupt the merged artifact.
func (b *FragmentBuffer) Append(f internal_type.Fragment) {
	if len(f.Data) == 0 {
		return
	}
	buf := make([]byte, len(f.Data))
	copy(buf, f.Data)
	f.Data = buf

	b.mu.Lock()
	defer b.mu.Unlock()
	f.Seq = len(b.fragments)
	b.fragments = append(b.fragments, f)
}

// Len returns the number of buffered fragments.
func (b *FragmentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fragments)
}

// Bytes concatenates all buffered fragments in emission order.
func (b *FragmentBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, f := range b.fragments {
		total += len(f.Data)
	}
	out := make([]byte, 0, total)
	for _, f := range b.fragments {
		out = append(out, f.Data...)
	}
	return out
}

// MergeAll concatenates the buffered fragments into a single playable
// artifact with a fresh handle. Merging an empty buffer is a MergeFailure:
// there is no recording available. Repeated merges of the same buffer produce
// equivalent artifacts; previous handles are not invalidated here; the
// caller owns that resource-lifetime decision.
func (b *FragmentBuffer) MergeAll(mimeType string) (*Artifact, error) {
	if b.Len() == 0 {
		return nil, fmt.Errorf("no fragments to merge")
	}
	return &Artifact{
		ID:        uuid.New().String(),
		MimeType:  mimeType,
		Data:      b.Bytes(),
		CreatedAt: b.clock(),
	}, nil
}
