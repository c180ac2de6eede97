// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "context"

// Recognizer starts live speech recognition sessions. Implementations are
// provider adapters (Deepgram, Google) plus a noop fallback used when no
// provider is available; recognition degrading never fails the session.
type Recognizer interface {
	Start(ctx context.Context) (RecognitionSession, error)
}

// RecognitionSession is one live recognition stream. Each Results event
// carries the full cumulative transcript observed so far, not a delta, so
// consumers never need reordering or coalescing logic. Stop must be called
// on every teardown path; results arriving after Stop are dropped.
type RecognitionSession interface {
	SendAudio(data []byte) error
	Results() <-chan string
	Stop() error
}
