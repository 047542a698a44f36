package frontend

import "skald.games/internal/protocol"

// Speaker is the presentation backend for speech: a screen reader
// bridge, a TTS engine, or a console printer in headless runs.
type Speaker interface {
	// Speak voices text. interrupt asks for any in-flight speech to be
	// cancelled first; backends that cannot interrupt just queue.
	Speak(text string, interrupt bool) error
}

// ExecuteBatch runs a service request batch strictly in order and
// reports whether a shutdown was executed. Shutdown is terminal: the
// remaining requests in the batch are never run, and the caller begins
// teardown. Speak failures do not stop the batch; a broken utterance
// must not wedge the session.
func ExecuteBatch(sp Speaker, batch protocol.ServiceRequestBatch, onSpeakErr func(error)) (shutdown bool) {
	for i := range batch.Requests {
		req := &batch.Requests[i]
		switch {
		case req.Speak != nil:
			if err := sp.Speak(req.Speak.Text, req.Speak.Interrupt); err != nil && onSpeakErr != nil {
				onSpeakErr(err)
			}
		case req.Shutdown != nil:
			return true
		}
	}
	return false
}
