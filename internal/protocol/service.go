package protocol

// SpeakRequest asks the frontend to speak text. Interrupt requests (but
// cannot guarantee, since not every presentation backend supports it)
// cancellation of in-flight speech first.
type SpeakRequest struct {
	Text      string `json:"text"`
	Interrupt bool   `json:"interrupt,omitempty"`
}

// ShutdownRequest ends the session. It is terminal: the frontend stops
// processing the rest of the batch and begins teardown.
type ShutdownRequest struct{}

// ServiceRequest is a closed tagged union of fire-and-forget requests.
// Exactly one variant is populated. Requests are stateless side effects
// and not part of the stack model.
type ServiceRequest struct {
	Speak    *SpeakRequest    `json:"speak,omitempty"`
	Shutdown *ShutdownRequest `json:"shutdown,omitempty"`
}

func SpeakService(text string, interrupt bool) ServiceRequest {
	return ServiceRequest{Speak: &SpeakRequest{Text: text, Interrupt: interrupt}}
}

func ShutdownService() ServiceRequest {
	return ServiceRequest{Shutdown: &ShutdownRequest{}}
}

func (r *ServiceRequest) Validate() error {
	n := 0
	if r.Speak != nil {
		n++
	}
	if r.Shutdown != nil {
		n++
	}
	if n != 1 {
		return Errorf(ErrMalformedElement, "service request must populate exactly one variant, has %d", n)
	}
	return nil
}

// ServiceRequestBatch is executed by the frontend strictly in order.
type ServiceRequestBatch struct {
	Requests []ServiceRequest `json:"requests"`
}

func (b *ServiceRequestBatch) Validate() error {
	for i := range b.Requests {
		if err := b.Requests[i].Validate(); err != nil {
			return Errorf(CodeOf(err), "request %d: %v", i, err)
		}
	}
	return nil
}
