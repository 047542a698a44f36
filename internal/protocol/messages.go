package protocol

// HELLO (frontend -> backend)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	FrontendName    string            `json:"frontend_name"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	// Patches opts in to UI_PATCH deltas; otherwise every update is a
	// full UI_STACK snapshot.
	Patches bool `json:"patches,omitempty"`
	// SpeechInterrupt reports that the presentation backend can cancel
	// in-flight speech.
	SpeechInterrupt bool `json:"speech_interrupt,omitempty"`
	MaxQueue        int  `json:"max_queue,omitempty"`
}

// WELCOME (backend -> frontend): carries the initial stack so the
// frontend never observes an empty one.
type WelcomeMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	SessionID       string  `json:"session_id"`
	Revision        uint64  `json:"revision"`
	Stack           UiStack `json:"stack"`
}

// UI_STACK (backend -> frontend): full snapshot of the desired stack.
type UiStackMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Revision        uint64  `json:"revision"`
	Stack           UiStack `json:"stack"`
}

// Patch op kinds.
const (
	OpRemove = "REMOVE"
	OpInsert = "INSERT"
)

// PatchOp is a positional delta. Ops apply in emitted order against the
// state identified by the patch's base revision; they are not assertions
// of target state and applying a batch twice is not valid.
type PatchOp struct {
	Op    string        `json:"op"`
	Index int           `json:"index"`
	Entry *UiStackEntry `json:"entry,omitempty"` // INSERT only
}

// UI_PATCH (backend -> frontend): op batch transforming the stack at
// BaseRevision into the stack at Revision. The frontend rejects the
// whole batch (E_STALE) if its acknowledged revision is not BaseRevision.
type UiPatchMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	BaseRevision    uint64    `json:"base_revision"`
	Revision        uint64    `json:"revision"`
	Ops             []PatchOp `json:"ops"`
}

// SERVICE_REQUESTS (backend -> frontend)
type ServiceRequestsMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Batch           ServiceRequestBatch `json:"batch"`
}

// ACK (frontend -> backend): accept/reject of one stack update. On a
// rejection the frontend keeps its prior state and the backend falls
// back to a full snapshot recomputed against nothing.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Revision        uint64 `json:"revision"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Action kinds.
const (
	ActionComplete = "COMPLETE"
	ActionCancel   = "CANCEL"
)

// ACTION (frontend -> backend): user intent addressed to a stack entry
// by key. The entry may already be gone by the time the backend sees the
// action; unknown targets are ignored.
type ActionMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Action          string `json:"action"`
	Target          Key    `json:"target"`
	Value           string `json:"value,omitempty"` // COMPLETE only
}
