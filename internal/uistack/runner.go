package uistack

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"skald.games/internal/protocol"
	"skald.games/internal/reconcile"
)

// Recorder observes the session for transcripts and replay. Recording is
// observational only; the protocol itself persists nothing.
type Recorder interface {
	RecordStack(revision uint64, stack protocol.UiStack)
	RecordService(req protocol.ServiceRequest)
}

// AttachRequest registers a frontend with the runner. Resp receives the
// encoded WELCOME message carrying the current stack, so the frontend
// never starts from an empty one.
type AttachRequest struct {
	FrontendName string
	Patches      bool
	Out          chan []byte
	Resp         chan AttachResponse
}

type AttachResponse struct {
	ClientID string
	Welcome  []byte
}

// ClientAck is a frontend's accept/reject of one stack update.
type ClientAck struct {
	ClientID string
	Ack      protocol.AckMsg
}

// Runner drives a session: it ticks the authoritative stack, publishes
// updates to attached frontends, and routes actions and acks back in.
// It is the sole mutator of desired-state; frontends are the sole
// mutators of their rendered state. All coordination happens over the
// channels below, so the loop needs no locks.
type Runner struct {
	logger   *log.Logger
	stack    *Stack
	services *ServiceQueue
	interval time.Duration
	recorder Recorder
	onTick   func()

	sessionID string
	revision  uint64
	current   protocol.UiStack

	attach  chan AttachRequest
	detach  chan string
	actions chan protocol.ActionMsg
	acks    chan ClientAck

	clients map[string]*client

	shuttingDown bool
}

// client is the runner's view of one attached frontend. At most one
// update is in flight per client: patches are positional deltas against
// the acknowledged state, so the runner never stacks unacknowledged
// patches on top of each other.
type client struct {
	id      string
	name    string
	out     chan []byte
	patches bool

	acked    protocol.UiStack
	ackedRev uint64
	hasAcked bool

	sent     protocol.UiStack
	sentRev  uint64
	awaiting bool
	dirty    bool
}

func NewRunner(logger *log.Logger, stack *Stack, services *ServiceQueue, interval time.Duration) *Runner {
	return &Runner{
		logger:    logger,
		stack:     stack,
		services:  services,
		interval:  interval,
		sessionID: newKey(),
		attach:    make(chan AttachRequest),
		detach:    make(chan string, 16),
		actions:   make(chan protocol.ActionMsg, 64),
		acks:      make(chan ClientAck, 64),
		clients:   make(map[string]*client),
	}
}

func (r *Runner) SessionID() string { return r.sessionID }

// SetRecorder must be called before Run.
func (r *Runner) SetRecorder(rec Recorder) { r.recorder = rec }

// SetOnTick installs a callback run at the start of every tick, on the
// loop goroutine. Session logic (menu flows, narration) lives here so
// it mutates the stack and service queue without racing the loop. Must
// be called before Run.
func (r *Runner) SetOnTick(fn func()) { r.onTick = fn }

func (r *Runner) Attach() chan<- AttachRequest       { return r.attach }
func (r *Runner) Detach() chan<- string              { return r.detach }
func (r *Runner) Actions() chan<- protocol.ActionMsg { return r.actions }
func (r *Runner) Acks() chan<- ClientAck             { return r.acks }

// Run blocks until the context is cancelled or a Shutdown service
// request has been delivered to the frontends.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Publish an initial state before serving attaches.
	if err := r.tickOnce(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			r.closeClients()
			return nil
		case <-ticker.C:
			if err := r.tickOnce(); err != nil {
				r.closeClients()
				return err
			}
			if r.shuttingDown {
				r.closeClients()
				return nil
			}
		case req := <-r.attach:
			r.handleAttach(req)
		case id := <-r.detach:
			delete(r.clients, id)
		case act := <-r.actions:
			r.handleAction(act)
		case ack := <-r.acks:
			r.handleAck(ack)
		}
	}
}

func (r *Runner) tickOnce() error {
	if r.onTick != nil {
		r.onTick()
	}
	if err := r.stack.Tick(); err != nil {
		return err
	}

	if reqs := r.services.Drain(); len(reqs) > 0 {
		r.broadcastServices(reqs)
		for _, req := range reqs {
			if r.recorder != nil {
				r.recorder.RecordService(req)
			}
			if req.Shutdown != nil {
				r.shuttingDown = true
				break
			}
		}
	}

	snap := r.stack.Snapshot()
	if len(snap.Entries) == 0 {
		// Nothing published yet (all elements still initializing).
		return nil
	}
	if r.revision == 0 || !snap.Equal(&r.current) {
		r.revision++
		r.current = snap
		if r.recorder != nil {
			r.recorder.RecordStack(r.revision, r.current)
		}
	}
	for _, c := range r.clients {
		r.maybeSend(c)
	}
	return nil
}

func (r *Runner) handleAttach(req AttachRequest) {
	c := &client{
		id:      newKey(),
		name:    req.FrontendName,
		out:     req.Out,
		patches: req.Patches,
	}
	r.clients[c.id] = c

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       r.sessionID,
		Revision:        r.revision,
		Stack:           r.current.Clone(),
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		r.logger.Printf("marshal WELCOME: %v", err)
		delete(r.clients, c.id)
		req.Resp <- AttachResponse{}
		return
	}
	// The WELCOME stack is acknowledged like any other update.
	c.sent = r.current.Clone()
	c.sentRev = r.revision
	c.awaiting = true
	req.Resp <- AttachResponse{ClientID: c.id, Welcome: b}
	r.logger.Printf("frontend %q attached client_id=%s rev=%d", c.name, c.id, r.revision)
}

func (r *Runner) handleAction(act protocol.ActionMsg) {
	var err error
	switch act.Action {
	case protocol.ActionComplete:
		err = r.stack.Complete(act.Target, act.Value)
	case protocol.ActionCancel:
		err = r.stack.Cancel(act.Target)
	default:
		r.logger.Printf("ignoring unknown action %q", act.Action)
		return
	}
	if err != nil {
		// Element-level refusals (e.g. cancelling an uncancellable menu)
		// are not fatal to the session.
		r.logger.Printf("action %s target=%s: %v", act.Action, act.Target, err)
	}
}

func (r *Runner) handleAck(ca ClientAck) {
	c, ok := r.clients[ca.ClientID]
	if !ok {
		return
	}
	if !c.awaiting || ca.Ack.Revision != c.sentRev {
		r.logger.Printf("client %s: stray ack for rev=%d (in flight rev=%d)", c.id, ca.Ack.Revision, c.sentRev)
		return
	}
	c.awaiting = false
	if ca.Ack.Accepted {
		c.acked = c.sent
		c.ackedRev = c.sentRev
		c.hasAcked = true
	} else {
		// Rejected: the frontend kept its prior state. Fall back to a
		// full snapshot, which is safe against any rendered state.
		r.logger.Printf("client %s: rejected rev=%d code=%s: %s", c.id, ca.Ack.Revision, ca.Ack.Code, ca.Ack.Message)
		c.hasAcked = false
	}
	r.maybeSend(c)
}

// maybeSend ships the current revision to the client unless an update is
// already in flight. Patches are only computed against the client's
// acknowledged state; everything else gets a snapshot.
func (r *Runner) maybeSend(c *client) {
	if c.awaiting {
		c.dirty = true
		return
	}
	if c.hasAcked && c.ackedRev == r.revision {
		c.dirty = false
		return
	}

	var payload []byte
	if c.patches && c.hasAcked {
		ops, err := reconcile.Diff(c.acked, r.current)
		if err == nil {
			msg := protocol.UiPatchMsg{
				Type:            protocol.TypeUiPatch,
				ProtocolVersion: protocol.Version,
				BaseRevision:    c.ackedRev,
				Revision:        r.revision,
				Ops:             ops,
			}
			payload, err = json.Marshal(msg)
		}
		if err != nil {
			r.logger.Printf("client %s: patch rev=%d failed, falling back to snapshot: %v", c.id, r.revision, err)
			payload = nil
		}
	}
	if payload == nil {
		msg := protocol.UiStackMsg{
			Type:            protocol.TypeUiStack,
			ProtocolVersion: protocol.Version,
			Revision:        r.revision,
			Stack:           r.current.Clone(),
		}
		b, err := json.Marshal(msg)
		if err != nil {
			r.logger.Printf("client %s: marshal snapshot: %v", c.id, err)
			return
		}
		payload = b
	}

	if !r.send(c, payload) {
		return
	}
	c.sent = r.current.Clone()
	c.sentRev = r.revision
	c.awaiting = true
	c.dirty = false
}

func (r *Runner) broadcastServices(reqs []protocol.ServiceRequest) {
	msg := protocol.ServiceRequestsMsg{
		Type:            protocol.TypeServiceRequests,
		ProtocolVersion: protocol.Version,
		Batch:           protocol.ServiceRequestBatch{Requests: reqs},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		r.logger.Printf("marshal service requests: %v", err)
		return
	}
	for _, c := range r.clients {
		r.send(c, b)
	}
}

// send pushes a payload without blocking the loop. A client that cannot
// keep up is detached; the transport notices the closed channel and
// drops the connection.
func (r *Runner) send(c *client, b []byte) bool {
	select {
	case c.out <- b:
		return true
	default:
		r.logger.Printf("client %s: send queue full, detaching", c.id)
		delete(r.clients, c.id)
		close(c.out)
		return false
	}
}

func (r *Runner) closeClients() {
	for id, c := range r.clients {
		close(c.out)
		delete(r.clients, id)
	}
}
