// Package ws carries the UI sync protocol over a websocket. A single
// connection gives the ordered, reliable per-session delivery the
// positional patch format requires; nothing here adds its own ordering.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"skald.games/internal/protocol"
	"skald.games/internal/uistack"
)

type Server struct {
	runner   *uistack.Runner
	log      *log.Logger
	maxQueue int

	upgrader websocket.Upgrader
}

// NewServer wraps a runner. maxQueue is the server-side bound on a
// frontend's outbound queue; a HELLO may ask for less but never more.
func NewServer(r *uistack.Runner, maxQueue int, logger *log.Logger) *Server {
	if maxQueue <= 0 {
		maxQueue = 32
	}
	return &Server{
		runner:   r,
		log:      logger,
		maxQueue: maxQueue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			// Same-machine channel; the frontend is a sibling process.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, out := s.handshake(conn)
		if clientID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						// Runner detached us (or is shutting down).
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
							time.Now().Add(time.Second))
						cancel()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.ProtocolVersion != protocol.Version {
				continue
			}
			switch base.Type {
			case protocol.TypeAction:
				var act protocol.ActionMsg
				if err := json.Unmarshal(msg, &act); err != nil {
					continue
				}
				s.runner.Actions() <- act
			case protocol.TypeAck:
				var ack protocol.AckMsg
				if err := json.Unmarshal(msg, &ack); err != nil {
					continue
				}
				s.runner.Acks() <- uistack.ClientAck{ClientID: clientID, Ack: ack}
			}
		}

		s.runner.Detach() <- clientID
	}
}

func (s *Server) handshake(conn *websocket.Conn) (clientID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}
	_ = conn.SetReadDeadline(time.Time{})

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return "", nil
	}
	if hello.FrontendName == "" {
		hello.FrontendName = "frontend"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 || maxQ > s.maxQueue {
		maxQ = s.maxQueue
	}
	out = make(chan []byte, maxQ)

	resp := make(chan uistack.AttachResponse, 1)
	s.runner.Attach() <- uistack.AttachRequest{
		FrontendName: hello.FrontendName,
		Patches:      hello.Capabilities.Patches,
		Out:          out,
		Resp:         resp,
	}
	ar := <-resp
	if ar.ClientID == "" {
		return "", nil
	}

	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, ar.Welcome); err != nil {
		s.runner.Detach() <- ar.ClientID
		return "", nil
	}
	return ar.ClientID, out
}
