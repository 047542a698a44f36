package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"skald.games/internal/frontend"
	"skald.games/internal/protocol"
)

// A headless presentation frontend: renders the stack as text, speaks
// service requests to stdout, and (with -auto) answers menus by itself
// so a full session can be exercised without a human.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "headless", "frontend name")
		auto   = flag.Bool("auto", false, "answer menus automatically")
		rounds = flag.Int("rounds", 1, "rounds to play before quitting (with -auto)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[frontend] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		FrontendName:    *name,
		Capabilities: protocol.HelloCapabilities{
			Patches:         true,
			SpeechInterrupt: true,
			MaxQueue:        32,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		conn.Close()
	}()

	sp := stdoutSpeaker{}
	sess := frontend.NewSession()
	played := 0

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.ProtocolVersion != protocol.Version {
			continue
		}

		var res frontend.UpdateResult
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s rev=%d depth=%d", w.SessionID, w.Revision, len(w.Stack.Entries))
			res = sess.ApplyWelcome(w)

		case protocol.TypeUiStack:
			var u protocol.UiStackMsg
			if err := json.Unmarshal(msg, &u); err != nil {
				continue
			}
			res = sess.ApplySnapshot(u)

		case protocol.TypeUiPatch:
			var p protocol.UiPatchMsg
			if err := json.Unmarshal(msg, &p); err != nil {
				continue
			}
			res = sess.ApplyPatch(p)

		case protocol.TypeServiceRequests:
			var sr protocol.ServiceRequestsMsg
			if err := json.Unmarshal(msg, &sr); err != nil {
				continue
			}
			if frontend.ExecuteBatch(sp, sr.Batch, func(err error) {
				logger.Printf("speak: %v", err)
			}) {
				logger.Printf("shutdown requested, exiting")
				return
			}
			continue

		default:
			continue
		}

		if err := conn.WriteJSON(res.Ack); err != nil {
			return
		}
		if !res.Ack.Accepted {
			logger.Printf("rejected rev=%d code=%s: %s", res.Ack.Revision, res.Ack.Code, res.Ack.Message)
			continue
		}
		if res.FocusChanged {
			readFocused(sess, sp)
			if *auto {
				if act, ok := answerMenu(sess, *rounds, &played); ok {
					if err := conn.WriteJSON(act); err != nil {
						return
					}
				}
			}
		}
	}
}

// readFocused announces the new focus the way a screen reader would.
func readFocused(sess *frontend.Session, sp stdoutSpeaker) {
	top, ok := sess.Focused()
	if !ok {
		return
	}
	m, err := top.Element.AsMenu()
	if err != nil {
		_ = sp.Speak("Gameplay.", false)
		return
	}
	_ = sp.Speak(m.Title, false)
	for _, it := range m.Items {
		_ = sp.Speak(it.Label, false)
	}
}

func answerMenu(sess *frontend.Session, rounds int, played *int) (protocol.ActionMsg, bool) {
	top, ok := sess.Focused()
	if !ok {
		return protocol.ActionMsg{}, false
	}
	if _, err := top.Element.AsMenu(); err != nil {
		return protocol.ActionMsg{}, false
	}
	value := "quit"
	if *played < rounds {
		value = "play"
		*played++
	}
	act, err := sess.CompleteFocused(value)
	if err != nil {
		return protocol.ActionMsg{}, false
	}
	return act, true
}

type stdoutSpeaker struct{}

func (stdoutSpeaker) Speak(text string, interrupt bool) error {
	marker := " "
	if interrupt {
		marker = "!"
	}
	_, err := fmt.Printf("speech%s %s\n", marker, text)
	return err
}
