package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"skald.games/internal/persistence/transcript"
	"skald.games/internal/protocol"
)

// Prints a recorded session as a readable timeline: each published
// stack revision with its entries, interleaved with the spoken lines.
func main() {
	var (
		dbPath   = flag.String("db", "./data/transcript.db", "transcript db path")
		session  = flag.String("session", "", "session id (empty: all sessions)")
		services = flag.Bool("services", true, "include service requests")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	updates, err := transcript.ReadUpdates(*dbPath, *session)
	if err != nil {
		logger.Fatalf("read updates: %v", err)
	}
	var svcs []transcript.ServiceEntry
	if *services {
		if svcs, err = transcript.ReadServices(*dbPath, *session); err != nil {
			logger.Fatalf("read services: %v", err)
		}
	}

	events := make([]event, 0, len(updates)+len(svcs))
	for _, u := range updates {
		events = append(events, event{at: u.At, update: &u})
	}
	for _, s := range svcs {
		events = append(events, event{at: s.At, service: &s})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	for _, ev := range events {
		switch {
		case ev.update != nil:
			printUpdate(ev.update)
		case ev.service != nil:
			printService(ev.service)
		}
	}
	if len(events) == 0 {
		logger.Printf("no recorded events (db=%s session=%q)", *dbPath, *session)
	}
}

type event struct {
	at      time.Time
	update  *transcript.StackUpdate
	service *transcript.ServiceEntry
}

func printUpdate(u *transcript.StackUpdate) {
	fmt.Printf("%s  [%s] rev=%d stack:\n", u.At.Format(time.RFC3339), u.SessionID, u.Revision)
	for i, e := range u.Stack.Entries {
		fmt.Printf("    %d: %s\n", i, describe(e))
	}
}

func printService(s *transcript.ServiceEntry) {
	switch s.Kind {
	case "speak":
		marker := ""
		if s.Interrupt {
			marker = " (interrupt)"
		}
		fmt.Printf("%s  [%s] speak%s: %s\n", s.At.Format(time.RFC3339), s.SessionID, marker, s.Text)
	default:
		fmt.Printf("%s  [%s] %s\n", s.At.Format(time.RFC3339), s.SessionID, s.Kind)
	}
}

func describe(e protocol.UiStackEntry) string {
	if m, err := e.Element.AsMenu(); err == nil {
		return fmt.Sprintf("menu %q (%d items) key=%s", m.Title, len(m.Items), e.Key)
	}
	return fmt.Sprintf("gameplay key=%s", e.Key)
}
