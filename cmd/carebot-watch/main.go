// Carebot-watch - terminal tail of a CareBot daemon's live streams
//
// Connects to the daemon's WebSocket endpoint and prints each envelope
// as a one-line summary. Useful when bringing up a bed without the
// dashboard at hand.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/carebot-oss/carebot/pkg/engine"
	"github.com/carebot-oss/carebot/pkg/protocol"
)

const (
	dialTimeout  = 10 * time.Second
	pingInterval = 30 * time.Second
	retryDelay   = 3 * time.Second
)

func main() {
	addr := flag.String("addr", "localhost:8000", "daemon host:port")
	stream := flag.String("stream", "events", "stream to follow: events or status")
	flag.Parse()

	if *stream != "events" && *stream != "status" {
		fmt.Fprintf(os.Stderr, "unknown stream %q, want events or status\n", *stream)
		os.Exit(2)
	}
	url := fmt.Sprintf("ws://%s/ws/%s", *addr, *stream)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-sigChan
		close(done)
	}()

	fmt.Printf("👀 watching %s (Ctrl+C to quit)\n", url)
	for {
		if err := tail(url, done); err != nil {
			fmt.Fprintf(os.Stderr, "connection lost: %v, retrying in %s\n", err, retryDelay)
		}
		select {
		case <-done:
			fmt.Println("\nbye")
			return
		case <-time.After(retryDelay):
		}
	}
}

// tail connects and prints envelopes until the connection drops or done
// closes.
func tail(url string, done <-chan struct{}) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Println("connected")

	// Ping on a timer so round-trip latency shows up in the tail. This
	// goroutine is the only text-frame writer on the connection.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				conn.Close() // unblocks the read loop
				return
			case <-ticker.C:
				msg, err := protocol.NewPingMessage(uuid.NewString())
				if err != nil {
					continue
				}
				data, err := msg.Bytes()
				if err != nil {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				return err
			}
		}
		printEnvelope(data)
	}
}

func printEnvelope(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		fmt.Printf("?? %s\n", data)
		return
	}
	ts := time.UnixMilli(msg.Timestamp).Format("15:04:05")

	switch msg.Type {
	case protocol.TypeStatus:
		st, err := msg.GetStatusData()
		if err != nil {
			return
		}
		next := "none"
		if st.NextDueAt != nil {
			next = time.Until(*st.NextDueAt).Round(time.Second).String()
		}
		fmt.Printf("%s status  %-18s pos=%s next=%s rotations=%d\n",
			ts, st.State, st.CurrentPosition, next, st.TotalRotations)
	case protocol.TypeEvent:
		ev, err := msg.GetEventData()
		if err != nil {
			return
		}
		mark := "  "
		switch ev.Level {
		case engine.LevelWarning:
			mark = "⚠️ "
		case engine.LevelCritical:
			mark = "⛔"
		}
		fmt.Printf("%s event %s %s\n", ts, mark, ev.Message)
	case protocol.TypeAudit:
		rec, err := msg.GetAuditData()
		if err != nil {
			return
		}
		fmt.Printf("%s audit   %s %s steps=%d/%d %s\n",
			ts, rec.Outcome, rec.Position, rec.StepsCompleted, rec.StepsPlanned, rec.Detail)
	case protocol.TypePong:
		pong, err := msg.GetPongData()
		if err != nil {
			return
		}
		fmt.Printf("%s pong    latency=%dms\n", ts, pong.LatencyMs)
	default:
		fmt.Printf("%s %s %s\n", ts, msg.Type, msg.Data)
	}
}
