// vani-tail: tails the vani-server event feed over websocket and
// prints session lifecycle events, one per line. Useful for watching a
// deployment from a terminal.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var (
	addr    = flag.String("addr", "localhost:8090", "vani-server address")
	rawJSON = flag.Bool("json", false, "print raw JSON events")
)

type event struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id"`
	Type      string    `json:"type"`
	Detail    string    `json:"detail"`
}

func main() {
	flag.Parse()

	url := fmt.Sprintf("ws://%s/ws/events", *addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect %s: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.Close()
		os.Exit(0)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: read: %v\n", err)
			os.Exit(1)
		}

		if *rawJSON {
			fmt.Println(string(data))
			continue
		}

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			fmt.Println(string(data))
			continue
		}

		line := fmt.Sprintf("%s  %s  %-15s", ev.Time.Local().Format("15:04:05"), short(ev.SessionID), ev.Type)
		if ev.Detail != "" {
			line += "  " + ev.Detail
		}
		fmt.Println(line)
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
