package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream pipeline state transitions from the daemon until interrupted",
	Run:   wrap(eventscmd),
}

// event mirrors api.Event's JSON shape.
type event struct {
	Operation string `json:"operation"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
	Time      string `json:"time"`
}

func eventscmd() {
	if host, port, _ := net.SplitHostPort(addr); host == "" {
		addr = net.JoinHostPort("localhost", port)
	}
	url := "ws://" + addr + "/events"

	header := http.Header{}
	header.Set("User-Agent", "H2H-Agent")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		die("Could not connect to event stream:", err)
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			die("Event stream closed:", err)
		}
		var e event
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if e.Error != "" {
			fmt.Printf("[%s] %s: %s (%s)\n", e.Time, e.Operation, e.State, e.Error)
		} else {
			fmt.Printf("[%s] %s: %s\n", e.Time, e.Operation, e.State)
		}
	}
}
