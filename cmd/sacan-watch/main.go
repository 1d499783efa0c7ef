package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"
)

// sacan-watch prints the sacand status feed, one line per change.
func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:7070/ws/status", "sacand status feed URL")
		raw   = flag.Bool("raw", false, "Print frames unchanged")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Println(string(message))
				continue
			}
			printFrame(os.Stdout, message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

type frame struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

type volumeData struct {
	VolumeKnown *bool   `json:"volume_known"`
	Percent     float64 `json:"percent"`
	Raw         int64   `json:"raw"`
	Max         int64   `json:"max"`
	Command     string  `json:"command"`
}

// printFrame renders one status frame as a single line.
func printFrame(w io.Writer, message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Fprintf(w, "[TEXT] %s\n", message)
		return
	}

	var v volumeData
	if err := json.Unmarshal(f.Data, &v); err != nil {
		fmt.Fprintf(w, "[%s] %s\n", f.Type, f.Data)
		return
	}

	ts := f.Ts.Local().Format(time.TimeOnly)
	switch f.Type {
	case "state_init":
		if v.VolumeKnown != nil && !*v.VolumeKnown {
			fmt.Fprintf(w, "%s [INIT] volume unknown\n", ts)
			return
		}
		fmt.Fprintf(w, "%s [INIT] %.2f%% (raw %d/%d)\n", ts, v.Percent, v.Raw, v.Max)
	case "volume_changed":
		fmt.Fprintf(w, "%s [VOLUME] %.2f%% (raw %d/%d) %s\n", ts, v.Percent, v.Raw, v.Max, v.Command)
	default:
		fmt.Fprintf(w, "%s [%s] %s\n", ts, f.Type, f.Data)
	}
}
