package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// stateEnvelope is the daemon's WS message format: {type, ts, data}.
type stateEnvelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		wsURL       = flag.String("ws", "ws://127.0.0.1:3001/ws/state", "scrollscene state websocket URL")
		wheel       = flag.Float64("wheel", 0, "Send one wheel event with this deltaY after connecting")
		quietScroll = flag.Bool("quiet-scroll", false, "Do not print scroll_changed messages")
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

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The daemon pings every 20s; answer pongs are automatic. Extend the read
	// deadline on every ping we receive.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	if *wheel != 0 {
		sendWheel(conn, &writeMu, *wheel)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			switch messageType {
			case websocket.TextMessage:
				handleTextMessage(message, *quietScroll)
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleTextMessage prints one state message.
func handleTextMessage(message []byte, quietScroll bool) {
	var env stateEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch env.Type {
	case "scroll_changed":
		if quietScroll {
			return
		}
		var d struct {
			Scroll float64 `json:"scroll"`
		}
		if err := json.Unmarshal(env.Data, &d); err == nil {
			fmt.Printf("[SCROLL] %.4f\n", d.Scroll)
			return
		}

	case "scrolling_changed":
		var d struct {
			Scrolling bool `json:"scrolling"`
		}
		if err := json.Unmarshal(env.Data, &d); err == nil {
			status := "IDLE"
			if d.Scrolling {
				status = "SCROLLING"
			}
			fmt.Printf("[STATE] %s\n", status)
			return
		}
	}

	// state_init, config_changed and anything unknown: pretty print.
	var data any
	_ = json.Unmarshal(env.Data, &data)
	prettyJSON, _ := json.MarshalIndent(data, "", "  ")
	fmt.Printf("[%s]\n%s\n\n", env.Type, string(prettyJSON))
}

// sendWheel sends a wheel input event to the daemon (thread-safe)
func sendWheel(conn *websocket.Conn, writeMu *sync.Mutex, deltaY float64) {
	payload, err := json.Marshal(map[string]any{
		"type": "wheel",
		"data": map[string]float64{"delta_y": deltaY},
	})
	if err != nil {
		log.Printf("error marshaling wheel event: %v", err)
		return
	}

	writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	writeMu.Unlock()

	if err != nil {
		log.Printf("error sending wheel event: %v", err)
	}
}
