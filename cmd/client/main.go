// Command client is an interactive terminal client for a roomcast server.
//
// Commands: /name <username>, /create <room> [password], /join <room>,
// /leave, /quit. Any other input is sent as a message to the current room.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:6969/ws", "server websocket URL")
	name := flag.String("name", "", "display name to claim on connect")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()
	color.Green.Printf("Connected to %s\n", *addr)

	if *name != "" {
		if err := send(conn, "set username", map[string]string{"username": *name}); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(conn)
	}()

	currentRoom := ""
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			<-done
			return nil

		case strings.HasPrefix(line, "/name "):
			*name = strings.TrimSpace(strings.TrimPrefix(line, "/name "))
			if err := send(conn, "set username", map[string]string{"username": *name}); err != nil {
				return err
			}

		case strings.HasPrefix(line, "/create "):
			fields := strings.Fields(strings.TrimPrefix(line, "/create "))
			if len(fields) == 0 {
				color.Red.Println("usage: /create <room> [password]")
				continue
			}
			password := ""
			if len(fields) > 1 {
				password = fields[1]
			}
			currentRoom = fields[0]
			if err := send(conn, "create room", map[string]string{
				"roomName": fields[0], "password": password,
			}); err != nil {
				return err
			}

		case strings.HasPrefix(line, "/join "):
			room := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
			currentRoom = room
			if err := send(conn, "join room", map[string]string{
				"roomName": room, "username": *name,
			}); err != nil {
				return err
			}

		case line == "/leave":
			currentRoom = ""
			if err := send(conn, "leave room", nil); err != nil {
				return err
			}

		default:
			if currentRoom == "" {
				color.Red.Println("not in a room, /create or /join one first")
				continue
			}
			if err := send(conn, "room message", map[string]string{
				"roomName": currentRoom, "message": line,
			}); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func send(conn *websocket.Conn, event string, payload any) error {
	env := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}
	return conn.WriteJSON(env)
}

// receive prints server events until the connection closes.
func receive(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			color.Yellow.Println("Connection closed")
			return
		}

		switch env.Event {
		case "room created":
			var p struct {
				RoomName    string `json:"roomName"`
				CreatorName string `json:"creatorName"`
			}
			_ = json.Unmarshal(env.Data, &p)
			color.Green.Printf("Room %q created by %s\n", p.RoomName, p.CreatorName)

		case "room joined":
			var p struct {
				RoomName string `json:"roomName"`
			}
			_ = json.Unmarshal(env.Data, &p)
			color.Green.Printf("Joined room %q\n", p.RoomName)

		case "room error":
			var p struct {
				Message string `json:"message"`
				Kind    string `json:"kind"`
			}
			_ = json.Unmarshal(env.Data, &p)
			color.Red.Printf("Error (%s): %s\n", p.Kind, p.Message)

		case "user joined room":
			var username string
			_ = json.Unmarshal(env.Data, &username)
			color.Cyan.Printf("* %s joined\n", username)

		case "user left room":
			var username string
			_ = json.Unmarshal(env.Data, &username)
			color.Yellow.Printf("* %s left\n", username)

		case "room message":
			var p struct {
				RoomName string `json:"roomName"`
				UserName string `json:"userName"`
				Message  string `json:"message"`
			}
			_ = json.Unmarshal(env.Data, &p)
			color.Printf("<cyan>[%s]</> <bold>%s</>: %s\n", p.RoomName, p.UserName, p.Message)

		default:
			color.Gray.Printf("? %s %s\n", env.Event, string(env.Data))
		}
	}
}
