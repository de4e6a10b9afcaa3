package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"
	"github.com/gorilla/websocket"
	"github.com/rskv-p/meshgate/internal/wire"
	"github.com/spf13/cobra"
)

var (
	clientURL   string
	clientToken string
)

// clientCmd is an interactive debug REPL: it dials the gateway directly,
// authenticates, and lets an operator issue sub/unsub/pub/req/ping commands
// by hand — the same kind of manual bus-poking tool the fleet ships as
// `nats` under cmd_nats, repurposed here to poke the gateway itself.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Interactive debug client for a running gateway",
	RunE:  runClient,
}

func init() {
	clientCmd.Flags().StringVar(&clientURL, "url", "ws://127.0.0.1:4434/ws", "gateway WebSocket URL")
	clientCmd.Flags().StringVar(&clientToken, "token", "", "bearer token to authenticate with")
}

func runClient(cmd *cobra.Command, args []string) error {
	conn, _, err := websocket.DefaultDialer.Dial(clientURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", clientURL, err)
	}
	defer conn.Close()

	go readLoop(conn)

	if clientToken != "" {
		sendClient(conn, wire.Auth(clientToken))
	}

	fmt.Println("meshgate debug client. Commands: sub <subject> <id>, unsub <id>, pub <subject> <text>, req <subject> <text> <timeout_ms> <request_id>, ping, auth <token>, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		if err := dispatchLine(conn, line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Println("error:", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func dispatchLine(conn *websocket.Conn, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil || len(tokens) == 0 {
		return nil
	}

	switch tokens[0] {
	case "quit", "exit":
		return errQuit
	case "ping":
		sendClient(conn, wire.Ping())
	case "auth":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: auth <token>")
		}
		sendClient(conn, wire.Auth(tokens[1]))
	case "sub":
		if len(tokens) != 3 {
			return fmt.Errorf("usage: sub <subject> <id>")
		}
		id, err := strconv.ParseUint(tokens[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		sendClient(conn, wire.Subscribe(tokens[1], id))
	case "unsub":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: unsub <id>")
		}
		id, err := strconv.ParseUint(tokens[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		sendClient(conn, wire.Unsubscribe(id))
	case "pub":
		if len(tokens) < 3 {
			return fmt.Errorf("usage: pub <subject> <text>")
		}
		sendClient(conn, wire.Publish(tokens[1], []byte(tokens[2])))
	case "req":
		if len(tokens) != 5 {
			return fmt.Errorf("usage: req <subject> <text> <timeout_ms> <request_id>")
		}
		timeoutMS, err := strconv.ParseUint(tokens[3], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid timeout_ms: %w", err)
		}
		requestID, err := strconv.ParseUint(tokens[4], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid request_id: %w", err)
		}
		sendClient(conn, wire.Request(tokens[1], []byte(tokens[2]), uint32(timeoutMS), requestID))
	default:
		return fmt.Errorf("unknown command %q", tokens[0])
	}
	return nil
}

func sendClient(conn *websocket.Conn, msg wire.ClientMessage) {
	if err := conn.WriteMessage(websocket.BinaryMessage, wire.EncodeClient(msg)); err != nil {
		fmt.Println("write error:", err)
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			fmt.Println("connection closed:", err)
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		msg, err := wire.DecodeServer(data)
		if err != nil {
			fmt.Println("decode error:", err)
			continue
		}
		printServerMessage(msg)
	}
}

func printServerMessage(msg wire.ServerMessage) {
	ts := time.Now().Format("15:04:05")
	switch msg.Tag {
	case wire.TagAuthOk:
		fmt.Printf("[%s] AuthOk session_id=%s\n", ts, msg.SessionID)
	case wire.TagAuthError:
		fmt.Printf("[%s] AuthError reason=%s\n", ts, msg.Reason)
	case wire.TagSubscribeOk:
		fmt.Printf("[%s] SubscribeOk id=%d\n", ts, msg.ID)
	case wire.TagSubscribeError:
		fmt.Printf("[%s] SubscribeError id=%d reason=%s\n", ts, msg.ID, msg.Reason)
	case wire.TagMessage:
		fmt.Printf("[%s] Message sub=%d subject=%s payload=%s\n", ts, msg.SubscriptionID, msg.Subject, string(msg.Payload))
	case wire.TagResponse:
		fmt.Printf("[%s] Response request_id=%d payload=%s\n", ts, msg.RequestID, string(msg.Payload))
	case wire.TagRequestError:
		fmt.Printf("[%s] RequestError request_id=%d reason=%s\n", ts, msg.RequestID, msg.Reason)
	case wire.TagError:
		fmt.Printf("[%s] Error code=%d message=%s\n", ts, msg.Code, msg.Message)
	case wire.TagPong:
		fmt.Printf("[%s] Pong\n", ts)
	}
}
