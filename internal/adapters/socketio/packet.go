package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Engine.IO packet types (first byte of every websocket text frame).
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO packet types (second byte of an Engine.IO message).
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

// openPacket is the Engine.IO handshake payload: 0{"sid":...}
type openPacket struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
}

var errNotOpen = errors.New("socketio: not an open packet")

func parseOpen(s string) (openPacket, error) {
	var op openPacket
	if len(s) < 2 || s[0] != engineOpen {
		return op, errNotOpen
	}
	if err := json.Unmarshal([]byte(s[1:]), &op); err != nil {
		return op, fmt.Errorf("socketio: bad open payload: %w", err)
	}
	return op, nil
}

// encodeConnect builds the Socket.IO CONNECT packet for the root namespace.
// A nil auth sends the bare packet.
func encodeConnect(auth any) (string, error) {
	if auth == nil {
		return "40", nil
	}
	b, err := json.Marshal(auth)
	if err != nil {
		return "", err
	}
	return "40" + string(b), nil
}

// encodeEvent builds a root-namespace EVENT packet: 42["name",arg...]
func encodeEvent(event string, args ...any) (string, error) {
	arr := make([]any, 0, len(args)+1)
	arr = append(arr, event)
	arr = append(arr, args...)
	b, err := json.Marshal(arr)
	if err != nil {
		return "", err
	}
	return "42" + string(b), nil
}

// connectErrorMessage extracts the message of a CONNECT_ERROR packet
// (44{"message":"..."} in v5, 44"..." in v4).
func connectErrorMessage(s string) string {
	payload := strings.TrimPrefix(s, "44")
	if strings.HasPrefix(payload, "/") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(payload), &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	var str string
	if json.Unmarshal([]byte(payload), &str) == nil && str != "" {
		return str
	}
	if payload == "" {
		return "connection rejected"
	}
	return payload
}

// ParseEvent tries to parse a Socket.IO event-like packet from a text frame.
// Supported types:
//   - '42' EVENT:            42[/nsp][,ack][args]
//   - '45' BINARY_EVENT:     45<attachments>-[/nsp][,ack][args]
//   - '43' ACK:              43[/nsp][,ack][args]   (reported as event "ack")
//   - '46' BINARY_ACK:       46<attachments>-[/nsp][,ack][args] (reported as event "ack")
//
// Returns (namespace, event, argsJSON, ok)
func ParseEvent(s string) (string, string, string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", "", "", false
	}
	if strings.HasPrefix(s, "45") || strings.HasPrefix(s, "46") {
		return parseBinaryLike(s)
	}
	if strings.HasPrefix(s, "43") {
		nsp, payload, ok := splitNamespaceAndAck(s[2:])
		if !ok || !strings.HasPrefix(payload, "[") {
			return "", "", "", false
		}
		return nsp, "ack", payload, true
	}
	if strings.HasPrefix(s, "42") {
		nsp, payload, ok := splitNamespaceAndAck(s[2:])
		if !ok {
			return "", "", "", false
		}
		ev, ok := eventName(payload)
		if !ok {
			return "", "", "", false
		}
		return nsp, ev, payload, true
	}
	return "", "", "", false
}

// splitNamespaceAndAck strips the optional "/nsp," prefix and ack id digits.
func splitNamespaceAndAck(payload string) (string, string, bool) {
	if strings.HasPrefix(payload, ",") {
		payload = payload[1:]
	}
	nsp := ""
	if strings.HasPrefix(payload, "/") {
		idx := strings.IndexByte(payload, ',')
		if idx <= 0 {
			return "", "", false
		}
		nsp = payload[:idx]
		payload = payload[idx+1:]
	}
	if i := strings.IndexByte(payload, '['); i > 0 {
		if isDigits(payload[:i]) {
			payload = payload[i:]
		}
	}
	return nsp, payload, true
}

func eventName(payload string) (string, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &arr); err != nil || len(arr) == 0 {
		return "", false
	}
	var ev string
	if err := json.Unmarshal(arr[0], &ev); err != nil || ev == "" {
		return "", false
	}
	return ev, true
}

// eventArg decodes argument i (0 = first after the event name) of an args array.
func eventArg(argsJSON string, i int, v any) error {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &arr); err != nil {
		return err
	}
	if len(arr) < i+2 {
		return fmt.Errorf("socketio: missing argument %d", i)
	}
	return json.Unmarshal(arr[i+1], v)
}

func parseBinaryLike(s string) (string, string, string, bool) {
	isAck := s[1] == '6'
	payload := s[2:]
	i := 0
	for i < len(payload) && payload[i] >= '0' && payload[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(payload) || payload[i] != '-' {
		return "", "", "", false
	}
	nsp, payload, ok := splitNamespaceAndAck(payload[i+1:])
	if !ok || !strings.HasPrefix(payload, "[") {
		return "", "", "", false
	}
	if isAck {
		return nsp, "ack", payload, true
	}
	ev, ok := eventName(payload)
	if !ok {
		return "", "", "", false
	}
	return nsp, ev, payload, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
