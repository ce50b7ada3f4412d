package chat

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseEvent is one parsed text/event-stream event
type sseEvent struct {
	name string
	data []byte
}

// chunkPayload is the wire shape of a "chunk" event. Fragments carrying
// the same assistantMessageId belong to the same assistant message.
type chunkPayload struct {
	AssistantMessageID string `json:"assistantMessageId"`
	Text               string `json:"text"`
}

// readEvents parses a text/event-stream body, invoking emit for each
// dispatched event. "event:" names the event, "data:" lines accumulate
// the payload, and a blank line dispatches. Comment lines (leading ":")
// are keep-alives and are ignored. Returns nil on clean EOF.
func readEvents(r io.Reader, emit func(sseEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data bytes.Buffer

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name != "" || data.Len() > 0 {
				event := sseEvent{name: name, data: append([]byte(nil), data.Bytes()...)}
				if event.name == "" {
					event.name = "message"
				}
				if err := emit(event); err != nil {
					return err
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
