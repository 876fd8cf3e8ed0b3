// Package spjs is a client for Serial-Port-JSON-Server, a websocket
// bridge that proxies serial ports over the network. Only the frame
// types the streaming transport consumes are surfaced: serial data,
// per-command status, and server errors.
package spjs

import (
	"bytes"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const redialDelay = 3 * time.Second

// Client maintains a websocket connection to an SPJS instance. Writes
// are serialized through a single connection-owner goroutine that
// redials on failure; a write that did not make it onto the wire is
// retried on the next connection.
type Client struct {
	url string

	requests chan request
	incoming chan interface{}
}

type request struct {
	payload []byte
	written chan struct{}
}

// DataFrame is a line of serial data from a port.
type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}

// CmdStatus reports progress ("Queued", "Write", "Complete",
// "WipedQueue") for a command sent with an id.
type CmdStatus struct {
	Cmd string
	ID  string `json:"Id"`
}

type ErrorMessage struct {
	Error string
}

func NewClient(url string) *Client {
	c := &Client{
		url:      url,
		requests: make(chan request, 1000),
		incoming: make(chan interface{}, 1000),
	}

	go c.run()

	return c
}

// Messages returns the stream of parsed SPJS frames: *DataFrame,
// *CmdStatus and *ErrorMessage.
func (c *Client) Messages() <-chan interface{} {
	return c.incoming
}

// decode sniffs the frame type by its distinguishing field; SPJS has no
// type tag. Frames the transport does not consume (port lists, version
// reports) decode to nil.
func decode(data []byte) (interface{}, error) {
	var probe struct {
		Error string
		Cmd   string
		P     string
		D     json.RawMessage
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch {
	case probe.Error != "":
		return &ErrorMessage{Error: probe.Error}, nil
	case probe.Cmd != "":
		var v CmdStatus
		return &v, json.Unmarshal(data, &v)
	case probe.P != "" && len(probe.D) > 0:
		var v DataFrame
		return &v, json.Unmarshal(data, &v)
	}
	return nil, nil
}

func (c *Client) readFrames(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Println("ERROR: spjs read:", err)
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// command echoes and version banners
			continue
		}
		msg, err := decode(data)
		if err != nil {
			log.Println("ERROR: spjs decode:", err)
			continue
		}
		if msg == nil {
			continue
		}
		c.incoming <- msg
	}
}

func (c *Client) run() {
	var retry *request
	for {
		ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			log.Println("ERROR: spjs connect:", err)
			time.Sleep(redialDelay)
			continue
		}
		log.Println("Connected to SPJS at", c.url)
		retry = c.serve(ws, retry)
	}
}

// serve writes requests until the connection drops. An unwritten
// request is handed back so the redial can retry it.
func (c *Client) serve(ws *websocket.Conn, pending *request) *request {
	defer ws.Close()

	done := make(chan struct{})
	go c.readFrames(ws, done)

	for {
		if pending != nil {
			if err := ws.WriteMessage(websocket.TextMessage, pending.payload); err != nil {
				log.Println("ERROR: spjs write:", err)
				return pending
			}
			close(pending.written)
			pending = nil
		}

		select {
		case <-done:
			return nil
		case req := <-c.requests:
			pending = &req
		}
	}
}

func (c *Client) send(payload []byte) {
	written := make(chan struct{})
	c.requests <- request{payload: payload, written: written}
	<-written
}

// JSON is the sendjson payload: a batch of commands for one port.
type JSON struct {
	Port string `json:"P"`
	Data []Data
}

type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

// SendJSON sends a sendjson payload and blocks until it has been
// written to the websocket.
func (c *Client) SendJSON(v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.send(append([]byte("sendjson "), data...))
	return nil
}

// WriteString sends a raw SPJS command and blocks until written.
func (c *Client) WriteString(data string) {
	c.send([]byte(data))
}
