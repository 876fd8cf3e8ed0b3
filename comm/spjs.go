package comm

import (
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/cncio/gsend/spjs"
)

// spjs caps sendjson batches; larger programs go out in chunks.
const spjsBatchSize = 100

type inflightCmd struct {
	id   string
	text string
}

// SPJS is a Communicator backed by a Serial-Port-JSON-Server bridge.
// Acknowledgment arrives as per-command Complete status messages rather
// than raw device lines.
type SPJS struct {
	cl   *spjs.Client
	port string

	mx       sync.Mutex
	listener Listener

	pending    []string
	inflight   []inflightCmd
	hold       bool
	paused     bool
	singleStep bool

	sendMx sync.Mutex
}

var _ Communicator = &SPJS{}

func NewSPJS(cl *spjs.Client, port string) *SPJS {
	s := &SPJS{cl: cl, port: port}
	go s.loop()
	return s
}

func (s *SPJS) SetListener(l Listener) {
	s.mx.Lock()
	s.listener = l
	s.mx.Unlock()
}

func (s *SPJS) Open(port string, baud int) error {
	if port != "" {
		s.mx.Lock()
		s.port = port
		s.mx.Unlock()
	}
	s.cl.WriteString("open " + s.port + " grbl " + strconv.Itoa(baud))
	return nil
}

func (s *SPJS) Close() error {
	s.cl.WriteString("close " + s.port)
	s.mx.Lock()
	s.pending = nil
	s.inflight = nil
	s.mx.Unlock()
	return nil
}

func (s *SPJS) SendLine(text string) {
	s.mx.Lock()
	s.pending = append(s.pending, text)
	s.hold = true
	s.mx.Unlock()
}

func (s *SPJS) TriggerSend() {
	s.mx.Lock()
	s.hold = false
	s.mx.Unlock()
	s.sendPending()
}

func (s *SPJS) Pause() {
	s.mx.Lock()
	s.paused = true
	s.mx.Unlock()
}

func (s *SPJS) Resume() {
	s.mx.Lock()
	s.paused = false
	s.mx.Unlock()
	s.sendPending()
}

func (s *SPJS) Cancel() {
	s.mx.Lock()
	s.pending = nil
	s.mx.Unlock()
	s.cl.WriteString("wipe " + s.port)
}

func (s *SPJS) HasActiveCommands() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.pending) > 0 || len(s.inflight) > 0
}

func (s *SPJS) SetSingleStepMode(enabled bool) {
	s.mx.Lock()
	s.singleStep = enabled
	s.mx.Unlock()
}

func (s *SPJS) SingleStepMode() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.singleStep
}

// nextBatch pops pending lines allowed out by flow control and records
// them as in-flight.
func (s *SPJS) nextBatch() ([]spjs.Data, Listener) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.paused || s.hold || len(s.pending) == 0 {
		return nil, nil
	}

	n := len(s.pending)
	if n > spjsBatchSize {
		n = spjsBatchSize
	}
	if s.singleStep {
		if len(s.inflight) > 0 {
			return nil, nil
		}
		n = 1
	}

	batch := make([]spjs.Data, 0, n)
	for _, text := range s.pending[:n] {
		id := uuid.NewString()
		batch = append(batch, spjs.Data{Data: text + "\n", ID: id})
		s.inflight = append(s.inflight, inflightCmd{id: id, text: text})
	}
	s.pending = s.pending[n:]
	return batch, s.listener
}

func (s *SPJS) sendPending() {
	s.sendMx.Lock()
	defer s.sendMx.Unlock()

	for {
		batch, l := s.nextBatch()
		if len(batch) == 0 {
			return
		}
		if err := s.cl.SendJSON(spjs.JSON{Port: s.port, Data: batch}); err != nil {
			log.Println("ERROR: spjs sendjson:", err)
			return
		}
		if l == nil {
			continue
		}
		for _, d := range batch {
			l.CommandSent(d.Data[:len(d.Data)-1])
		}
	}
}

func (s *SPJS) loop() {
	for resp := range s.cl.Messages() {
		switch msg := resp.(type) {
		case *spjs.DataFrame:
			s.mx.Lock()
			l := s.listener
			s.mx.Unlock()
			if l != nil && msg.Port == s.port {
				l.RawResponse(msg.Data)
			}
		case *spjs.CmdStatus:
			s.handleStatus(msg)
		case *spjs.ErrorMessage:
			log.Println("ERROR: spjs:", msg.Error)
		}
	}
}

func (s *SPJS) handleStatus(msg *spjs.CmdStatus) {
	switch msg.Cmd {
	case "Complete":
		s.mx.Lock()
		l := s.listener
		ok := len(s.inflight) > 0 && s.inflight[0].id == msg.ID
		if ok {
			s.inflight = s.inflight[1:]
		}
		s.mx.Unlock()
		if !ok {
			log.Println("ERROR: spjs: complete for unknown command:", msg.ID)
			return
		}
		if l != nil {
			l.CommandResponse("ok")
		}
		s.sendPending()
	case "WipedQueue":
		s.mx.Lock()
		s.inflight = nil
		s.mx.Unlock()
	}
}
