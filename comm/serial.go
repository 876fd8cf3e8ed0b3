package comm

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/tarm/serial"
)

// deviceBufferSize is the grbl serial receive buffer. Lines are only
// written while the sum of unacknowledged bytes stays below it.
const deviceBufferSize = 128

var errNotOpen = errors.New("serial port not open")

// Serial is a Communicator over a local serial port using
// character-counting flow control.
type Serial struct {
	mx       sync.Mutex
	port     io.ReadWriteCloser
	listener Listener

	pending    []string
	inflight   []string
	paused     bool
	hold       bool // set until TriggerSend
	singleStep bool

	wake    chan struct{}
	closeCh chan struct{}
}

var _ Communicator = &Serial{}

func NewSerial() *Serial {
	return &Serial{wake: make(chan struct{}, 1)}
}

func (s *Serial) SetListener(l Listener) {
	s.mx.Lock()
	s.listener = l
	s.mx.Unlock()
}

func (s *Serial) Open(port string, baud int) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.port != nil {
		return errors.New("serial port already open")
	}

	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return err
	}
	s.port = p
	s.closeCh = make(chan struct{})
	go s.readLoop(p, s.closeCh)
	go s.sendLoop(s.closeCh)
	return nil
}

func (s *Serial) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.port == nil {
		return nil
	}
	close(s.closeCh)
	err := s.port.Close()
	s.port = nil
	s.pending = nil
	s.inflight = nil
	return err
}

func (s *Serial) SendLine(text string) {
	s.mx.Lock()
	s.pending = append(s.pending, text)
	s.hold = true
	s.mx.Unlock()
}

func (s *Serial) TriggerSend() {
	s.mx.Lock()
	s.hold = false
	s.mx.Unlock()
	s.notify()
}

func (s *Serial) Pause() {
	s.mx.Lock()
	s.paused = true
	s.mx.Unlock()
}

func (s *Serial) Resume() {
	s.mx.Lock()
	s.paused = false
	s.mx.Unlock()
	s.notify()
}

// Cancel drops lines not yet written to the wire. Responses for
// in-flight lines are still expected.
func (s *Serial) Cancel() {
	s.mx.Lock()
	s.pending = nil
	s.mx.Unlock()
}

func (s *Serial) HasActiveCommands() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.pending) > 0 || len(s.inflight) > 0
}

func (s *Serial) SetSingleStepMode(enabled bool) {
	s.mx.Lock()
	s.singleStep = enabled
	s.mx.Unlock()
}

func (s *Serial) SingleStepMode() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.singleStep
}

// WriteRealtime writes a single byte to the wire immediately, skipping
// buffer accounting. Used for realtime commands like '?'.
func (s *Serial) WriteRealtime(b byte) error {
	s.mx.Lock()
	port := s.port
	s.mx.Unlock()
	if port == nil {
		return errNotOpen
	}
	_, err := port.Write([]byte{b})
	return err
}

func (s *Serial) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest pending line if flow control allows a write.
func (s *Serial) next() (string, io.Writer, Listener, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.port == nil || s.paused || s.hold || len(s.pending) == 0 {
		return "", nil, nil, false
	}
	if s.singleStep && len(s.inflight) > 0 {
		return "", nil, nil, false
	}

	line := s.pending[0]
	used := 0
	for _, l := range s.inflight {
		used += len(l) + 1
	}
	if used+len(line)+1 > deviceBufferSize {
		return "", nil, nil, false
	}

	s.pending = s.pending[1:]
	s.inflight = append(s.inflight, line)
	return line, s.port, s.listener, true
}

func (s *Serial) sendLoop(closeCh chan struct{}) {
	for {
		for {
			line, w, l, ok := s.next()
			if !ok {
				break
			}
			_, err := w.Write([]byte(line + "\n"))
			if err != nil {
				log.Println("ERROR: write to port:", err)
				return
			}
			if l != nil {
				l.CommandSent(line)
			}
		}

		select {
		case <-closeCh:
			return
		case <-s.wake:
		}
	}
}

func isAck(line string) bool {
	return line == "ok" || strings.HasPrefix(line, "error:")
}

func (s *Serial) readLoop(r io.Reader, closeCh chan struct{}) {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		select {
		case <-closeCh:
			return
		default:
		}

		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}

		s.mx.Lock()
		l := s.listener
		if isAck(line) && len(s.inflight) > 0 {
			s.inflight = s.inflight[1:]
		}
		s.mx.Unlock()

		if l == nil {
			continue
		}
		l.RawResponse(line)
		if isAck(line) {
			l.CommandResponse(line)
			s.notify()
		}
	}
	if err := scan.Err(); err != nil {
		select {
		case <-closeCh:
		default:
			log.Println("ERROR: read from port:", err)
		}
	}
}
