package comm

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recListener struct {
	mx   sync.Mutex
	sent []string
	resp []string
	raw  []string
}

func (r *recListener) CommandSent(text string) {
	r.mx.Lock()
	r.sent = append(r.sent, text)
	r.mx.Unlock()
}

func (r *recListener) CommandResponse(text string) {
	r.mx.Lock()
	r.resp = append(r.resp, text)
	r.mx.Unlock()
}

func (r *recListener) RawResponse(text string) {
	r.mx.Lock()
	r.raw = append(r.raw, text)
	r.mx.Unlock()
}

type fakePort struct {
	mx  sync.Mutex
	buf bytes.Buffer
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.buf.Write(p)
}

func (f *fakePort) Read(p []byte) (int, error) { return 0, io.EOF }
func (f *fakePort) Close() error               { return nil }

func (f *fakePort) String() string {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.buf.String()
}

func TestIsAck(t *testing.T) {
	assert.True(t, isAck("ok"))
	assert.True(t, isAck("error:20"))
	assert.False(t, isAck("<Idle|MPos:0,0,0>"))
	assert.False(t, isAck("Grbl 1.1f ['$' for help]"))
	assert.False(t, isAck("okay"))
}

func TestSerialHoldUntilTrigger(t *testing.T) {
	s := NewSerial()
	s.port = &fakePort{}

	s.SendLine("G0X1")
	_, _, _, ok := s.next()
	assert.False(t, ok, "lines must be held until TriggerSend")

	s.TriggerSend()
	line, _, _, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, "G0X1", line)
	assert.True(t, s.HasActiveCommands())
}

func TestSerialBufferAccounting(t *testing.T) {
	s := NewSerial()
	s.port = &fakePort{}

	long := strings.Repeat("G", 100)
	s.SendLine(long)
	s.SendLine("G0X123456789012345678901234567890")
	s.TriggerSend()

	line, _, _, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, long, line)

	// 101 bytes in flight, the 34-byte line would overflow 128
	_, _, _, ok = s.next()
	assert.False(t, ok)

	// device ack frees the buffer
	s.mx.Lock()
	s.inflight = s.inflight[1:]
	s.mx.Unlock()
	_, _, _, ok = s.next()
	assert.True(t, ok)
}

func TestSerialSingleStep(t *testing.T) {
	s := NewSerial()
	s.port = &fakePort{}
	s.SetSingleStepMode(true)
	assert.True(t, s.SingleStepMode())

	s.SendLine("G0X1")
	s.SendLine("G0X2")
	s.TriggerSend()

	_, _, _, ok := s.next()
	require.True(t, ok)

	// the second line waits for the ack of the first
	_, _, _, ok = s.next()
	assert.False(t, ok)

	s.mx.Lock()
	s.inflight = nil
	s.mx.Unlock()
	line, _, _, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, "G0X2", line)
}

func TestSerialPauseBlocksNext(t *testing.T) {
	s := NewSerial()
	s.port = &fakePort{}
	s.SendLine("G0X1")
	s.TriggerSend()

	s.Pause()
	_, _, _, ok := s.next()
	assert.False(t, ok)

	s.Resume()
	_, _, _, ok = s.next()
	assert.True(t, ok)
}

func TestSerialCancelDropsPendingOnly(t *testing.T) {
	s := NewSerial()
	s.port = &fakePort{}
	s.SendLine("G0X1")
	s.TriggerSend()
	_, _, _, ok := s.next()
	require.True(t, ok)

	s.SendLine("G0X2")
	s.Cancel()

	_, _, _, ok = s.next()
	assert.False(t, ok, "pending lines are dropped")
	assert.True(t, s.HasActiveCommands(), "in-flight lines still expect responses")
}

func TestSerialReadLoop(t *testing.T) {
	s := NewSerial()
	rec := &recListener{}
	s.SetListener(rec)
	s.inflight = []string{"G0X1", "G0X2", "G0X3"}

	r := strings.NewReader("ok\r\n<Idle|MPos:0,0,0>\nerror:5\n\nok\n")
	s.readLoop(r, make(chan struct{}))

	assert.Equal(t, []string{"ok", "<Idle|MPos:0,0,0>", "error:5", "ok"}, rec.raw)
	assert.Equal(t, []string{"ok", "error:5", "ok"}, rec.resp)
	assert.Empty(t, s.inflight)
}

func TestSerialWriteRealtime(t *testing.T) {
	s := NewSerial()
	assert.ErrorIs(t, s.WriteRealtime('?'), errNotOpen)

	p := &fakePort{}
	s.port = p
	require.NoError(t, s.WriteRealtime('?'))
	require.NoError(t, s.WriteRealtime('!'))
	assert.Equal(t, "?!", p.String())
}
