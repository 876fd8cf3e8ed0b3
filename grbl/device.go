// Package grbl implements the device hooks and dialect behavior for
// grbl firmware.
package grbl

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cncio/gsend/control"
)

// grbl realtime command bytes
const (
	rtStatus     = '?'
	rtFeedHold   = '!'
	rtCycleStart = '~'
	rtSoftReset  = 0x18
)

// RealtimeWriter writes a single byte to the wire immediately, outside
// command flow control. Transports without realtime access leave it
// nil; the dependent operations degrade or report unsupported.
type RealtimeWriter interface {
	WriteRealtime(b byte) error
}

var errAlarmLock = errors.New("grbl is in alarm state, home or unlock first")

// Device provides grbl-specific hooks to a controller: status polling,
// push message parsing, homing and alarm operations.
type Device struct {
	c  *control.Controller
	rt RealtimeWriter

	mx      sync.Mutex
	last    Status
	alarm   bool
	open    bool
	polling bool

	ticker *time.Ticker
}

var _ control.Device = &Device{}

func NewDevice(rt RealtimeWriter) *Device {
	d := &Device{
		rt:      rt,
		polling: true,
		ticker:  time.NewTicker(200 * time.Millisecond),
	}
	go d.poll()
	return d
}

// Bind attaches the controller the device dispatches through. Must be
// called before opening the connection.
func (d *Device) Bind(c *control.Controller) {
	d.mx.Lock()
	d.c = c
	d.mx.Unlock()
}

func (d *Device) poll() {
	for range d.ticker.C {
		d.mx.Lock()
		active := d.open && d.polling && d.rt != nil
		d.mx.Unlock()
		if !active {
			continue
		}
		if err := d.rt.WriteRealtime(rtStatus); err != nil {
			log.Println("ERROR: status poll:", err)
		}
	}
}

// Status returns the last parsed status report.
func (d *Device) Status() Status {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.last
}

//// control.Device hooks ////

func (d *Device) ReadyToStream() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.alarm {
		return errAlarmLock
	}
	return nil
}

func (d *Device) PauseStreaming() error {
	if d.rt == nil {
		return nil
	}
	return d.rt.WriteRealtime(rtFeedHold)
}

func (d *Device) ResumeStreaming() error {
	if d.rt == nil {
		return nil
	}
	return d.rt.WriteRealtime(rtCycleStart)
}

func (d *Device) CancelBefore() error {
	// hold feed so clearing the queue doesn't leave motion running
	if d.rt != nil {
		return d.rt.WriteRealtime(rtFeedHold)
	}
	return nil
}

func (d *Device) CancelAfter() error { return nil }

func (d *Device) OpenAfter() error {
	d.mx.Lock()
	d.open = true
	d.mx.Unlock()
	return nil
}

func (d *Device) CloseBefore() error {
	d.mx.Lock()
	d.open = false
	d.mx.Unlock()
	return nil
}

func (d *Device) CloseAfter() error { return nil }

// RawResponse parses grbl push messages. Runs in the controller's
// serialized context, so it only uses dispatch helpers.
func (d *Device) RawResponse(line string) {
	switch {
	case strings.HasPrefix(line, "<"):
		d.mx.Lock()
		stat, err := parseStatus(d.last, line)
		if err == nil {
			d.last = *stat
			d.alarm = stat.State == "Alarm"
		}
		d.mx.Unlock()
		if err != nil {
			log.Println("ERROR: parse status:", err)
			return
		}
		d.c.DispatchStatus(stat.State, stat.MPos, stat.WPos())
	case strings.HasPrefix(line, "Grbl"):
		d.c.Console("**** "+line+" ****\n", false)
	case strings.HasPrefix(line, "ALARM"):
		d.mx.Lock()
		d.alarm = true
		d.mx.Unlock()
		d.c.ConsoleError(line)
	case strings.HasPrefix(line, "["):
		d.c.Console(line+"\n", true)
	case line == "ok", strings.HasPrefix(line, "error:"):
		// acknowledgments are handled by the transport
	default:
		d.c.Console(line+"\n", true)
	}
}

//// optional capabilities ////

func (d *Device) StatusUpdatesChanged(enabled bool) {
	d.mx.Lock()
	d.polling = enabled
	d.mx.Unlock()
}

func (d *Device) StatusRateChanged(ms int) {
	if ms <= 0 {
		return
	}
	d.ticker.Reset(time.Duration(ms) * time.Millisecond)
}

func (d *Device) HomingCycle() error {
	return d.c.Send("$H")
}

func (d *Device) ReturnToHome() error {
	err := d.c.Send("G91G28Z0")
	if err != nil {
		return err
	}
	return d.c.Send("G90G28X0Y0")
}

func (d *Device) ResetCoordinatesToZero() error {
	return d.c.Send("G92X0Y0Z0")
}

func (d *Device) KillAlarmLock() error {
	return d.c.Send("$X")
}

func (d *Device) ToggleCheckMode() error {
	return d.c.Send("$C")
}

func (d *Device) ViewParserState() error {
	return d.c.Send("$G")
}

func (d *Device) SoftReset() error {
	if d.rt == nil {
		return control.ErrUnsupported
	}
	return d.rt.WriteRealtime(rtSoftReset)
}
