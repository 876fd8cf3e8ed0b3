// Package control implements the host-side streaming controller: the
// command queues, the streaming session state machine, and the event
// surface observers attach to.
package control

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cncio/gsend/comm"
	"github.com/cncio/gsend/command"
	"github.com/cncio/gsend/coord"
	"github.com/cncio/gsend/motion"
)

// Controller owns the five command queues and the streaming session.
// Every mutating call, caller-driven or transport-driven, is funneled
// through a single owner goroutine so transport acknowledgments never
// race queue mutation.
type Controller struct {
	comm comm.Communicator
	dev  Device
	disp *dispatcher

	ops chan func()

	cfg     Config
	creator command.Creator

	open        bool
	isStreaming bool
	paused      bool
	streamStart time.Time
	streamStop  time.Time
	streamName  string

	mstate motion.State

	// cached separately from queue sizes: cancel clears queues but
	// must not corrupt the session accounting
	numCommands          int
	numCommandsSent      int
	numCommandsSkipped   int
	numCommandsCompleted int

	prep             []*command.Command
	outgoing         []*command.Command
	awaitingResponse []*command.Command
	completed        []*command.Command
	errored          []*command.Command
}

// New builds a controller around an explicit transport and device; no
// default wiring exists.
func New(cfg Config, cm comm.Communicator, dev Device) *Controller {
	if cm == nil || dev == nil {
		panic("control: New requires a communicator and a device")
	}
	c := &Controller{
		comm:   cm,
		dev:    dev,
		disp:   &dispatcher{},
		ops:    make(chan func()),
		cfg:    cfg,
		mstate: motion.NewState(),
	}
	cm.SetListener(c)
	go c.run()
	return c
}

func (c *Controller) run() {
	for fn := range c.ops {
		fn()
	}
}

func (c *Controller) do(fn func() error) error {
	done := make(chan error, 1)
	c.ops <- func() { done <- fn() }
	return <-done
}

// Register adds an event listener. Safe from any goroutine.
func (c *Controller) Register(l Listener) { c.disp.Register(l) }

// Unregister removes a previously registered listener.
func (c *Controller) Unregister(l Listener) { c.disp.Unregister(l) }

// DispatchStatus publishes a machine status event. Intended for device
// implementations parsing status reports.
func (c *Controller) DispatchStatus(state string, machine, work coord.Point) {
	c.disp.statusUpdate(state, machine, work)
}

// Console publishes an informational console event.
func (c *Controller) Console(msg string, verbose bool) {
	c.disp.console(msg, verbose)
}

// ConsoleError publishes an error-level console event.
func (c *Controller) ConsoleError(msg string) {
	c.disp.console("[Error] "+msg, true)
}

// Open opens the transport. The optional device open hook runs after a
// successful open; if it fails the transport is closed again.
func (c *Controller) Open(port string, baud int) error {
	return c.do(func() error {
		if c.open {
			return ErrAlreadyOpen
		}
		err := c.comm.Open(port, baud)
		if err != nil {
			return err
		}
		c.open = true

		if o, ok := c.dev.(Opener); ok {
			if err = o.OpenAfter(); err != nil {
				c.comm.Close()
				c.open = false
				return err
			}
		}

		c.disp.console(fmt.Sprintf("**** Connected to %s @ %d baud ****\n", port, baud), false)
		return nil
	})
}

// Close shuts the transport down, flushing all queues and restarting
// command numbering. Closing an already-closed controller is a no-op.
// The queue flush happens even when the close hooks fail.
func (c *Controller) Close() error {
	return c.do(func() error {
		if !c.open {
			return nil
		}
		hookErr := c.dev.CloseBefore()

		c.disp.console("**** Connection closed ****\n", false)

		c.flushQueues()
		c.creator.Reset()
		commErr := c.comm.Close()
		c.open = false
		c.isStreaming = false
		c.paused = false

		afterErr := c.dev.CloseAfter()

		if hookErr != nil {
			return hookErr
		}
		if commErr != nil {
			return commErr
		}
		return afterErr
	})
}

func (c *Controller) IsOpen() bool {
	var open bool
	c.do(func() error { open = c.open; return nil })
	return open
}

func (c *Controller) flushQueues() {
	c.prep = nil
	c.outgoing = nil
	c.awaitingResponse = nil
	c.completed = nil
	c.errored = nil
}

// Append preprocesses one raw line and queues the results for
// streaming. A command that exceeds MaxCommandLength is rejected
// without aborting the rest of the batch; its sequence number stays
// consumed.
func (c *Controller) Append(raw string) error {
	return c.do(func() error { return c.appendLine(raw) })
}

// AppendFile queues every line of the file. The file name becomes the
// stream label. Lines failing validation are rejected individually; the
// first such error is returned after the whole file is queued.
func (c *Controller) AppendFile(path string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	return c.do(func() error {
		c.streamName = filepath.Base(path)
		var firstErr error
		for _, line := range lines {
			if err := c.appendLine(line); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		lines = append(lines, scan.Text())
	}
	return lines, scan.Err()
}

func (c *Controller) appendLine(raw string) error {
	texts, next, comment := preprocess(raw, c.cfg, c.mstate)
	c.mstate = next
	if comment != "" {
		c.disp.commandComment(comment)
	}

	if len(texts) == 0 {
		// reduced to nothing: queue as a skip so stream accounting
		// and listener sequencing still see it
		c.prep = append(c.prep, c.creator.Create(""))
		return nil
	}

	var firstErr error
	for _, text := range texts {
		cmd := c.creator.Create(text)
		if c.cfg.MaxCommandLength > 0 && len(text) > c.cfg.MaxCommandLength {
			err := &CommandTooLongError{
				Number: cmd.Number,
				Length: len(text),
				Max:    c.cfg.MaxCommandLength,
				Text:   text,
			}
			c.ConsoleError(err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.prep = append(c.prep, cmd)
	}
	return firstErr
}

// Send queues a single command for immediate transmission, outside any
// prep-queue stream.
func (c *Controller) Send(text string) error {
	return c.do(func() error {
		if !c.open {
			return ErrNotOpen
		}
		cmd := c.creator.Create(text)
		c.outgoing = append(c.outgoing, cmd)
		c.disp.commandQueued(cmd)
		c.sendToComm(cmd.Text)
		return nil
	})
}

func (c *Controller) sendToComm(text string) {
	c.comm.SendLine(text)
	c.comm.TriggerSend()
}

// BeginStreaming drains the prep queue to the transport. It is
// synchronous for the duration of the drain; transmission and
// completion remain asynchronous.
func (c *Controller) BeginStreaming() error {
	return c.do(func() error { return c.beginStream(nil) })
}

// SaveProcessed drains the prep queue to w instead of the transport: a
// dry run of the preprocessed program. The transport is never touched.
func (c *Controller) SaveProcessed(w io.Writer) error {
	return c.do(func() error { return c.beginStream(w) })
}

func (c *Controller) beginStream(dryRun io.Writer) error {
	if c.isStreaming {
		return ErrAlreadyStreaming
	}
	if dryRun == nil {
		// connection checked before the device hook so the hook can
		// rely on an open transport
		if !c.open {
			return ErrNotOpen
		}
		if err := c.dev.ReadyToStream(); err != nil {
			return err
		}
		if len(c.outgoing) > 0 || len(c.awaitingResponse) > 0 {
			return fmt.Errorf("%w (controller)", ErrActiveCommands)
		}
		if c.comm.HasActiveCommands() {
			return fmt.Errorf("%w (communicator)", ErrActiveCommands)
		}
	}
	if len(c.prep) == 0 {
		return ErrNothingQueued
	}

	c.isStreaming = true
	c.paused = false
	c.streamStop = time.Time{}
	c.streamStart = time.Now()
	c.numCommands = 0
	c.numCommandsSent = 0
	c.numCommandsSkipped = 0
	c.numCommandsCompleted = 0
	c.mstate = motion.NewState()

	for len(c.prep) > 0 {
		cmd := c.prep[0]
		c.prep = c.prep[1:]
		c.numCommands++

		if dryRun != nil {
			fmt.Fprintln(dryRun, cmd.Text)
			c.numCommandsSent++
			continue
		}
		c.queueForComm(cmd)
	}

	c.disp.postProcessCount(c.numCommands)

	if dryRun != nil {
		c.streamDone(true)
	} else {
		// an all-skipped stream finishes without any response arriving
		c.checkStreamDone()
	}
	return nil
}

// queueForComm moves one prep command to the next stage. Zero length
// commands are skipped: committed straight to completed, never touching
// outgoing or awaiting-response.
func (c *Controller) queueForComm(cmd *command.Command) {
	if cmd.Text == "" {
		c.disp.console(fmt.Sprintf("Skipping command #%d\n", cmd.Number), false)
		cmd.SetResponse("<skipped by application>")
		cmd.Skipped = true
		c.disp.commandQueued(cmd)
		c.finalize(cmd)
		return
	}

	c.outgoing = append(c.outgoing, cmd)
	c.disp.commandQueued(cmd)
	c.sendToComm(cmd.Text)
}

// finalize commits a command to the completed list, updates the session
// counters and runs the end-of-stream check.
func (c *Controller) finalize(cmd *command.Command) {
	c.completed = append(c.completed, cmd)
	if c.isStreaming {
		if cmd.Skipped {
			c.numCommandsSkipped++
		} else {
			c.numCommandsCompleted++
		}
	}
	c.disp.commandComplete(cmd)
	c.checkStreamDone()
}

func (c *Controller) checkStreamDone() {
	if !c.isStreaming {
		return
	}
	if len(c.prep) > 0 || len(c.outgoing) > 0 || len(c.awaitingResponse) > 0 {
		return
	}
	success := c.numCommands == c.numCommandsSent+c.numCommandsSkipped
	c.streamDone(success)
}

func (c *Controller) streamDone(success bool) {
	name := c.streamName
	if name == "" {
		name = "queued commands"
	}
	c.disp.console("\n**** Finished sending file. ****\n\n", false)
	c.streamStop = time.Now()
	c.isStreaming = false
	c.disp.streamComplete(name, success)
}

// Pause halts transmission. Appends are still accepted while paused.
func (c *Controller) Pause() error {
	return c.do(func() error {
		c.disp.console("\n**** Pausing file transfer. ****\n\n", false)
		if err := c.dev.PauseStreaming(); err != nil {
			return err
		}
		c.paused = true
		c.comm.Pause()
		return nil
	})
}

func (c *Controller) Resume() error {
	return c.do(func() error {
		c.disp.console("\n**** Resuming file transfer. ****\n\n", false)
		if err := c.dev.ResumeStreaming(); err != nil {
			return err
		}
		c.paused = false
		c.comm.Resume()
		return nil
	})
}

// Cancel clears in-flight transport state. The prep queue is preserved
// so a replacement job already being appended survives the cancel.
func (c *Controller) Cancel() error {
	return c.do(func() error {
		c.disp.console("\n**** Canceling file transfer. ****\n\n", false)
		if err := c.dev.CancelBefore(); err != nil {
			return err
		}

		c.outgoing = nil
		c.completed = nil
		c.errored = nil

		// a canceled session ends here; prep stays for the next stream
		if c.isStreaming {
			c.isStreaming = false
			c.paused = false
			c.streamStop = time.Now()
		}

		c.comm.Cancel()
		return c.dev.CancelAfter()
	})
}

// CommandSent is the transport acknowledgment that the oldest outgoing
// line went out on the wire.
func (c *Controller) CommandSent(text string) {
	c.do(func() error {
		if len(c.outgoing) == 0 {
			c.ConsoleError("sent-ack with no outgoing command: " + text)
			return nil
		}
		cmd := c.outgoing[0]
		c.outgoing = c.outgoing[1:]
		cmd.Sent = true
		if c.isStreaming {
			c.numCommandsSent++
		}

		if cmd.Text != text {
			// transports may reformat; diagnostic only
			c.ConsoleError(fmt.Sprintf("command <%s> does not equal expected command <%s>", cmd.Text, text))
		}

		c.awaitingResponse = append(c.awaitingResponse, cmd)
		c.disp.commandSent(cmd)
		return nil
	})
}

// CommandResponse attaches a device response to the oldest awaiting
// command and finalizes it. A response with nothing awaiting is a
// protocol error.
func (c *Controller) CommandResponse(text string) {
	err := c.do(func() error {
		if len(c.awaitingResponse) == 0 {
			return ErrUnexpectedResponse
		}
		cmd := c.awaitingResponse[0]
		c.awaitingResponse = c.awaitingResponse[1:]
		cmd.SetResponse(text)
		c.finalize(cmd)
		return nil
	})
	if err != nil {
		c.ConsoleError(err.Error() + ": " + text)
		log.Println("ERROR:", err, text)
	}
}

// RawResponse forwards every transport line to the device for
// firmware-specific parsing.
func (c *Controller) RawResponse(text string) {
	c.do(func() error {
		c.dev.RawResponse(text)
		return nil
	})
}

var _ comm.Listener = &Controller{}

//// Session metadata ////

func (c *Controller) IsStreaming() bool {
	var v bool
	c.do(func() error { v = c.isStreaming; return nil })
	return v
}

func (c *Controller) IsPaused() bool {
	var v bool
	c.do(func() error { v = c.paused; return nil })
	return v
}

// SendDuration is the run time of the active send, the total duration
// of the last send, or zero when nothing was ever sent.
func (c *Controller) SendDuration() time.Duration {
	var d time.Duration
	c.do(func() error {
		switch {
		case !c.isStreaming:
			d = c.streamStop.Sub(c.streamStart)
			if c.streamStart.IsZero() {
				d = 0
			}
		case c.streamStart.IsZero():
			d = 0
		default:
			d = time.Since(c.streamStart)
		}
		return nil
	})
	return d
}

func (c *Controller) RowsInSend() int {
	var v int
	c.do(func() error { v = c.numCommands; return nil })
	return v
}

func (c *Controller) RowsSent() int {
	var v int
	c.do(func() error { v = c.numCommandsSent; return nil })
	return v
}

func (c *Controller) RowsRemaining() int {
	var v int
	c.do(func() error {
		v = c.numCommands - c.numCommandsCompleted - c.numCommandsSkipped
		return nil
	})
	return v
}

//// Settings ////

func (c *Controller) Config() Config {
	var cfg Config
	c.do(func() error { cfg = c.cfg; return nil })
	return cfg
}

func (c *Controller) SetSpeedOverride(v float64) {
	c.do(func() error { c.cfg.SpeedOverride = v; return nil })
}

func (c *Controller) SetMaxCommandLength(v int) {
	c.do(func() error { c.cfg.MaxCommandLength = v; return nil })
}

func (c *Controller) SetTruncateDecimalLength(v int) {
	c.do(func() error { c.cfg.TruncateDecimalLength = v; return nil })
}

func (c *Controller) SetRemoveAllWhitespace(v bool) {
	c.do(func() error { c.cfg.RemoveAllWhitespace = v; return nil })
}

func (c *Controller) SetConvertArcsToLines(v bool) {
	c.do(func() error { c.cfg.ConvertArcsToLines = v; return nil })
}

func (c *Controller) SetSmallArcThreshold(v float64) {
	c.do(func() error { c.cfg.SmallArcThreshold = v; return nil })
}

func (c *Controller) SetSmallArcSegmentLength(v float64) {
	c.do(func() error { c.cfg.SmallArcSegmentLength = v; return nil })
}

// SetStatusUpdatesEnabled notifies the device only on an actual change.
func (c *Controller) SetStatusUpdatesEnabled(v bool) {
	c.do(func() error {
		if c.cfg.StatusUpdatesEnabled == v {
			return nil
		}
		c.cfg.StatusUpdatesEnabled = v
		if sc, ok := c.dev.(StatusConfig); ok {
			sc.StatusUpdatesChanged(v)
		}
		return nil
	})
}

// SetStatusUpdateRate notifies the device only on an actual change.
func (c *Controller) SetStatusUpdateRate(ms int) {
	c.do(func() error {
		if c.cfg.StatusUpdateRate == ms {
			return nil
		}
		c.cfg.StatusUpdateRate = ms
		if sc, ok := c.dev.(StatusConfig); ok {
			sc.StatusRateChanged(ms)
		}
		return nil
	})
}

func (c *Controller) SetSingleStepMode(v bool) { c.comm.SetSingleStepMode(v) }
func (c *Controller) SingleStepMode() bool     { return c.comm.SingleStepMode() }

//// Device operations ////

func (c *Controller) HomingCycle() error {
	if d, ok := c.dev.(Homer); ok {
		return d.HomingCycle()
	}
	return ErrUnsupported
}

func (c *Controller) ReturnToHome() error {
	if d, ok := c.dev.(Homer); ok {
		return d.ReturnToHome()
	}
	return ErrUnsupported
}

func (c *Controller) ResetCoordinatesToZero() error {
	if d, ok := c.dev.(Zeroer); ok {
		return d.ResetCoordinatesToZero()
	}
	return ErrUnsupported
}

func (c *Controller) KillAlarmLock() error {
	if d, ok := c.dev.(AlarmControl); ok {
		return d.KillAlarmLock()
	}
	return ErrUnsupported
}

func (c *Controller) ToggleCheckMode() error {
	if d, ok := c.dev.(CheckModer); ok {
		return d.ToggleCheckMode()
	}
	return ErrUnsupported
}

func (c *Controller) ViewParserState() error {
	if d, ok := c.dev.(ParserStateViewer); ok {
		return d.ViewParserState()
	}
	return ErrUnsupported
}

func (c *Controller) SoftReset() error {
	if d, ok := c.dev.(SoftResetter); ok {
		return d.SoftReset()
	}
	return ErrUnsupported
}
