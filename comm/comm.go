// Package comm defines the byte-level transport to the machine and its
// implementations.
package comm

// Listener receives transport callbacks. Calls arrive from transport
// goroutines in wire order.
type Listener interface {
	// CommandSent fires once a queued line has been handed to the wire.
	CommandSent(text string)
	// CommandResponse fires when the device acknowledges the oldest
	// in-flight line ("ok" or "error:..." for grbl).
	CommandResponse(text string)
	// RawResponse fires for every line the device emits, including
	// acknowledgments and push messages.
	RawResponse(text string)
}

// Communicator is the minimal transport capability set required by the
// controller.
type Communicator interface {
	Open(port string, baud int) error
	Close() error

	// SendLine queues a newline-terminated command for transmission.
	SendLine(text string)
	// TriggerSend starts transmission of queued lines.
	TriggerSend()

	Pause()
	Resume()
	Cancel()

	HasActiveCommands() bool

	SetSingleStepMode(enabled bool)
	SingleStepMode() bool

	SetListener(l Listener)
}
