package control

import (
	"log"
	"sync"

	"github.com/cncio/gsend/command"
	"github.com/cncio/gsend/coord"
)

// A Listener observes controller lifecycle events. Dispatch is
// synchronous and ordered; a listener that panics is logged and the
// remaining listeners still run.
type Listener interface {
	StatusUpdate(state string, machine, work coord.Point)
	ConsoleMessage(msg string, verbose bool)
	StreamComplete(name string, success bool)
	CommandQueued(c *command.Command)
	CommandSent(c *command.Command)
	CommandComplete(c *command.Command)
	CommandComment(comment string)
	PostProcessCount(rows int)
}

type dispatcher struct {
	mx        sync.Mutex
	listeners []Listener
}

func (d *dispatcher) Register(l Listener) {
	d.mx.Lock()
	d.listeners = append(d.listeners, l)
	d.mx.Unlock()
}

func (d *dispatcher) Unregister(l Listener) {
	d.mx.Lock()
	for i, reg := range d.listeners {
		if reg == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			break
		}
	}
	d.mx.Unlock()
}

func (d *dispatcher) each(fn func(Listener)) {
	d.mx.Lock()
	ls := make([]Listener, len(d.listeners))
	copy(ls, d.listeners)
	d.mx.Unlock()

	for _, l := range ls {
		notify(l, fn)
	}
}

func notify(l Listener, fn func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("ERROR: listener panic:", r)
		}
	}()
	fn(l)
}

func (d *dispatcher) statusUpdate(state string, machine, work coord.Point) {
	d.each(func(l Listener) { l.StatusUpdate(state, machine, work) })
}

func (d *dispatcher) console(msg string, verbose bool) {
	d.each(func(l Listener) { l.ConsoleMessage(msg, verbose) })
}

func (d *dispatcher) streamComplete(name string, success bool) {
	d.each(func(l Listener) { l.StreamComplete(name, success) })
}

func (d *dispatcher) commandQueued(c *command.Command) {
	d.each(func(l Listener) { l.CommandQueued(c) })
}

func (d *dispatcher) commandSent(c *command.Command) {
	d.each(func(l Listener) { l.CommandSent(c) })
}

func (d *dispatcher) commandComplete(c *command.Command) {
	d.each(func(l Listener) { l.CommandComplete(c) })
}

func (d *dispatcher) commandComment(comment string) {
	d.each(func(l Listener) { l.CommandComment(comment) })
}

func (d *dispatcher) postProcessCount(rows int) {
	d.each(func(l Listener) { l.PostProcessCount(rows) })
}
