package main

import (
	"os"

	cnc "github.com/joushou/gocnc/gcode"
	"github.com/joushou/gocnc/vm"
)

// checkGcode parses the file and runs it through a simulated machine,
// catching errors before anything reaches hardware.
func checkGcode(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := cnc.Parse(string(data))
	if err != nil {
		return err
	}

	var m vm.Machine
	m.Init()
	return m.Process(doc)
}
