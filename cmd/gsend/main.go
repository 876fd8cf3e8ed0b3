package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/cncio/gsend/comm"
	"github.com/cncio/gsend/control"
	"github.com/cncio/gsend/grbl"
	"github.com/cncio/gsend/spjs"
)

func main() {
	log.SetFlags(log.Lshortfile)

	port := flag.String("port", "/dev/ttyUSB0", "Port path (or name if using SPJS).")
	baud := flag.Int("baud", 115200, "Baud rate for the port.")
	spjsURL := flag.String("spjs", "", "Websocket URL of an SPJS server; empty uses a local serial port.")
	addr := flag.String("addr", ":9091", "Address to bind the gsend server to.")
	checkFile := flag.String("check", "", "Parse and simulate the gcode file, then exit.")
	flag.Parse()

	if *checkFile != "" {
		if err := checkGcode(*checkFile); err != nil {
			log.Fatal(err)
		}
		log.Println(*checkFile, "OK")
		return
	}

	var cm comm.Communicator
	var rt grbl.RealtimeWriter
	if *spjsURL != "" {
		cl := spjs.NewClient(*spjsURL)
		cm = comm.NewSPJS(cl, *port)
	} else {
		s := comm.NewSerial()
		cm = s
		rt = s
	}

	dev := grbl.NewDevice(rt)
	c := control.New(control.DefaultConfig(), cm, dev)
	dev.Bind(c)

	if err := c.Open(*port, *baud); err != nil {
		log.Fatal(err)
	}

	api := newAPI(c)

	err := http.ListenAndServe(*addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.Printf("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		api.ServeHTTP(w, req)
	}))
	if err != nil {
		log.Fatal(err)
	}
}
