// Command ossim is the simulator's entry point: it parses the command
// line, loads the config and metadata files, and dispatches to
// config display, metadata display, and/or the simulation run per the
// requested switches.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/oscore/ossim/config"
	"github.com/oscore/ossim/metadata"
	"github.com/oscore/ossim/opcode"
	"github.com/oscore/ossim/output"
	"github.com/oscore/ossim/sim"
	"github.com/oscore/ossim/timer"
	"github.com/oscore/ossim/visual"
)

// display is set by the -display switch: open a live window showing the
// memory map and process states while -rs runs.
var display bool

func main() {
	var args []string
	for _, arg := range os.Args[1:] {
		if arg == "-display" {
			display = true
			continue
		}
		args = append(args, arg)
	}

	cl, err := config.ParseArgs(args)
	if err != nil {
		fmt.Printf("%v, program aborted\n", err)
		return
	}

	cfg, err := config.Load(cl.ConfigPath)
	if err != nil {
		fmt.Printf("%v, program aborted\n", err)
		return
	}

	if cl.ShowConfig {
		fmt.Print(config.Display(cfg))
	}

	head, err2 := metadata.Load(cfg.MetaDataPath)
	if err2 != nil {
		fmt.Printf("%v, program aborted\n", err2)
		return
	}

	sink := output.New(cfg.LogTo, timer.New())

	if cl.ShowMetadata {
		metadata.Display(head, sink)
	}

	if !cl.RunSim {
		return
	}

	if display {
		runWithDisplay(cfg, head, sink)
		return
	}

	run(cfg, head, sink, visual.NewNull())
}

// run executes the simulation with the given renderer, installing a
// SIGINT handler that requests a best-effort early stop.
func run(cfg *config.Config, head *opcode.OpCode, sink *output.Sink, render sim.Renderer) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			cancel()
		}
	}()

	s := sim.New(cfg, head, sink)
	s.Attach(render)
	if err := s.Run(ctx); err != nil {
		fmt.Println(err)
	}
	render.Close()
}

// runWithDisplay hijacks the calling thread to pump the SDL event/dispatch
// loop, the same sdl.Main/sdl.Do split vcs_main.go uses, running the
// simulation itself in the goroutine sdl.Main launches.
func runWithDisplay(cfg *config.Config, head *opcode.OpCode, sink *output.Sink) {
	sdl.Main(func() {
		render, err := visual.NewSDLWindow(640, 360, cfg.MemAvailable)
		if err != nil {
			fmt.Println("can't open display window:", err, "- continuing without it")
			render = visual.NewNull()
		}
		run(cfg, head, sink, render)
	})
}
