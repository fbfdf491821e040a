package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neferent/streamlabs-obs/enginesim"
)

func main() {
	socketPath := flag.String("socket", "/tmp/slobs-compositor.sock", "Unix socket path")
	reject := flag.Bool("reject", false, "Reject every registration with the invalid surface id")
	flag.Parse()

	engine := enginesim.New(*socketPath)
	engine.SetRejectAll(*reject)

	if err := engine.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Compositor simulator listening on %s\n", *socketPath)
	fmt.Println("Run overlayd against this socket to exercise the overlay lifecycle.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = engine.Stop(ctx)

	fmt.Println("Engine stopped")
}
