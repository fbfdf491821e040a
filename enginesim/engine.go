// Package enginesim implements an in-process stand-in for the out-of-process
// compositor engine. It speaks the real wire protocol over a Unix socket,
// assigns surface ids, and records every command it receives, which makes it
// usable both as a demo target and as a test double.
package enginesim

import (
	"context"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/neferent/streamlabs-obs/compositor"
)

// Command is one decoded message received from a client.
type Command struct {
	Type     compositor.MessageType
	Register compositor.Register
	Geometry compositor.SetGeometry
	Opacity  compositor.SetOpacity
	Frame    compositor.Frame
}

// Engine listens on a Unix domain socket and services overlay clients.
type Engine struct {
	addr     string
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup

	mu          sync.Mutex
	nextSurface int64
	rejectAll   bool
	commands    []Command
}

func New(addr string) *Engine {
	return &Engine{addr: addr, quit: make(chan struct{})}
}

// SetRejectAll makes every subsequent registration return the invalid
// surface id sentinel.
func (e *Engine) SetRejectAll(reject bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejectAll = reject
}

// Commands returns a copy of every command received so far.
func (e *Engine) Commands() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Command, len(e.commands))
	copy(out, e.commands)
	return out
}

// CommandsOfType filters received commands by message type.
func (e *Engine) CommandsOfType(t compositor.MessageType) []Command {
	var out []Command
	for _, cmd := range e.Commands() {
		if cmd.Type == t {
			out = append(out, cmd)
		}
	}
	return out
}

func (e *Engine) Start() error {
	if err := os.RemoveAll(e.addr); err != nil {
		return err
	}
	l, err := net.Listen("unix", e.addr)
	if err != nil {
		return err
	}
	e.listener = l
	e.wg.Add(1)
	go e.acceptLoop()
	return nil
}

func (e *Engine) acceptLoop() {
	defer e.wg.Done()
	for {
		conn, err := e.listener.Accept()
		if err != nil {
			select {
			case <-e.quit:
				return
			default:
			}
			continue
		}

		e.wg.Add(1)
		go func(c net.Conn) {
			defer e.wg.Done()
			defer c.Close()
			if err := e.serve(c); err != nil && err != io.EOF {
				log.Printf("enginesim: connection error: %v", err)
			}
		}(conn)
	}
}

func (e *Engine) serve(conn net.Conn) error {
	for {
		select {
		case <-e.quit:
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		hdr, payload, err := compositor.ReadMessage(conn)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		cmd := Command{Type: hdr.Type}
		switch hdr.Type {
		case compositor.MsgRegister:
			reg, err := compositor.DecodeRegister(payload)
			if err != nil {
				return err
			}
			cmd.Register = reg
			ack := compositor.RegisterAck{WindowHandle: reg.WindowHandle, SurfaceID: e.assign()}
			body, err := compositor.EncodeRegisterAck(ack)
			if err != nil {
				return err
			}
			ackHdr := compositor.Header{Version: compositor.Version, Type: compositor.MsgRegisterAck, Flags: compositor.FlagChecksum}
			if err := compositor.WriteMessage(conn, ackHdr, body); err != nil {
				return err
			}
		case compositor.MsgSetGeometry:
			geo, err := compositor.DecodeSetGeometry(payload)
			if err != nil {
				return err
			}
			cmd.Geometry = geo
		case compositor.MsgSetOpacity:
			op, err := compositor.DecodeSetOpacity(payload)
			if err != nil {
				return err
			}
			cmd.Opacity = op
		case compositor.MsgFrame:
			frame, err := compositor.DecodeFrame(payload)
			if err != nil {
				return err
			}
			cmd.Frame = frame
		case compositor.MsgPing:
			ping, err := compositor.DecodePing(payload)
			if err != nil {
				return err
			}
			body, err := compositor.EncodePong(compositor.Pong{Timestamp: ping.Timestamp})
			if err != nil {
				return err
			}
			pongHdr := compositor.Header{Version: compositor.Version, Type: compositor.MsgPong, Flags: compositor.FlagChecksum}
			if err := compositor.WriteMessage(conn, pongHdr, body); err != nil {
				return err
			}
		case compositor.MsgShow, compositor.MsgHide:
			// Nothing to decode.
		default:
			// Unknown messages are ignored.
		}

		e.mu.Lock()
		e.commands = append(e.commands, cmd)
		e.mu.Unlock()
	}
}

func (e *Engine) assign() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rejectAll {
		return compositor.InvalidSurfaceID
	}
	e.nextSurface++
	return e.nextSurface
}

func (e *Engine) Stop(ctx context.Context) error {
	close(e.quit)
	if e.listener != nil {
		_ = e.listener.Close()
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
