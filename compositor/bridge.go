package compositor

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

var (
	// ErrNotRunning is returned for any command issued while the engine
	// connection is down.
	ErrNotRunning = errors.New("compositor: engine not running")
	// ErrInvalidSurface is returned when the engine refuses a window handle.
	ErrInvalidSurface = errors.New("compositor: engine rejected window handle")
)

// Status reports whether the engine connection is up.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
)

func (s Status) String() string {
	if s == StatusRunning {
		return "running"
	}
	return "stopped"
}

// Bridge is the client side of the compositor engine connection. It holds no
// state beyond the open connection; surface-id associations belong to the
// persisted state store.
type Bridge struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
	seq  uint64
}

// NewBridge creates a bridge that will dial the engine's Unix socket at addr.
func NewBridge(addr string) *Bridge {
	return &Bridge{addr: addr}
}

// Start dials the engine. Calling Start while already running is a no-op.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return nil
	}
	conn, err := net.Dial("unix", b.addr)
	if err != nil {
		return fmt.Errorf("compositor: dial %s: %w", b.addr, err)
	}
	b.conn = conn
	return nil
}

// Stop closes the engine connection. Safe to call when already stopped.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// Status reports the current connection state.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return StatusStopped
	}
	return StatusRunning
}

// Register hands a native window handle to the engine and returns the surface
// id it assigns. An engine refusal (sentinel invalid id) is returned as
// ErrInvalidSurface; callers treat it as fatal.
func (b *Bridge) Register(handle uint64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return InvalidSurfaceID, ErrNotRunning
	}

	payload, err := EncodeRegister(Register{WindowHandle: handle})
	if err != nil {
		return InvalidSurfaceID, err
	}
	if err := b.writeLocked(MsgRegister, payload); err != nil {
		return InvalidSurfaceID, err
	}

	_ = b.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer func() { _ = b.conn.SetReadDeadline(time.Time{}) }()
	for {
		hdr, body, err := ReadMessage(b.conn)
		if err != nil {
			return InvalidSurfaceID, err
		}
		if hdr.Type != MsgRegisterAck {
			// Ignore unrelated traffic while waiting for the ack.
			continue
		}
		ack, err := DecodeRegisterAck(body)
		if err != nil {
			return InvalidSurfaceID, err
		}
		if ack.WindowHandle != handle {
			continue
		}
		if ack.SurfaceID == InvalidSurfaceID {
			return InvalidSurfaceID, fmt.Errorf("%w: handle %d", ErrInvalidSurface, handle)
		}
		return ack.SurfaceID, nil
	}
}

// SetGeometry positions and sizes a registered surface.
func (b *Bridge) SetGeometry(surfaceID int64, x, y, w, h int) error {
	payload, err := EncodeSetGeometry(SetGeometry{
		SurfaceID: surfaceID,
		X:         int32(x),
		Y:         int32(y),
		Width:     int32(w),
		Height:    int32(h),
	})
	if err != nil {
		return err
	}
	return b.write(MsgSetGeometry, payload)
}

// SetOpacity sets the blend alpha (0-255) of a registered surface.
func (b *Bridge) SetOpacity(surfaceID int64, opacity uint8) error {
	payload, err := EncodeSetOpacity(SetOpacity{SurfaceID: surfaceID, Opacity: opacity})
	if err != nil {
		return err
	}
	return b.write(MsgSetOpacity, payload)
}

// SubmitFrame streams one painted bitmap for a registered surface.
func (b *Bridge) SubmitFrame(surfaceID int64, w, h int, pixels []byte) error {
	payload, err := EncodeFrame(Frame{
		SurfaceID: surfaceID,
		Width:     uint32(w),
		Height:    uint32(h),
		Pixels:    pixels,
	})
	if err != nil {
		return err
	}
	return b.write(MsgFrame, payload)
}

// Show makes every registered surface visible on the compositing target.
func (b *Bridge) Show() error {
	return b.write(MsgShow, nil)
}

// Hide removes every registered surface from the compositing target.
func (b *Bridge) Hide() error {
	return b.write(MsgHide, nil)
}

func (b *Bridge) write(msgType MessageType, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotRunning
	}
	return b.writeLocked(msgType, payload)
}

func (b *Bridge) writeLocked(msgType MessageType, payload []byte) error {
	b.seq++
	hdr := Header{
		Version:  Version,
		Type:     msgType,
		Flags:    FlagChecksum,
		Sequence: b.seq,
	}
	return WriteMessage(b.conn, hdr, payload)
}
