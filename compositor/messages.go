package compositor

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var (
	errStringTooLong = errors.New("compositor: string exceeds 64KB limit")
	errPayloadShort  = errors.New("compositor: payload too short")
)

// InvalidSurfaceID is the sentinel the engine returns when it refuses to
// register a window handle.
const InvalidSurfaceID int64 = -1

// Register asks the engine to accept a native window handle as an overlay
// surface.
type Register struct {
	WindowHandle uint64
}

// RegisterAck returns the surface id assigned to a registered handle, or
// InvalidSurfaceID on refusal.
type RegisterAck struct {
	WindowHandle uint64
	SurfaceID    int64
}

// SetGeometry positions and sizes a registered surface.
type SetGeometry struct {
	SurfaceID int64
	X         int32
	Y         int32
	Width     int32
	Height    int32
}

// SetOpacity adjusts the blend alpha of a registered surface.
type SetOpacity struct {
	SurfaceID int64
	Opacity   uint8
}

// Frame carries one painted bitmap for a registered surface. Pixels is
// tightly packed RGBA, Width*Height*4 bytes.
type Frame struct {
	SurfaceID int64
	Width     uint32
	Height    uint32
	Pixels    []byte
}

// Ping/Pong keep the connection alive and double as a liveness probe.
type Ping struct {
	Timestamp int64
}

type Pong struct {
	Timestamp int64
}

// ErrorFrame communicates engine-side errors.
type ErrorFrame struct {
	Code    uint16
	Message string
}

func encodeString(buf *bytes.Buffer, value string) error {
	if len(value) > 0xFFFF {
		return errStringTooLong
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(value))); err != nil {
		return err
	}
	if len(value) > 0 {
		if _, err := buf.WriteString(value); err != nil {
			return err
		}
	}
	return nil
}

func decodeString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, errPayloadShort
	}
	length := binary.LittleEndian.Uint16(b[:2])
	b = b[2:]
	if uint16(len(b)) < length {
		return "", nil, errPayloadShort
	}
	return string(b[:length]), b[length:], nil
}

func EncodeRegister(r Register) ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, r.WindowHandle)
	return buf, nil
}

func DecodeRegister(b []byte) (Register, error) {
	var r Register
	if len(b) < 8 {
		return r, errPayloadShort
	}
	r.WindowHandle = binary.LittleEndian.Uint64(b[:8])
	return r, nil
}

func EncodeRegisterAck(a RegisterAck) ([]byte, error) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], a.WindowHandle)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(a.SurfaceID))
	return buf, nil
}

func DecodeRegisterAck(b []byte) (RegisterAck, error) {
	var a RegisterAck
	if len(b) < 16 {
		return a, errPayloadShort
	}
	a.WindowHandle = binary.LittleEndian.Uint64(b[0:8])
	a.SurfaceID = int64(binary.LittleEndian.Uint64(b[8:16]))
	return a, nil
}

func EncodeSetGeometry(g SetGeometry) ([]byte, error) {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(g.SurfaceID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(g.X))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.Y))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(g.Width))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(g.Height))
	return buf, nil
}

func DecodeSetGeometry(b []byte) (SetGeometry, error) {
	var g SetGeometry
	if len(b) < 24 {
		return g, errPayloadShort
	}
	g.SurfaceID = int64(binary.LittleEndian.Uint64(b[0:8]))
	g.X = int32(binary.LittleEndian.Uint32(b[8:12]))
	g.Y = int32(binary.LittleEndian.Uint32(b[12:16]))
	g.Width = int32(binary.LittleEndian.Uint32(b[16:20]))
	g.Height = int32(binary.LittleEndian.Uint32(b[20:24]))
	return g, nil
}

func EncodeSetOpacity(o SetOpacity) ([]byte, error) {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(o.SurfaceID))
	buf[8] = o.Opacity
	return buf, nil
}

func DecodeSetOpacity(b []byte) (SetOpacity, error) {
	var o SetOpacity
	if len(b) < 9 {
		return o, errPayloadShort
	}
	o.SurfaceID = int64(binary.LittleEndian.Uint64(b[0:8]))
	o.Opacity = b[8]
	return o, nil
}

func EncodeFrame(f Frame) ([]byte, error) {
	buf := make([]byte, 16+len(f.Pixels))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(f.SurfaceID))
	binary.LittleEndian.PutUint32(buf[8:12], f.Width)
	binary.LittleEndian.PutUint32(buf[12:16], f.Height)
	copy(buf[16:], f.Pixels)
	return buf, nil
}

func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if len(b) < 16 {
		return f, errPayloadShort
	}
	f.SurfaceID = int64(binary.LittleEndian.Uint64(b[0:8]))
	f.Width = binary.LittleEndian.Uint32(b[8:12])
	f.Height = binary.LittleEndian.Uint32(b[12:16])
	f.Pixels = append([]byte(nil), b[16:]...)
	return f, nil
}

func EncodePing(p Ping) ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(p.Timestamp))
	return buf, nil
}

func DecodePing(b []byte) (Ping, error) {
	var p Ping
	if len(b) < 8 {
		return p, errPayloadShort
	}
	p.Timestamp = int64(binary.LittleEndian.Uint64(b[:8]))
	return p, nil
}

func EncodePong(p Pong) ([]byte, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(p.Timestamp))
	return buf, nil
}

func DecodePong(b []byte) (Pong, error) {
	var p Pong
	if len(b) < 8 {
		return p, errPayloadShort
	}
	p.Timestamp = int64(binary.LittleEndian.Uint64(b[:8]))
	return p, nil
}

func EncodeErrorFrame(e ErrorFrame) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(e.Message)))
	if err := binary.Write(buf, binary.LittleEndian, e.Code); err != nil {
		return nil, err
	}
	if err := encodeString(buf, e.Message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeErrorFrame(b []byte) (ErrorFrame, error) {
	var e ErrorFrame
	if len(b) < 2 {
		return e, errPayloadShort
	}
	e.Code = binary.LittleEndian.Uint16(b[:2])
	msg, _, err := decodeString(b[2:])
	if err != nil {
		return e, err
	}
	e.Message = msg
	return e, nil
}
