package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame so a garbled length prefix cannot trigger
// an unbounded allocation.
const MaxFrameSize = 64 << 20

// WriteFrame writes a 4-byte big-endian length prefix followed by frame. Both
// parts go out in a single Write call.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(frame), MaxFrameSize)
	}
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxFrameSize {
		return nil, protocolErrorf("frame length %d exceeds limit of %d", size, MaxFrameSize)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// InitPayload describes the environment a worker must build. It is sent once,
// as JSON in the first frame, before any binary message is exchanged.
type InitPayload struct {
	Env      string             `json:"env"`
	Agents   int                `json:"agents,omitempty"`
	MaxSteps int                `json:"max_steps,omitempty"`
	Params   map[string]float64 `json:"params,omitempty"`
}

func EncodeInit(p InitPayload) ([]byte, error) {
	return json.Marshal(p)
}

func DecodeInit(b []byte) (InitPayload, error) {
	var p InitPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode init payload: %w", err)
	}
	if p.Env == "" {
		return p, fmt.Errorf("init payload names no environment")
	}
	return p, nil
}
