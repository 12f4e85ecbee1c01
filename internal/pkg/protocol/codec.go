package protocol

import (
	"encoding/binary"
	"math"
)

// Pack encodes a header followed by payload elements.
func Pack(h Header, payload []float32) []byte {
	buf := make([]byte, (HeaderLen+len(payload))*ElementSize)
	for i, v := range h {
		binary.LittleEndian.PutUint32(buf[i*ElementSize:], math.Float32bits(v))
	}
	off := HeaderLen * ElementSize
	for i, v := range payload {
		binary.LittleEndian.PutUint32(buf[off+i*ElementSize:], math.Float32bits(v))
	}
	return buf
}

// Unpack splits raw bytes into header and payload elements. The header is not
// validated against the known kinds, see Decode for that.
func Unpack(b []byte) (Header, []float32, error) {
	var h Header
	if len(b)%ElementSize != 0 {
		return h, nil, protocolErrorf("message length %d is not a multiple of %d", len(b), ElementSize)
	}
	n := len(b) / ElementSize
	if n < HeaderLen {
		return h, nil, protocolErrorf("message has %d elements, header needs %d", n, HeaderLen)
	}
	for i := range h {
		h[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*ElementSize:]))
	}
	payload := make([]float32, n-HeaderLen)
	off := HeaderLen * ElementSize
	for i := range payload {
		payload[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off+i*ElementSize:]))
	}
	return h, payload, nil
}

// Encode serializes a typed message.
func Encode(msg Message) []byte {
	switch m := msg.(type) {
	case StepData:
		shape := m.Shape
		if shape == nil {
			shape = m.NextState.Shape
		}
		payload := make([]float32, 0, 2+len(shape)+len(m.Rewards)+len(m.NextState.Data))
		payload = append(payload, boolElement(m.Done), float32(len(shape)))
		payload = appendDims(payload, shape)
		payload = append(payload, m.Rewards...)
		payload = append(payload, m.NextState.Data...)
		return Pack(EnvStepDataHeader, payload)
	case ResetState:
		shape := m.Shape
		if shape == nil {
			shape = m.State.Shape
		}
		payload := make([]float32, 0, 1+len(shape)+len(m.State.Data))
		payload = append(payload, float32(len(shape)))
		payload = appendDims(payload, shape)
		payload = append(payload, m.State.Data...)
		return Pack(EnvResetStateHeader, payload)
	case ShapesRequest:
		return Pack(EnvShapesHeader, nil)
	case Shapes:
		return Pack(EnvShapesHeader, []float32{float32(m.ObsShape), float32(m.ActionShape), float32(m.ActionSpaceType)})
	case PolicyActions:
		return Pack(PolicyActionsHeader, m.Actions)
	case Stop:
		return Pack(StopHeader, nil)
	}
	return nil
}

// Decode parses one message into its typed variant. All declared lengths are
// checked before the payload is sliced.
func Decode(b []byte) (Message, error) {
	h, payload, err := Unpack(b)
	if err != nil {
		return nil, err
	}
	switch h {
	case EnvStepDataHeader:
		return decodeStepData(payload)
	case EnvResetStateHeader:
		return decodeResetState(payload)
	case EnvShapesHeader:
		switch len(payload) {
		case 0:
			return ShapesRequest{}, nil
		case 3:
			dims := make([]int, 3)
			for i, v := range payload {
				d, ok := integral(v)
				if !ok {
					return nil, protocolErrorf("env shapes element %d is not an integer: %v", i, v)
				}
				dims[i] = d
			}
			return Shapes{ObsShape: dims[0], ActionShape: dims[1], ActionSpaceType: dims[2]}, nil
		default:
			return nil, protocolErrorf("env shapes payload has %d elements, expected 0 or 3", len(payload))
		}
	case PolicyActionsHeader:
		return PolicyActions{Actions: payload}, nil
	case StopHeader:
		if len(payload) != 0 {
			return nil, protocolErrorf("stop message carries %d payload elements", len(payload))
		}
		return Stop{}, nil
	}
	return nil, protocolErrorf("unrecognized header %v", h)
}

func decodeStepData(payload []float32) (Message, error) {
	if len(payload) < 2 {
		return nil, protocolErrorf("step data payload has %d elements, need at least 2", len(payload))
	}
	shape, next, err := decodeShape(payload, 1)
	if err != nil {
		return nil, err
	}
	obsShape := coerceShape(shape)
	nAgents := obsShape[0]
	want := next + nAgents + product(obsShape)
	if len(payload) != want {
		return nil, protocolErrorf("step data payload has %d elements, layout needs %d", len(payload), want)
	}
	return StepData{
		Done:    payload[0] != 0,
		Shape:   shape,
		Rewards: payload[next : next+nAgents],
		NextState: Observation{
			Shape: obsShape,
			Data:  payload[next+nAgents:],
		},
	}, nil
}

func decodeResetState(payload []float32) (Message, error) {
	if len(payload) < 1 {
		return nil, protocolErrorf("reset state payload is empty")
	}
	shape, next, err := decodeShape(payload, 0)
	if err != nil {
		return nil, err
	}
	obsShape := coerceShape(shape)
	want := next + product(obsShape)
	if len(payload) != want {
		return nil, protocolErrorf("reset state payload has %d elements, layout needs %d", len(payload), want)
	}
	return ResetState{
		Shape: shape,
		State: Observation{Shape: obsShape, Data: payload[next:]},
	}, nil
}

// decodeShape reads n_shape_dims at payload[at] followed by that many dims and
// returns the dims plus the index of the first element after them.
func decodeShape(payload []float32, at int) ([]int, int, error) {
	n, ok := integral(payload[at])
	if !ok || n < 1 {
		return nil, 0, protocolErrorf("invalid shape dimension count %v", payload[at])
	}
	start := at + 1
	if start+n > len(payload) {
		return nil, 0, protocolErrorf("shape declares %d dims but only %d elements remain", n, len(payload)-start)
	}
	// No valid layout holds more state elements than the payload itself, so
	// every dim and the running product are bounded by len(payload).
	limit := len(payload)
	shape := make([]int, n)
	total := 1
	for i := range shape {
		v := payload[start+i]
		if float64(v) > float64(limit) {
			return nil, 0, protocolErrorf("shape dimension %v exceeds payload of %d elements", v, limit)
		}
		d, ok := integral(v)
		if !ok || d < 1 {
			return nil, 0, protocolErrorf("invalid shape dimension %v", v)
		}
		total *= d
		if total > limit {
			return nil, 0, protocolErrorf("shape %v declares more elements than the payload of %d", payload[start:start+i+1], limit)
		}
		shape[i] = d
	}
	return shape, start + n, nil
}

// coerceShape turns a single-agent shape [d] into [1, d].
func coerceShape(shape []int) []int {
	if len(shape) == 1 {
		return []int{1, shape[0]}
	}
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}

func integral(v float32) (int, bool) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func appendDims(payload []float32, dims []int) []float32 {
	for _, d := range dims {
		payload = append(payload, float32(d))
	}
	return payload
}

func boolElement(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
