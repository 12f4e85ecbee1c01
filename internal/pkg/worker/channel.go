package worker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roackb2/rollout/internal/pkg/protocol"
)

const ChannelQueueSize = 64

var ErrChannelClosed = errors.New("channel closed")

// Channel is the parent end of a worker's duplex byte stream. A reader
// goroutine moves incoming frames into a queue so Poll never blocks.
type Channel struct {
	conn    io.ReadWriteCloser
	frames  chan []byte
	pending []byte
	hasNext bool

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu   sync.Mutex
	readErr error
}

func NewChannel(conn io.ReadWriteCloser) *Channel {
	c := &Channel{
		conn:   conn,
		frames: make(chan []byte, ChannelQueueSize),
	}
	go c.readLoop()
	return c
}

func (c *Channel) readLoop() {
	defer close(c.frames)
	for {
		frame, err := protocol.ReadFrame(c.conn)
		if err != nil {
			c.errMu.Lock()
			c.readErr = err
			c.errMu.Unlock()
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				slog.Debug("Channel: reader stopped", "error", err)
			}
			return
		}
		c.frames <- frame
	}
}

// Poll reports whether a frame can be received without blocking.
func (c *Channel) Poll() bool {
	if c.hasNext {
		return true
	}
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return false
		}
		c.pending = frame
		c.hasNext = true
		return true
	default:
		return false
	}
}

// Recv returns the next frame, blocking until one arrives or the stream ends.
func (c *Channel) Recv() ([]byte, error) {
	if c.hasNext {
		frame := c.pending
		c.pending = nil
		c.hasNext = false
		return frame, nil
	}
	frame, ok := <-c.frames
	if !ok {
		return nil, c.closedErr()
	}
	return frame, nil
}

// Closed reports whether the incoming side has ended and nothing is left to
// receive.
func (c *Channel) Closed() bool {
	if c.hasNext {
		return false
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr != nil && len(c.frames) == 0
}

// ended reports whether the reader has stopped. Unlike Closed it ignores
// frames still queued, so it is safe to call from any goroutine.
func (c *Channel) ended() bool {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr != nil
}

func (c *Channel) Send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteFrame(c.conn, frame); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

// SendMessage encodes and sends one protocol message.
func (c *Channel) SendMessage(msg protocol.Message) error {
	return c.Send(protocol.Encode(msg))
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// SendMessageWithin is SendMessage bounded by timeout when the underlying
// stream supports write deadlines. Other streams fall back to SendMessage.
func (c *Channel) SendMessageWithin(msg protocol.Message, timeout time.Duration) error {
	d, ok := c.conn.(writeDeadliner)
	if !ok {
		return c.SendMessage(msg)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := d.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	defer d.SetWriteDeadline(time.Time{})
	if err := protocol.WriteFrame(c.conn, protocol.Encode(msg)); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

func (c *Channel) Close() error {
	err := ErrChannelClosed
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) closedErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.readErr == nil || errors.Is(c.readErr, io.EOF) {
		return ErrChannelClosed
	}
	return fmt.Errorf("%w: %v", ErrChannelClosed, c.readErr)
}
