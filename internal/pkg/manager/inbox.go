package manager

import "github.com/roackb2/rollout/internal/pkg/worker"

// inbox is a worker channel with a small pushback queue. Frames read while
// waiting for something else are held and handed to the collector later.
type inbox struct {
	ch   *worker.Channel
	held [][]byte
}

func (b *inbox) Poll() bool {
	return len(b.held) > 0 || b.ch.Poll()
}

func (b *inbox) Recv() ([]byte, error) {
	if len(b.held) > 0 {
		frame := b.held[0]
		b.held = b.held[1:]
		return frame, nil
	}
	return b.ch.Recv()
}

func (b *inbox) Closed() bool {
	return len(b.held) == 0 && b.ch.Closed()
}

func (b *inbox) hold(frame []byte) {
	b.held = append(b.held, frame)
}
