// Package reward keeps running episode returns per worker and a global
// exponential moving average over completed episodes.
package reward

const (
	RetainFactor = 0.9
	NewFactor    = 0.1
)

// Tracker is owned by the collection loop and is not safe for concurrent use.
type Tracker struct {
	episodes map[int][]float64
	average  float64
	hasAvg   bool
	count    int
}

func NewTracker() *Tracker {
	return &Tracker{episodes: make(map[int][]float64)}
}

// Record adds one message's rewards to the worker's per-agent running sums. On
// done every agent's total is folded into the global average, in slot order,
// and the worker starts over with a single zero slot.
func (t *Tracker) Record(workerID int, rewards []float32, done bool) {
	slots, ok := t.episodes[workerID]
	if !ok {
		slots = []float64{0}
	}
	for i, r := range rewards {
		if i >= len(slots) {
			slots = append(slots, float64(r))
			continue
		}
		slots[i] += float64(r)
	}
	if !done {
		t.episodes[workerID] = slots
		return
	}
	for _, total := range slots {
		if !t.hasAvg {
			t.average = total
			t.hasAvg = true
		} else {
			t.average = t.average*RetainFactor + total*NewFactor
		}
		t.count++
	}
	t.episodes[workerID] = []float64{0}
}

// Average returns the moving average; ok is false until an episode completes.
func (t *Tracker) Average() (avg float64, ok bool) {
	return t.average, t.hasAvg
}

// Episodes counts completed per-agent episodes.
func (t *Tracker) Episodes() int {
	return t.count
}

// Running returns a copy of the worker's current per-agent sums.
func (t *Tracker) Running(workerID int) []float64 {
	slots, ok := t.episodes[workerID]
	if !ok {
		return []float64{0}
	}
	return append([]float64(nil), slots...)
}
