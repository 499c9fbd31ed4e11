// Package journal records every event published on the bus so a session can
// be flushed to storage and inspected later.
package journal

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/heartweek/internal/calendar"
	"github.com/talgya/heartweek/internal/events"
)

// Entry is one recorded event, stamped with the clock position at publish
// time.
type Entry struct {
	Seq     uint64         `json:"seq"`
	Date    calendar.Date  `json:"date"`
	Phase   calendar.Phase `json:"phase"`
	Kind    string         `json:"kind"`
	Payload string         `json:"payload"`
}

func (e Entry) String() string {
	return fmt.Sprintf("#%d %s %s %s %s", e.Seq, e.Date, e.Phase, e.Kind, e.Payload)
}

// Position reports the clock cursor.
type Position func() (calendar.Date, calendar.Phase)

// Journal buffers entries until they are drained.
type Journal struct {
	pos     Position
	seq     uint64
	pending []Entry
	cancel  func()
}

// New subscribes a journal to every kind on bus.
func New(bus *events.Bus, pos Position) *Journal {
	j := &Journal{pos: pos}
	j.cancel = bus.SubscribeAll(j.record)
	return j
}

// Detach stops recording.
func (j *Journal) Detach() {
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
}

// Seq returns the last assigned sequence number.
func (j *Journal) Seq() uint64 { return j.seq }

// Resume continues numbering after seq, e.g. the highest stored entry.
func (j *Journal) Resume(seq uint64) {
	j.seq = max(j.seq, seq)
}

// Pending returns the number of buffered entries.
func (j *Journal) Pending() int { return len(j.pending) }

// Drain returns the buffered entries and empties the buffer.
func (j *Journal) Drain() []Entry {
	out := j.pending
	j.pending = nil
	return out
}

func (j *Journal) record(ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("journal %s: %w", ev.Kind(), err)
	}
	date, phase := j.pos()
	j.seq++
	j.pending = append(j.pending, Entry{
		Seq:     j.seq,
		Date:    date,
		Phase:   phase,
		Kind:    ev.Kind().String(),
		Payload: string(payload),
	})
	return nil
}
