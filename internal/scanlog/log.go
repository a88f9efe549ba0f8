package scanlog

import (
	"errors"
	"fmt"

	"example.com/rfidscan/internal/stats"
)

// TagIDLength is the size of an RFID tag UID in bytes
const TagIDLength = 7

// ErrInvalidTagLength is returned when a tag UID is not exactly TagIDLength bytes
var ErrInvalidTagLength = errors.New("tag id must be exactly 7 bytes")

// Account identifies the owner of a scanner log
type Account string

// ScanEvent is one observed tag read
type ScanEvent struct {
	ScanTime uint32 `json:"scan_time"`
	RecvTime uint32 `json:"recv_time"`
	DeviceID uint32 `json:"device_id"`
	TagID    TagID  `json:"tag_id"`
}

// Latency is the platform receipt time minus the device scan time. It is
// negative when the device clock runs ahead of the platform.
func (e ScanEvent) Latency() float64 {
	return float64(int64(e.RecvTime) - int64(e.ScanTime))
}

// Snapshot is a read-only copy of a log's state
type Snapshot struct {
	Account         Account     `json:"account"`
	Stats           stats.Stats `json:"latency_stats"`
	Events          []ScanEvent `json:"scan_data"`
	NumTransactions uint32      `json:"num_transactions"`
	TimeFirstTx     uint32      `json:"time_first_tx"`
	TimeLastTx      uint32      `json:"time_last_tx"`
	Generation      uint32      `json:"generation"`
}

// Position locates the latest transaction across the lifetime of a log.
// Generation counts resets and Seq restarts at 1 after each one.
type Position struct {
	Generation  uint32
	TimeFirstTx uint32
	Seq         uint32
}

// Log is the bounded FIFO of scan events for one account, together with
// lifetime latency statistics. Evicting an event never revises the stats or
// the transaction count.
type Log struct {
	account         Account
	capacity        int
	acc             *stats.Accumulator
	events          []ScanEvent
	numTransactions uint32
	timeFirstTx     uint32
	timeLastTx      uint32
	generation      uint32
}

// New creates an empty log for account holding at most capacity events
func New(account Account, capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		account:  account,
		capacity: capacity,
		acc:      stats.NewAccumulator(),
		events:   make([]ScanEvent, 0, capacity),
	}
}

// FromSnapshot rebuilds a log from persisted state. When the snapshot holds
// more events than capacity only the newest ones are kept.
func FromSnapshot(s Snapshot, capacity int) *Log {
	l := New(s.Account, capacity)

	events := s.Events
	if len(events) > l.capacity {
		events = events[len(events)-l.capacity:]
	}
	for _, e := range events {
		e.TagID = e.TagID.Clone()
		l.events = append(l.events, e)
	}

	l.acc = stats.Restore(s.Stats, uint64(s.NumTransactions))
	l.numTransactions = s.NumTransactions
	l.timeFirstTx = s.TimeFirstTx
	l.timeLastTx = s.TimeLastTx
	l.generation = s.Generation
	return l
}

// Account returns the owner of the log
func (l *Log) Account() Account {
	return l.account
}

// Capacity returns the maximum number of retained events
func (l *Log) Capacity() int {
	return l.capacity
}

// Submit validates and appends one scan event, evicting the oldest retained
// event when the log is full. On error the log is left untouched.
func (l *Log) Submit(deviceID, scanTime, recvTime uint32, tagID []byte) (ScanEvent, error) {
	if len(tagID) != TagIDLength {
		return ScanEvent{}, fmt.Errorf("%w: got %d", ErrInvalidTagLength, len(tagID))
	}

	event := ScanEvent{
		ScanTime: scanTime,
		RecvTime: recvTime,
		DeviceID: deviceID,
		TagID:    TagID(tagID).Clone(),
	}

	l.acc.Update(event.Latency())

	if len(l.events) == l.capacity {
		copy(l.events, l.events[1:])
		l.events[len(l.events)-1] = event
	} else {
		l.events = append(l.events, event)
	}

	if l.numTransactions == 0 {
		l.timeFirstTx = recvTime
	}
	l.numTransactions++
	l.timeLastTx = recvTime

	return event, nil
}

// Reset clears events, stats and counters and starts a new generation. The
// account is kept.
func (l *Log) Reset() {
	l.generation++
	l.acc.Reset()
	l.events = l.events[:0]
	l.numTransactions = 0
	l.timeFirstTx = 0
	l.timeLastTx = 0
}

// Len returns the number of retained events
func (l *Log) Len() int {
	return len(l.events)
}

// Position returns the counters of the latest transaction without copying
// the retained events
func (l *Log) Position() Position {
	return Position{
		Generation:  l.generation,
		TimeFirstTx: l.timeFirstTx,
		Seq:         l.numTransactions,
	}
}

// Query returns a copy of the current state
func (l *Log) Query() Snapshot {
	events := make([]ScanEvent, len(l.events))
	for i, e := range l.events {
		e.TagID = e.TagID.Clone()
		events[i] = e
	}

	return Snapshot{
		Account:         l.account,
		Stats:           l.acc.Stats(),
		Events:          events,
		NumTransactions: l.numTransactions,
		TimeFirstTx:     l.timeFirstTx,
		TimeLastTx:      l.timeLastTx,
		Generation:      l.generation,
	}
}
