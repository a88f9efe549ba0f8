package registry

import (
	"fmt"
	"sort"

	"example.com/rfidscan/internal/scanlog"
)

// DefaultCapacity is the number of events retained per account when no
// capacity is configured
const DefaultCapacity = 100

// Submission carries the fields of one scan submitted for an account
type Submission struct {
	DeviceID uint32
	ScanTime uint32
	RecvTime uint32
	TagID    []byte
}

// Registry maps accounts to their scanner logs. It does not lock; callers
// must not invoke it concurrently.
type Registry struct {
	capacity int
	logs     map[scanlog.Account]*scanlog.Log
}

// New creates an empty registry whose logs hold at most capacity events
func New(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		logs:     make(map[scanlog.Account]*scanlog.Log),
	}
}

// Capacity returns the per-account event limit
func (r *Registry) Capacity() int {
	return r.capacity
}

// Len returns the number of registered accounts
func (r *Registry) Len() int {
	return len(r.logs)
}

// CreateFor registers an empty log for account
func (r *Registry) CreateFor(account scanlog.Account) (scanlog.Snapshot, error) {
	if _, ok := r.logs[account]; ok {
		return scanlog.Snapshot{}, fmt.Errorf("%w: %s", ErrAlreadyExists, account)
	}
	l := scanlog.New(account, r.capacity)
	r.logs[account] = l
	return l.Query(), nil
}

// SubmitFor appends a scan to account's log on behalf of caller and returns
// the position of the new transaction
func (r *Registry) SubmitFor(caller, account scanlog.Account, s Submission) (scanlog.ScanEvent, scanlog.Position, error) {
	l, err := r.authorized(caller, account)
	if err != nil {
		return scanlog.ScanEvent{}, scanlog.Position{}, err
	}
	event, err := l.Submit(s.DeviceID, s.ScanTime, s.RecvTime, s.TagID)
	if err != nil {
		return scanlog.ScanEvent{}, scanlog.Position{}, err
	}
	return event, l.Position(), nil
}

// ResetFor clears account's log on behalf of caller. The account stays registered.
func (r *Registry) ResetFor(caller, account scanlog.Account) (scanlog.Snapshot, error) {
	l, err := r.authorized(caller, account)
	if err != nil {
		return scanlog.Snapshot{}, err
	}
	l.Reset()
	return l.Query(), nil
}

// Get returns a snapshot of account's log
func (r *Registry) Get(account scanlog.Account) (scanlog.Snapshot, error) {
	l, ok := r.logs[account]
	if !ok {
		return scanlog.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	return l.Query(), nil
}

// Restore loads a persisted log, replacing any existing entry for its account
func (r *Registry) Restore(s scanlog.Snapshot) {
	r.logs[s.Account] = scanlog.FromSnapshot(s, r.capacity)
}

// Accounts returns the registered accounts in sorted order
func (r *Registry) Accounts() []scanlog.Account {
	accounts := make([]scanlog.Account, 0, len(r.logs))
	for a := range r.logs {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	return accounts
}

func (r *Registry) authorized(caller, account scanlog.Account) (*scanlog.Log, error) {
	l, ok := r.logs[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	if caller != account {
		return nil, fmt.Errorf("%w: %s acting on %s", ErrUnauthorized, caller, account)
	}
	return l, nil
}
