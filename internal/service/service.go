package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"example.com/rfidscan/internal/cache"
	"example.com/rfidscan/internal/messaging"
	"example.com/rfidscan/internal/registry"
	"example.com/rfidscan/internal/repository"
	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/search"
	"example.com/rfidscan/pkg/common"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrInvalidRequest is returned for requests that fail validation before
// reaching the scan log
var ErrInvalidRequest = errors.New("invalid request")

// sideEffectTimeout bounds each cache, bus and search call
const sideEffectTimeout = 5 * time.Second

// Service defines the scanner operations exposed over HTTP and MQTT
type Service interface {
	NewScanner(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error)
	Submit(ctx context.Context, caller scanlog.Account, req SubmitRequest) (scanlog.ScanEvent, error)
	Reset(ctx context.Context, caller, account scanlog.Account) (scanlog.Snapshot, error)
	Query(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error)
	ListAccounts(ctx context.Context) []scanlog.Account
	SearchScans(ctx context.Context, account scanlog.Account, tagUID string, limit int) ([]search.ScanDocument, error)

	Load(ctx context.Context) (int, error)
	Flush(ctx context.Context) (int, error)
	Version() VersionInfo
	Shutdown(ctx context.Context) error
}

// SubmitRequest is one scan reported by a device
type SubmitRequest struct {
	Account  scanlog.Account
	DeviceID uint32
	ScanTime uint32
	TagUID   string
}

// VersionInfo describes the running service
type VersionInfo struct {
	Version  string `json:"version"`
	Capacity int    `json:"capacity"`
	Accounts int    `json:"accounts"`
}

// ServiceConfig holds the dependencies of the service
type ServiceConfig struct {
	Repository repository.Repository
	Cache      cache.SnapshotCache
	Bus        messaging.ServiceBusClient
	Indexer    search.ScanIndexer
	Logger     *logrus.Logger
	Clock      Clock
	Capacity   int
}

// service serializes every operation on the registry behind mu. Logs that
// changed since the last flush are tracked in dirty.
type service struct {
	mu       sync.Mutex
	registry *registry.Registry
	dirty    map[scanlog.Account]struct{}

	repo    repository.Repository
	cache   cache.SnapshotCache
	bus     messaging.ServiceBusClient
	indexer search.ScanIndexer
	log     *logrus.Logger
	clock   Clock
}

// NewService creates a service with an empty registry
func NewService(config ServiceConfig) (Service, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if config.Bus == nil {
		return nil, errors.New("messaging client is required")
	}
	if config.Indexer == nil {
		return nil, errors.New("search indexer is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	return &service{
		registry: registry.New(config.Capacity),
		dirty:    make(map[scanlog.Account]struct{}),
		repo:     config.Repository,
		cache:    config.Cache,
		bus:      config.Bus,
		indexer:  config.Indexer,
		log:      config.Logger,
		clock:    config.Clock,
	}, nil
}

func (s *service) NewScanner(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error) {
	s.mu.Lock()
	snap, err := s.registry.CreateFor(account)
	if err == nil {
		s.dirty[account] = struct{}{}
	}
	s.mu.Unlock()
	if err != nil {
		return scanlog.Snapshot{}, err
	}

	s.log.WithField("account", account).Info("Scanner created")
	s.publish(ctx, messaging.EventScannerCreated, account, snap)
	return snap, nil
}

func (s *service) Submit(ctx context.Context, caller scanlog.Account, req SubmitRequest) (scanlog.ScanEvent, error) {
	tag, err := scanlog.ParseTagID(req.TagUID)
	if err != nil {
		return scanlog.ScanEvent{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.mu.Lock()
	event, pos, err := s.registry.SubmitFor(caller, req.Account, registry.Submission{
		DeviceID: req.DeviceID,
		ScanTime: req.ScanTime,
		RecvTime: unixSeconds(s.clock),
		TagID:    tag,
	})
	if err == nil {
		s.dirty[req.Account] = struct{}{}
		s.invalidate(ctx, req.Account)
	}
	s.mu.Unlock()
	if err != nil {
		return scanlog.ScanEvent{}, err
	}

	s.log.WithFields(logrus.Fields{
		"account":   req.Account,
		"device_id": event.DeviceID,
		"tag_uid":   event.TagID.String(),
		"latency":   event.Latency(),
	}).Debug("Scan accepted")

	s.publish(ctx, messaging.EventScanSubmitted, req.Account, event)

	doc := search.NewScanDocument(req.Account, pos, event)
	ictx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.indexer.IndexScan(ictx, doc); err != nil {
		s.log.WithError(err).WithField("account", req.Account).Warn("Failed to index scan")
	}

	return event, nil
}

func (s *service) Reset(ctx context.Context, caller, account scanlog.Account) (scanlog.Snapshot, error) {
	s.mu.Lock()
	snap, err := s.registry.ResetFor(caller, account)
	if err == nil {
		s.dirty[account] = struct{}{}
		s.invalidate(ctx, account)
	}
	s.mu.Unlock()
	if err != nil {
		return scanlog.Snapshot{}, err
	}

	s.log.WithField("account", account).Info("Scanner reset")
	s.publish(ctx, messaging.EventScannerReset, account, snap)
	return snap, nil
}

// Query reads through the cache. Cache writes happen under the lock so a
// stale snapshot never overwrites an invalidation.
func (s *service) Query(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error) {
	cctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	snap, err := s.cache.Get(cctx, account)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).WithField("account", account).Warn("Cache read failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err = s.registry.Get(account)
	if err != nil {
		return scanlog.Snapshot{}, err
	}
	if err := s.cache.Set(cctx, snap); err != nil {
		s.log.WithError(err).WithField("account", account).Warn("Cache write failed")
	}
	return snap, nil
}

func (s *service) ListAccounts(ctx context.Context) []scanlog.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Accounts()
}

// SearchScans looks up indexed events for a tag. Indexed history outlives
// eviction from the in-memory log.
func (s *service) SearchScans(ctx context.Context, account scanlog.Account, tagUID string, limit int) ([]search.ScanDocument, error) {
	tag, err := scanlog.ParseTagID(tagUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.mu.Lock()
	_, err = s.registry.Get(account)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return s.indexer.SearchByTag(ctx, account, tag, limit)
}

// Load restores every persisted scanner into the registry
func (s *service) Load(ctx context.Context) (int, error) {
	snaps, err := s.repo.ListScanners(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to load scanners")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		s.registry.Restore(snap)
	}

	s.log.WithField("count", len(snaps)).Info("Scanners restored")
	return len(snaps), nil
}

// Flush saves every log changed since the previous flush. Accounts that fail
// to save stay dirty for the next attempt.
func (s *service) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	pending := make([]scanlog.Snapshot, 0, len(s.dirty))
	for account := range s.dirty {
		snap, err := s.registry.Get(account)
		if err != nil {
			continue
		}
		pending = append(pending, snap)
	}
	s.dirty = make(map[scanlog.Account]struct{})
	s.mu.Unlock()

	var firstErr error
	saved := 0
	for _, snap := range pending {
		if err := s.repo.SaveScanner(ctx, snap); err != nil {
			s.log.WithError(err).WithField("account", snap.Account).Error("Failed to persist scanner")
			s.mu.Lock()
			s.dirty[snap.Account] = struct{}{}
			s.mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}

	if firstErr != nil {
		return saved, pkgerrors.Wrapf(firstErr, "%d of %d scanners failed to flush", len(pending)-saved, len(pending))
	}
	if saved > 0 {
		s.log.WithField("count", saved).Debug("Scanners flushed")
	}
	return saved, nil
}

func (s *service) Version() VersionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return VersionInfo{
		Version:  common.Version,
		Capacity: s.registry.Capacity(),
		Accounts: s.registry.Len(),
	}
}

// Shutdown performs a final flush
func (s *service) Shutdown(ctx context.Context) error {
	n, err := s.Flush(ctx)
	s.log.WithField("count", n).Info("Final flush complete")
	return err
}

// invalidate drops the cached snapshot; callers hold mu
func (s *service) invalidate(ctx context.Context, account scanlog.Account) {
	cctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.cache.Delete(cctx, account); err != nil {
		s.log.WithError(err).WithField("account", account).Warn("Cache invalidation failed")
	}
}

func (s *service) publish(ctx context.Context, eventType string, account scanlog.Account, payload interface{}) {
	pctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	env := messaging.NewEnvelope(eventType, string(account), payload)
	if err := s.bus.SendMessage(pctx, env, string(account)); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"account":    account,
			"event_type": eventType,
		}).Warn("Failed to publish event")
	}
}
