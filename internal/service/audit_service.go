package service

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/metrics"
	"go.uber.org/zap"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

type AuditService struct {
	repo    AuditRepository
	metrics *metrics.Collector
	log     *zap.Logger
	entries chan *domain.AuditLog
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

const auditBufferSize = 10_000

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	return newAuditService(repo, m, log, auditBufferSize)
}

func newAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger, size int) *AuditService {
	svc := &AuditService{
		repo:    repo,
		metrics: m,
		log:     log,
		entries: make(chan *domain.AuditLog, size),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full or the service has shut down, the entry is
// dropped and a warning is emitted.
func (s *AuditService) LogAsync(entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.Actor.UserID,
		UserRole:     entry.Actor.Role,
		IPAddress:    entry.Actor.IPAddress,
		RequestID:    entry.Actor.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Changes:      entry.Changes,
	}
	if al.Changes == "" {
		// jsonb column rejects the empty string
		al.Changes = "{}"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(al, "audit service stopped, dropping entry")
		return
	}
	select {
	case s.entries <- al:
	default:
		s.drop(al, "audit log buffer full, dropping entry")
	}
}

func (s *AuditService) drop(al *domain.AuditLog, msg string) {
	s.metrics.AuditBufferDropped.Inc()
	s.log.Warn(msg,
		zap.String("action", string(al.Action)),
		zap.String("resource", al.ResourceType),
		zap.String("resource_id", al.ResourceID),
	)
}

// Shutdown drains the buffer, waiting at most 10 seconds. It is safe to
// call more than once, and entries logged afterwards are dropped.
func (s *AuditService) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log",
				zap.String("resource_id", entry.ResourceID),
				zap.Error(err),
			)
		} else {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}
