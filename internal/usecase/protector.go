package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/core/port"
	appLogger "github.com/arklim/social-platform-lockout/internal/infra/logger"
	"github.com/arklim/social-platform-lockout/internal/infra/telemetry"
	"github.com/arklim/social-platform-lockout/internal/repository"
)

const (
	defaultQueueCapacity = 8192
	defaultApplyTimeout  = 10 * time.Second
)

// BruteForceProtector observes login outcomes and maintains per-user failure
// records with escalating lockout windows.
//
// A single worker goroutine applies outcome events one at a time, in enqueue
// order, with no per-user partitioning. Global serialization is what keeps
// failure counts exact under concurrent login traffic without locking
// individual records. Enqueueing never blocks the authentication flow, which
// means the read path may briefly lag events still in the queue; callers must
// treat lockout state as eventually consistent.
type BruteForceProtector struct {
	failures port.LoginFailureStore
	users    port.UserRepository
	realms   port.RealmConfigProvider
	notifier port.LockoutNotifier
	logger   *zap.Logger
	metrics  *telemetry.LockoutMetrics

	queue        chan domain.LoginOutcomeEvent
	stop         chan struct{}
	done         chan struct{}
	applyTimeout time.Duration
	now          func() time.Time
}

// NewBruteForceProtector constructs a protector. Call Start to launch the
// worker and Close to stop it.
func NewBruteForceProtector(
	failures port.LoginFailureStore,
	users port.UserRepository,
	realms port.RealmConfigProvider,
	notifier port.LockoutNotifier,
	logger *zap.Logger,
) *BruteForceProtector {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BruteForceProtector{
		failures:     failures,
		users:        users,
		realms:       realms,
		notifier:     notifier,
		logger:       logger,
		queue:        make(chan domain.LoginOutcomeEvent, defaultQueueCapacity),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		applyTimeout: defaultApplyTimeout,
		now:          time.Now,
	}
}

// WithQueueCapacity resizes the event queue. Only valid before Start.
func (p *BruteForceProtector) WithQueueCapacity(capacity int) *BruteForceProtector {
	if capacity > 0 {
		p.queue = make(chan domain.LoginOutcomeEvent, capacity)
	}
	return p
}

// WithApplyTimeout bounds the transactional scope of a single event.
func (p *BruteForceProtector) WithApplyTimeout(timeout time.Duration) *BruteForceProtector {
	if timeout > 0 {
		p.applyTimeout = timeout
	}
	return p
}

// WithMetrics attaches Prometheus collectors.
func (p *BruteForceProtector) WithMetrics(metrics *telemetry.LockoutMetrics) *BruteForceProtector {
	p.metrics = metrics
	return p
}

// WithClock overrides the internal clock, used in tests.
func (p *BruteForceProtector) WithClock(clock func() time.Time) *BruteForceProtector {
	if clock != nil {
		p.now = clock
	}
	return p
}

// Start launches the worker goroutine.
func (p *BruteForceProtector) Start() {
	go p.run()
}

// Close stops the worker best-effort. Events still queued are dropped;
// failure tracking is a defense-in-depth heuristic, not a ledger, so losing
// tail events at shutdown is acceptable.
func (p *BruteForceProtector) Close() error {
	close(p.stop)
	<-p.done
	return nil
}

// RecordFailure enqueues a failed login outcome. Fire-and-forget: the caller
// gets no confirmation that the event has been applied.
func (p *BruteForceProtector) RecordFailure(realmID, userID, remoteAddr string) {
	p.enqueue(domain.LoginOutcomeEvent{
		RealmID:          realmID,
		UserID:           userID,
		RemoteAddr:       remoteAddr,
		Success:          false,
		OccurredAtMillis: p.now().UnixMilli(),
	})
}

// RecordSuccess enqueues a successful login outcome, which resets the user's
// failure record once applied.
func (p *BruteForceProtector) RecordSuccess(realmID, userID, remoteAddr string) {
	p.enqueue(domain.LoginOutcomeEvent{
		RealmID:          realmID,
		UserID:           userID,
		RemoteAddr:       remoteAddr,
		Success:          true,
		OccurredAtMillis: p.now().UnixMilli(),
	})
}

func (p *BruteForceProtector) enqueue(event domain.LoginOutcomeEvent) {
	select {
	case p.queue <- event:
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(len(p.queue)))
		}
	default:
		// Never block the authentication flow on a saturated queue.
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
		p.logger.Warn("login outcome queue full, dropping event",
			zap.String("realm_id", event.RealmID),
			zap.String("user_id", event.UserID),
			zap.Bool("success", event.Success),
		)
	}
}

func (p *BruteForceProtector) run() {
	defer close(p.done)

	for {
		select {
		case <-p.stop:
			return
		case event := <-p.queue:
			if p.metrics != nil {
				p.metrics.QueueDepth.Set(float64(len(p.queue)))
			}
			p.apply(event)
		}
	}
}

// apply processes one event inside its own bounded scope. Errors are local to
// the event: they are logged and never block or corrupt later events.
func (p *BruteForceProtector) apply(event domain.LoginOutcomeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.applyTimeout)
	defer cancel()

	var err error
	if event.Success {
		err = p.processSuccess(ctx, event)
	} else {
		err = p.processFailure(ctx, event)
	}

	if p.metrics != nil {
		p.metrics.EventsProcessed.WithLabelValues(outcomeLabel(event.Success)).Inc()
	}

	if err != nil {
		if p.metrics != nil {
			p.metrics.ProcessingErrors.Inc()
		}
		p.logger.Error("failed to apply login outcome",
			zap.String("realm_id", event.RealmID),
			zap.String("user_id", event.UserID),
			zap.Bool("success", event.Success),
			zap.Error(err),
		)
	}
}

func (p *BruteForceProtector) processFailure(ctx context.Context, event domain.LoginOutcomeEvent) error {
	cfg, err := p.realms.GetLockoutConfig(ctx, event.RealmID)
	if err != nil {
		return fmt.Errorf("load realm lockout config: %w", err)
	}

	failure, err := p.failures.Get(ctx, event.RealmID, event.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		failure = &domain.LoginFailure{RealmID: event.RealmID, UserID: event.UserID}
	} else if err != nil {
		return fmt.Errorf("load failure record: %w", err)
	}

	decision := ApplyFailure(failure, cfg, event.RemoteAddr, event.OccurredAtMillis)

	if err := p.failures.Put(ctx, *failure); err != nil {
		return fmt.Errorf("store failure record: %w", err)
	}

	p.logger.Debug("login failure recorded",
		zap.String("realm_id", event.RealmID),
		zap.String("user_id", event.UserID),
		zap.String("remote_addr", appLogger.MaskIP(event.RemoteAddr)),
		zap.Int("num_failures", failure.NumFailures),
		zap.Int("wait_seconds", decision.WaitSeconds),
		zap.Bool("quick_login", decision.QuickLoginFailure),
	)

	if decision.TemporaryLockout {
		if p.metrics != nil {
			p.metrics.Lockouts.WithLabelValues("temporary").Inc()
		}
		notification := domain.TemporaryLockoutEvent{
			EventID:     uuid.NewString(),
			RealmID:     event.RealmID,
			UserID:      event.UserID,
			IPAddress:   failure.LastIPFailure,
			NumFailures: failure.NumFailures,
			NotBefore:   time.Unix(failure.FailedLoginNotBefore, 0).UTC(),
			OccurredAt:  time.UnixMilli(event.OccurredAtMillis).UTC(),
		}
		if err := p.notifier.PublishTemporaryLockout(ctx, notification); err != nil {
			// The record is already persisted; a sink outage must not undo it.
			p.logger.Error("publish temporary lockout notification", zap.Error(err))
		}
	}

	if decision.PermanentLockout {
		return p.lockPermanently(ctx, event, failure)
	}

	return nil
}

func (p *BruteForceProtector) lockPermanently(ctx context.Context, event domain.LoginOutcomeEvent, failure *domain.LoginFailure) error {
	user, err := p.users.GetByID(ctx, event.RealmID, event.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		// User vanished between the credential check and this event.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	p.logger.Info("user locked permanently due to too many login attempts",
		zap.String("realm_id", event.RealmID),
		zap.String("username", user.Username),
		zap.Int("num_temporary_lockouts", failure.NumTemporaryLockouts),
	)

	if err := p.users.SetEnabled(ctx, event.RealmID, user.ID, false); err != nil {
		return fmt.Errorf("disable user: %w", err)
	}

	if err := p.users.SetDisabledReason(ctx, event.RealmID, user.ID, domain.DisabledReasonPermanentLockout); err != nil {
		if !errors.Is(err, repository.ErrReadOnly) {
			return fmt.Errorf("set disabled reason: %w", err)
		}
		// The account stays disabled even when the reason cannot be persisted.
		p.logger.Debug("cannot set disabled reason on read only user",
			zap.String("realm_id", event.RealmID),
			zap.String("user_id", user.ID),
		)
	}

	if p.metrics != nil {
		p.metrics.Lockouts.WithLabelValues("permanent").Inc()
	}

	notification := domain.PermanentLockoutEvent{
		EventID:     uuid.NewString(),
		RealmID:     event.RealmID,
		UserID:      event.UserID,
		IPAddress:   failure.LastIPFailure,
		NumFailures: failure.NumFailures,
		DisabledAt:  time.UnixMilli(event.OccurredAtMillis).UTC(),
	}
	if err := p.notifier.PublishPermanentLockout(ctx, notification); err != nil {
		p.logger.Error("publish permanent lockout notification", zap.Error(err))
	}

	return nil
}

func (p *BruteForceProtector) processSuccess(ctx context.Context, event domain.LoginOutcomeEvent) error {
	failure, err := p.failures.Get(ctx, event.RealmID, event.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load failure record: %w", err)
	}

	ApplySuccess(failure)

	if err := p.failures.Put(ctx, *failure); err != nil {
		return fmt.Errorf("store failure record: %w", err)
	}

	p.logger.Debug("successful login, failure record cleared",
		zap.String("realm_id", event.RealmID),
		zap.String("user_id", event.UserID),
	)

	return nil
}

// IsTemporarilyDisabled reports whether login attempts for the user must be
// rejected right now. The answer may lag outcome events still in the queue.
func (p *BruteForceProtector) IsTemporarilyDisabled(ctx context.Context, realmID, userID string) (bool, error) {
	failure, err := p.failures.Get(ctx, realmID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load failure record: %w", err)
	}

	return p.now().Unix() < failure.FailedLoginNotBefore, nil
}

// IsPermanentlyLockedOut reports whether the account was disabled by the
// protector, as opposed to an administrative disable.
func (p *BruteForceProtector) IsPermanentlyLockedOut(user domain.User) bool {
	return !user.Enabled && user.DisabledReason == domain.DisabledReasonPermanentLockout
}

// CleanUpPermanentLockout removes the lockout reason from the account without
// re-enabling it; restoring access remains an administrative action.
func (p *BruteForceProtector) CleanUpPermanentLockout(ctx context.Context, user *domain.User) error {
	if user == nil || user.DisabledReason != domain.DisabledReasonPermanentLockout {
		return nil
	}

	if err := p.users.ClearDisabledReason(ctx, user.RealmID, user.ID); err != nil {
		return fmt.Errorf("clear disabled reason: %w", err)
	}

	user.DisabledReason = domain.DisabledReasonNone
	return nil
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
