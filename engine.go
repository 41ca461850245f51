package secureauth

import (
	"context"
	"log"
	"time"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/jwt"
	"github.com/kverac/secureauth/ledger"
	"github.com/kverac/secureauth/password"
)

// Engine defines a public type used by secureauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	accounts     *account.Store
	tokens       *ledger.Ledger
	verification *challengeStore
	reset        *challengeStore
	notifier     Notifier
	passwordHash *password.Argon2
	totp         *totpManager
	jwtManager   *jwt.Manager
	methods      map[account.MFAMethod]mfaMethod
	audit        *auditDispatcher
	metrics      *Metrics
	logger       *log.Logger
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, accountID string, success bool, failure error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if failure != nil {
		event.Error = failure.Error()
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) warn(format string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Printf(format, args...)
}

// method resolves a configured second factor implementation.
func (e *Engine) method(m account.MFAMethod) (mfaMethod, error) {
	impl, ok := e.methods[m]
	if !ok {
		return nil, ErrMFAMethodUnknown
	}
	return impl, nil
}
