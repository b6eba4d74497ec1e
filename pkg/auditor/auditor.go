// Package auditor re-checks the registry's internal bookkeeping on a
// schedule. It exists to surface index corruption early, not to repair
// it.
package auditor

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/internal/metrics"
)

// Checker exposes a registry self-check.
type Checker interface {
	Verify() error
}

// Auditor runs consistency checks over the live registry. A pass holds
// the writer gate for its duration, so every check sees a quiescent
// state.
type Auditor struct {
	checker Checker
	gate    sync.Locker
	logger  *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an auditor for the given checker
func New(checker Checker, gate sync.Locker, logger *zap.Logger) *Auditor {
	return &Auditor{
		checker: checker,
		gate:    gate,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// RunOnce executes a single audit pass under the gate.
func (a *Auditor) RunOnce() error {
	start := time.Now()

	a.gate.Lock()
	err := a.checker.Verify()
	a.gate.Unlock()

	if err != nil {
		metrics.AuditRuns.WithLabelValues("failed").Inc()
		return fmt.Errorf("registry state check failed: %w", err)
	}

	metrics.AuditRuns.WithLabelValues("ok").Inc()
	metrics.AuditLastSuccess.SetToCurrentTime()
	a.logger.Info("Audit pass completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// StartPeriodic starts a background goroutine that audits on a fixed
// interval until Stop is called.
func (a *Auditor) StartPeriodic(interval time.Duration) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		a.logger.Info("Started periodic audit", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				if err := a.RunOnce(); err != nil {
					a.logger.Error("Periodic audit failed", zap.Error(err))
				}
			case <-a.stopCh:
				a.logger.Info("Stopping periodic audit")
				return
			}
		}
	}()
}

// Stop stops the periodic audit. Safe to call more than once.
func (a *Auditor) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}
