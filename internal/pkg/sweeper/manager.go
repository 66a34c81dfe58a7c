package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Manager runs the sweeper on a fixed interval. Start and Stop are
// idempotent; the distributed lock inside RunOnce keeps runs from
// overlapping even across processes, the ticker only paces this one.
type Manager struct {
	sweeper  *Sweeper
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewManager(sweeper *Sweeper, interval time.Duration) *Manager {
	return &Manager{sweeper: sweeper, interval: interval}
}

// Start launches the periodic sweep worker.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate the stop channel each cycle so the manager can be restarted.
	m.stopCh = make(chan struct{})
	m.running = true

	m.ticker = time.NewTicker(m.interval)
	m.wg.Add(1)
	go m.worker()

	log.Infof("[Sweeper Manager] Started (interval: %s)", m.interval)
}

// Stop halts the periodic worker and waits for an in-flight run to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Sweeper Manager] Stopping...")

	m.ticker.Stop()
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()

	log.Info("[Sweeper Manager] Stopped")
}

// IsRunning returns whether the manager is currently running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// TriggerSweep runs one sweep immediately, outside the schedule. Used by
// the admin API.
func (m *Manager) TriggerSweep(ctx context.Context) error {
	_, err := m.sweeper.RunOnce(ctx)
	return err
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweeper Manager] Sweep worker stopping")
			return
		case <-m.ticker.C:
			if _, err := m.sweeper.RunOnce(context.Background()); err != nil {
				if errors.Is(err, ErrAlreadyRunning) {
					log.Info("[Sweeper Manager] Skipping sweep, another run holds the lock")
					continue
				}
				log.Errorf("[Sweeper Manager] Sweep error: %v", err)
			}
		}
	}
}
