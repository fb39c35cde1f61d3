// Package sweeper содержит фоновый процесс обслуживания: физическая очистка
// надгробий, переживших окно хранения, и пометка истекших кредитных грантов.
package sweeper

import (
	"context"
	"time"

	"fable-server/internal/engine"
	interfaces "fable-server/shared/interfaces"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_runs_total",
		Help: "Total number of completed sweep passes.",
	})
	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_errors_total",
		Help: "Total number of sweep passes that finished with an error.",
	})
	sweepPurgedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_purged_total",
		Help: "Total number of tombstoned rows physically removed, by kind.",
	}, []string{"kind"})
	sweepExpiredGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_expired_grants_total",
		Help: "Total number of credit grants marked expired.",
	})
)

// Sweeper периодически выполняет обслуживание хранилища. Каждая операция
// прохода идемпотентна, поэтому падение между ними безопасно.
type Sweeper struct {
	scenes     interfaces.SceneRepository
	narrations interfaces.NarrationRepository
	grants     interfaces.CreditGrantRepository
	clock      interfaces.Clock
	retention  time.Duration
	logger     zerolog.Logger
}

func New(
	scenes interfaces.SceneRepository,
	narrations interfaces.NarrationRepository,
	grants interfaces.CreditGrantRepository,
	clock interfaces.Clock,
	retention time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	// Окно хранения не может быть короче политики движка: иначе sweeper
	// физически удалял бы надгробия, которые checkPurgeable еще защищает.
	if retention < engine.RetentionWindow {
		logger.Warn().
			Dur("requested", retention).
			Dur("floor", engine.RetentionWindow).
			Msg("retention below engine policy, clamped")
		retention = engine.RetentionWindow
	}
	return &Sweeper{
		scenes:     scenes,
		narrations: narrations,
		grants:     grants,
		clock:      clock,
		retention:  retention,
		logger:     logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run запускает цикл обслуживания и блокируется до отмены контекста.
// Первый проход выполняется сразу, без ожидания тикера.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info().
		Dur("interval", interval).
		Dur("retention", s.retention).
		Msg("sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			sweepErrorsTotal.Inc()
			s.logger.Error().Err(err).Msg("sweep pass failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep выполняет один проход обслуживания. Каждая операция идет отдельным
// запросом: успевшая часть работы остается выполненной даже при ошибке дальше.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.retention)

	purgedScenes, err := s.scenes.PurgeOlderThan(ctx, nil, cutoff)
	if err != nil {
		return err
	}
	sweepPurgedTotal.WithLabelValues("scene").Add(float64(purgedScenes))

	purgedNarrations, err := s.narrations.PurgeOlderThan(ctx, nil, cutoff)
	if err != nil {
		return err
	}
	sweepPurgedTotal.WithLabelValues("narration").Add(float64(purgedNarrations))

	expiredGrants, err := s.grants.MarkExpired(ctx, nil, now)
	if err != nil {
		return err
	}
	sweepExpiredGrantsTotal.Add(float64(expiredGrants))

	sweepRunsTotal.Inc()
	s.logger.Info().
		Int64("purgedScenes", purgedScenes).
		Int64("purgedNarrations", purgedNarrations).
		Int64("expiredGrants", expiredGrants).
		Time("cutoff", cutoff).
		Msg("sweep pass completed")
	return nil
}
