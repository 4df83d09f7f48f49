// Пакет metrics — Prometheus-метрики пакетной задачи.
//
// Задача короткоживущая, поэтому метрики не отдаются по /metrics,
// а отправляются в Pushgateway по завершении запуска (если задан URL).
//
// Метрики:
//   - movies_etl_rows_extracted_total{table} — прочитано строк из SQLite
//   - movies_etl_rows_inserted_total{table} — вставлено строк в PostgreSQL
//   - movies_etl_rows_skipped_total{table} — пропущено (ключ уже существует)
//   - movies_etl_stage_duration_seconds{stage} — длительность этапа
//   - movies_etl_check_failures_total{test} — проваленные проверки согласованности
//   - movies_etl_last_success_timestamp_seconds — время последнего успешного запуска
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName — имя задачи в Pushgateway.
const JobName = "movies_etl"

// Этапы запуска для movies_etl_stage_duration_seconds.
const (
	StageExtract = "extract"
	StageLoad    = "load"
	StageCheck   = "check"
)

// Metrics — набор метрик одного запуска с собственным registry.
type Metrics struct {
	registry *prometheus.Registry

	RowsExtracted *prometheus.CounterVec
	RowsInserted  *prometheus.CounterVec
	RowsSkipped   *prometheus.CounterVec
	StageDuration *prometheus.GaugeVec
	CheckFailures *prometheus.CounterVec
	LastSuccess   prometheus.Gauge
}

// New создаёт метрики и регистрирует их в новом registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movies_etl_rows_extracted_total",
			Help: "Количество строк, прочитанных из SQLite",
		}, []string{"table"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movies_etl_rows_inserted_total",
			Help: "Количество строк, вставленных в PostgreSQL",
		}, []string{"table"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movies_etl_rows_skipped_total",
			Help: "Количество строк, пропущенных из-за существующего ключа",
		}, []string{"table"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "movies_etl_stage_duration_seconds",
			Help: "Длительность этапа запуска в секундах",
		}, []string{"stage"}),
		CheckFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "movies_etl_check_failures_total",
			Help: "Количество проваленных проверок согласованности",
		}, []string{"test"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movies_etl_last_success_timestamp_seconds",
			Help: "Unix-время последнего успешного запуска",
		}),
	}

	m.registry.MustRegister(
		m.RowsExtracted,
		m.RowsInserted,
		m.RowsSkipped,
		m.StageDuration,
		m.CheckFailures,
		m.LastSuccess,
	)
	return m
}

// Registry возвращает registry метрик запуска.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage записывает длительность этапа, начатого в start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Set(time.Since(start).Seconds())
}

// MarkSuccess отмечает успешное завершение запуска.
func (m *Metrics) MarkSuccess() {
	m.LastSuccess.SetToCurrentTime()
}

// Pusher отправляет метрики запуска в Pushgateway.
type Pusher struct {
	url      string
	instance string
	logger   *slog.Logger
}

// NewPusher создаёт Pusher. Пустой url отключает отправку.
func NewPusher(url, instance string, logger *slog.Logger) *Pusher {
	return &Pusher{
		url:      url,
		instance: instance,
		logger:   logger.With(slog.String("component", "metrics_pusher")),
	}
}

// Push отправляет метрики. Ошибка отправки не должна влиять на результат
// задачи, поэтому вызывающий код обычно только логирует её.
func (p *Pusher) Push(ctx context.Context, m *Metrics) error {
	if p.url == "" {
		return nil
	}

	err := push.New(p.url, JobName).
		Gatherer(m.Registry()).
		Grouping("instance", p.instance).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("ошибка отправки метрик в Pushgateway: %w", err)
	}

	p.logger.Info("Метрики отправлены в Pushgateway",
		slog.String("url", p.url),
		slog.String("instance", p.instance),
	)
	return nil
}
