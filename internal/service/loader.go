// loader.go — загрузка снимка каталога в PostgreSQL.
//
// Таблицы загружаются в порядке model.LoadOrder (жанры, кинопроизведения,
// связи жанров, персоны, связи персон), чтобы связи вставлялись после
// строк, на которые ссылаются. Вся загрузка идёт в одной транзакции:
// ошибка БД на любой таблице откатывает весь запуск.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/movies-etl/internal/domain/model"
	"github.com/bigkaa/movies-etl/internal/metrics"
	"github.com/bigkaa/movies-etl/internal/repository"
)

// TxRunner выполняет функцию в транзакции целевой БД.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}

// TableLoadResult — итог загрузки одной таблицы.
type TableLoadResult struct {
	Table    model.Table
	Given    int
	Inserted int
	Skipped  int
}

// LoadResult — итог загрузки всего снимка.
type LoadResult struct {
	Tables   []TableLoadResult
	Duration time.Duration
}

// Inserted — суммарное число вставленных строк.
func (r *LoadResult) Inserted() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Inserted
	}
	return n
}

// Skipped — суммарное число пропущенных строк.
func (r *LoadResult) Skipped() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Skipped
	}
	return n
}

// Loader сохраняет снимок каталога в целевую БД.
type Loader struct {
	tx        TxRunner
	schema    string
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewLoader создаёт Loader.
func NewLoader(tx TxRunner, schema string, batchSize int, m *metrics.Metrics, logger *slog.Logger) *Loader {
	return &Loader{
		tx:        tx,
		schema:    schema,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger.With(slog.String("component", "postgres_loader")),
	}
}

// Load вставляет все таблицы снимка. Записи проверяются до начала транзакции;
// ошибка валидации возвращается без обращения к БД.
func (l *Loader) Load(ctx context.Context, snap *model.Snapshot) (*LoadResult, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var results []TableLoadResult

	err := l.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		results = results[:0]
		repo := repository.NewContentRepository(tx, l.schema, l.batchSize)

		for _, table := range model.LoadOrder {
			records := snap.Records(table)
			if len(records) == 0 {
				l.logger.Debug("Таблица пуста, вставка пропущена", slog.String("table", table.String()))
				continue
			}

			inserted, err := repo.InsertIgnore(ctx, table, records)
			if err != nil {
				attrs := []any{
					slog.String("table", table.String()),
					slog.Int("rows", len(records)),
					slog.String("error", err.Error()),
				}
				if repository.IsPgError(err) {
					attrs = append(attrs, slog.String("sqlstate", repository.PgErrorCode(err)))
				}
				l.logger.Error("Ошибка загрузки таблицы, транзакция будет откачена", attrs...)
				return fmt.Errorf("загрузка таблицы %s: %w", table, err)
			}

			res := TableLoadResult{
				Table:    table,
				Given:    len(records),
				Inserted: inserted,
				Skipped:  len(records) - inserted,
			}
			results = append(results, res)

			l.logger.Info("Таблица загружена",
				slog.String("table", table.String()),
				slog.Int("given", res.Given),
				slog.Int("inserted", res.Inserted),
				slog.Int("skipped", res.Skipped),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Метрики пишутся только после коммита.
	if l.metrics != nil {
		for _, r := range results {
			l.metrics.RowsInserted.WithLabelValues(r.Table.String()).Add(float64(r.Inserted))
			l.metrics.RowsSkipped.WithLabelValues(r.Table.String()).Add(float64(r.Skipped))
		}
		l.metrics.ObserveStage(metrics.StageLoad, start)
	}

	return &LoadResult{Tables: results, Duration: time.Since(start)}, nil
}
