// checker.go — проверка согласованности источника и целевой БД после загрузки.
//
// Три пронумерованных теста выполняются по порядку, первый проваленный
// останавливает проверку:
//  1. Наборы распознанных таблиц совпадают.
//  2. Количество строк совпадает в каждой таблице.
//  3. Ключи цели присутствуют в источнике (в режиме bidirectional также
//     ключи источника присутствуют в цели).
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/movies-etl/internal/config"
	"github.com/bigkaa/movies-etl/internal/domain/model"
	"github.com/bigkaa/movies-etl/internal/metrics"
)

// maxSampleIDs — сколько ключей показывать в сообщении о расхождении.
const maxSampleIDs = 5

// Inspector — доступ на чтение к одной из БД для проверки согласованности.
// Реализуется source.Extractor и repository.ContentRepository.
type Inspector interface {
	Tables(ctx context.Context) ([]string, error)
	CountRows(ctx context.Context, table model.Table) (int, error)
	IDs(ctx context.Context, table model.Table) ([]string, error)
}

// CheckError — проваленный тест согласованности.
type CheckError struct {
	Test    int
	Message string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("[Test %d] %s", e.Test, e.Message)
}

// Checker сравнивает источник и целевую БД.
type Checker struct {
	source        Inspector
	target        Inspector
	bidirectional bool
	out           io.Writer
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewChecker создаёт Checker. Отчёт пишется в out, по строке на тест.
// Ключи сравниваются в одну сторону только в режиме target-subset,
// любое другое значение mode (включая пустое) даёт двустороннюю проверку.
func NewChecker(source, target Inspector, mode string, out io.Writer, m *metrics.Metrics, logger *slog.Logger) *Checker {
	return &Checker{
		source:        source,
		target:        target,
		bidirectional: mode != config.KeyCheckTargetSubset,
		out:           out,
		metrics:       m,
		logger:        logger.With(slog.String("component", "consistency_checker")),
	}
}

// checkStep — один пронумерованный тест.
type checkStep struct {
	num   int
	title string
	run   func(ctx context.Context, tables []model.Table) (string, error)
}

// Run выполняет все тесты. Возвращает *CheckError для первого проваленного
// теста либо ошибку доступа к БД.
func (c *Checker) Run(ctx context.Context) error {
	start := time.Now()

	sourceTables, err := c.source.Tables(ctx)
	if err != nil {
		return fmt.Errorf("источник: %w", err)
	}
	targetTables, err := c.target.Tables(ctx)
	if err != nil {
		return fmt.Errorf("целевая БД: %w", err)
	}
	src := model.RecognizedSet(sourceTables)
	dst := model.RecognizedSet(targetTables)

	keysTitle := "Target keys present in source"
	if c.bidirectional {
		keysTitle = "Keys match in both directions"
	}

	steps := []checkStep{
		{1, "Table sets match", func(context.Context, []model.Table) (string, error) {
			return compareTableSets(src, dst), nil
		}},
		{2, "Row counts match", c.checkCounts},
		{3, keysTitle, c.checkKeys},
	}

	common := intersect(src, dst)
	for _, s := range steps {
		msg, err := s.run(ctx, common)
		if err != nil {
			return fmt.Errorf("[Test %d] %w", s.num, err)
		}
		if msg != "" {
			fmt.Fprintf(c.out, "[Test %d] %s: FAILED: %s\n", s.num, s.title, msg)
			c.logger.Warn("Проверка согласованности не пройдена",
				slog.Int("test", s.num),
				slog.String("reason", msg),
			)
			if c.metrics != nil {
				c.metrics.CheckFailures.WithLabelValues(strconv.Itoa(s.num)).Inc()
				c.metrics.ObserveStage(metrics.StageCheck, start)
			}
			return &CheckError{Test: s.num, Message: msg}
		}
		fmt.Fprintf(c.out, "[Test %d] %s: OK\n", s.num, s.title)
	}

	fmt.Fprintln(c.out, "Everything passed")
	c.logger.Info("Проверка согласованности пройдена", slog.Int("tables", len(common)))
	if c.metrics != nil {
		c.metrics.ObserveStage(metrics.StageCheck, start)
	}
	return nil
}

func (c *Checker) checkCounts(ctx context.Context, tables []model.Table) (string, error) {
	for _, t := range tables {
		srcN, err := c.source.CountRows(ctx, t)
		if err != nil {
			return "", err
		}
		dstN, err := c.target.CountRows(ctx, t)
		if err != nil {
			return "", err
		}
		if srcN != dstN {
			return fmt.Sprintf("table %s: source has %d rows, target has %d", t, srcN, dstN), nil
		}
	}
	return "", nil
}

func (c *Checker) checkKeys(ctx context.Context, tables []model.Table) (string, error) {
	for _, t := range tables {
		srcIDs, err := c.source.IDs(ctx, t)
		if err != nil {
			return "", err
		}
		dstIDs, err := c.target.IDs(ctx, t)
		if err != nil {
			return "", err
		}

		if missing := difference(dstIDs, srcIDs); len(missing) > 0 {
			return fmt.Sprintf("table %s: %d target keys not found in source: %s",
				t, len(missing), sample(missing)), nil
		}
		if c.bidirectional {
			if missing := difference(srcIDs, dstIDs); len(missing) > 0 {
				return fmt.Sprintf("table %s: %d source keys not found in target: %s",
					t, len(missing), sample(missing)), nil
			}
		}
	}
	return "", nil
}

// compareTableSets возвращает описание расхождения или пустую строку.
func compareTableSets(src, dst []model.Table) string {
	if slices.Equal(src, dst) {
		return ""
	}
	return fmt.Sprintf("source tables %v, target tables %v", src, dst)
}

// intersect возвращает таблицы, присутствующие в обоих наборах, в порядке a.
func intersect(a, b []model.Table) []model.Table {
	var out []model.Table
	for _, t := range a {
		if slices.Contains(b, t) {
			out = append(out, t)
		}
	}
	return out
}

// difference возвращает элементы a, отсутствующие в b, в отсортированном виде.
func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[strings.ToLower(v)]; !ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

func sample(ids []string) string {
	if len(ids) <= maxSampleIDs {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:maxSampleIDs], ", ") + ", ..."
}
