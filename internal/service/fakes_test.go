package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/movies-etl/internal/domain/model"
	"github.com/bigkaa/movies-etl/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memTarget — целевая БД в памяти. Понимает только INSERT ... ON CONFLICT (id)
// DO NOTHING из repository.BuildInsertIgnore и реализует Inspector.
type memTarget struct {
	rows       map[string][]string
	tuples     map[string]map[string][]any // таблица → id → значения в порядке колонок
	statements []string                    // таблицы в порядке выполнения INSERT
	failTable  string
	txCalls    int
}

// newMemTarget создаёт пустые таблицы каталога, как после миграции.
func newMemTarget() *memTarget {
	m := &memTarget{rows: map[string][]string{}, tuples: map[string]map[string][]any{}}
	for _, t := range model.Tables {
		m.rows[t.String()] = nil
		m.tuples[t.String()] = map[string][]any{}
	}
	return m
}

func (m *memTarget) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	table := insertTable(sql)
	m.statements = append(m.statements, table)
	if table == m.failTable {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}

	cols := strings.Count(sql[strings.Index(sql, "(")+1:strings.Index(sql, ")")], ",") + 1
	inserted := 0
	for i := 0; i < len(args); i += cols {
		id, _ := args[i].(string)
		if slices.Contains(m.rows[table], id) {
			continue
		}
		m.rows[table] = append(m.rows[table], id)
		m.tuples[table][id] = slices.Clone(args[i : i+cols])
		inserted++
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", inserted)), nil
}

func (m *memTarget) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("memTarget: Query не поддерживается")
}

func (m *memTarget) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

// RunInTx восстанавливает содержимое при ошибке fn.
func (m *memTarget) RunInTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	m.txCalls++
	saved := make(map[string][]string, len(m.rows))
	for k, v := range m.rows {
		saved[k] = slices.Clone(v)
	}
	savedTuples := make(map[string]map[string][]any, len(m.tuples))
	for k, v := range m.tuples {
		savedTuples[k] = maps.Clone(v)
	}
	if err := fn(m); err != nil {
		m.rows = saved
		m.tuples = savedTuples
		return err
	}
	return nil
}

func (m *memTarget) Tables(context.Context) ([]string, error) {
	names := slices.Collect(maps.Keys(m.rows))
	slices.Sort(names)
	return names, nil
}

func (m *memTarget) CountRows(_ context.Context, t model.Table) (int, error) {
	return len(m.rows[t.String()]), nil
}

func (m *memTarget) IDs(_ context.Context, t model.Table) ([]string, error) {
	return slices.Clone(m.rows[t.String()]), nil
}

// insertTable извлекает имя таблицы из INSERT INTO "schema"."table".
func insertTable(sql string) string {
	rest := sql[strings.Index(sql, `"."`)+3:]
	return rest[:strings.Index(rest, `"`)]
}

// fakeInspector — Inspector с фиксированным содержимым.
type fakeInspector struct {
	tables  []string
	ids     map[model.Table][]string
	err     error
	idCalls int
}

func (f *fakeInspector) Tables(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tables, nil
}

func (f *fakeInspector) CountRows(_ context.Context, t model.Table) (int, error) {
	return len(f.ids[t]), nil
}

func (f *fakeInspector) IDs(_ context.Context, t model.Table) ([]string, error) {
	f.idCalls++
	return f.ids[t], nil
}
