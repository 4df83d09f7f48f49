// Пакет source — чтение каталога фильмов из исходного файла SQLite.
//
// Extractor обнаруживает таблицы через sqlite_master, читает пять
// распознаваемых таблиц и разбирает строки по именам колонок (не по позиции),
// поэтому порядок колонок в источнике и лишние колонки на результат не влияют.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bigkaa/movies-etl/internal/domain/model"
)

// Extractor читает таблицы каталога из SQLite.
type Extractor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExtractor создаёт Extractor поверх открытого соединения SQLite.
func NewExtractor(db *sql.DB, logger *slog.Logger) *Extractor {
	return &Extractor{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_extractor")),
	}
}

// Tables возвращает имена всех таблиц источника (включая нераспознанные).
func (e *Extractor) Tables(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка таблиц SQLite: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования имени таблицы: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Extract читает все распознанные таблицы источника в Snapshot.
// Таблица, отсутствующая в источнике, даёт пустой срез. При первой ошибке
// весь снимок отбрасывается.
func (e *Extractor) Extract(ctx context.Context) (*model.Snapshot, error) {
	names, err := e.Tables(ctx)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{}
	for _, name := range names {
		table, ok := model.ParseTable(name)
		if !ok {
			e.logger.Debug("Таблица пропущена: не входит в каталог", slog.String("table", name))
			continue
		}

		if err := e.extractTable(ctx, table, snap); err != nil {
			return nil, err
		}

		e.logger.Info("Таблица прочитана",
			slog.String("table", table.String()),
			slog.Int("rows", snap.Len(table)),
		)
	}

	for _, t := range model.Tables {
		if snap.Len(t) == 0 {
			e.logger.Debug("Таблица пуста или отсутствует в источнике", slog.String("table", t.String()))
		}
	}

	if n := unknownRoles(snap.PersonFilmworks); n > 0 {
		e.logger.Warn("Роли вне известного перечня, строки загружаются как есть",
			slog.Int("rows", n),
		)
	}

	return snap, nil
}

// unknownRoles считает связи персон с пустой или нестандартной ролью.
func unknownRoles(links []model.PersonFilmwork) int {
	n := 0
	for _, pf := range links {
		if !model.KnownRole(pf.Role) {
			n++
		}
	}
	return n
}

// extractTable читает строки одной таблицы и добавляет их в snap.
func (e *Extractor) extractTable(ctx context.Context, table model.Table, snap *model.Snapshot) error {
	return e.scanTable(ctx, table, func(r *row) error {
		switch table {
		case model.TableGenre:
			return collect(r, decodeGenre, &snap.Genres)
		case model.TableFilmWork:
			return collect(r, decodeFilmwork, &snap.Filmworks)
		case model.TableGenreFilmWork:
			return collect(r, decodeGenreFilmwork, &snap.GenreFilmworks)
		case model.TablePerson:
			return collect(r, decodePerson, &snap.Persons)
		case model.TablePersonFilmWork:
			return collect(r, decodePersonFilmwork, &snap.PersonFilmworks)
		}
		return nil
	})
}

// collect разбирает строку, проверяет инварианты и добавляет запись в dst.
func collect[T model.Record](r *row, decode func(*row) T, dst *[]T) error {
	rec := decode(r)
	if r.err != nil {
		return r.err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	*dst = append(*dst, rec)
	return nil
}

// scanTable выполняет SELECT * по таблице и вызывает fn для каждой строки.
// Ошибка fn дополняется именем таблицы и номером строки (с 1).
func (e *Extractor) scanTable(ctx context.Context, table model.Table, fn func(r *row) error) error {
	rows, err := e.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table.String()))
	if err != nil {
		return fmt.Errorf("ошибка чтения таблицы %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("ошибка получения колонок таблицы %s: %w", table, err)
	}

	n := 0
	for rows.Next() {
		n++
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("ошибка сканирования строки %d таблицы %s: %w", n, table, err)
		}
		if err := fn(newRow(cols, vals)); err != nil {
			return fmt.Errorf("таблица %s, строка %d: %w", table, n, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка чтения таблицы %s: %w", table, err)
	}
	return nil
}

// CountRows возвращает количество строк таблицы источника.
func (e *Extractor) CountRows(ctx context.Context, table model.Table) (int, error) {
	var n int
	err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table.String())).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта строк %s в SQLite: %w", table, err)
	}
	return n, nil
}

// IDs возвращает первичные ключи таблицы источника в каноническом виде UUID.
func (e *Extractor) IDs(ctx context.Context, table model.Table) ([]string, error) {
	var ids []string
	err := e.scanTable(ctx, table, func(r *row) error {
		id := r.uuid("id")
		if r.err != nil {
			return r.err
		}
		ids = append(ids, id.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
