package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/movies-etl/internal/domain/model"
)

// MaxBindParams — предел параметров одного запроса в протоколе PostgreSQL.
const MaxBindParams = 65535

// ContentRepository — доступ к таблицам каталога в схеме content.
type ContentRepository interface {
	// InsertIgnore вставляет записи одной таблицы, пропуская строки,
	// чей первичный ключ уже существует. Возвращает число вставленных строк.
	InsertIgnore(ctx context.Context, table model.Table, records []model.Record) (int, error)
	// Tables возвращает имена таблиц схемы.
	Tables(ctx context.Context) ([]string, error)
	// CountRows возвращает количество строк таблицы.
	CountRows(ctx context.Context, table model.Table) (int, error)
	// IDs возвращает первичные ключи таблицы в текстовом виде.
	IDs(ctx context.Context, table model.Table) ([]string, error)
}

// contentRepo — реализация ContentRepository.
type contentRepo struct {
	db        DBTX
	schema    string
	batchSize int
}

// NewContentRepository создаёт репозиторий каталога.
// batchSize ограничивает число строк в одном INSERT (0: только лимит параметров).
func NewContentRepository(db DBTX, schema string, batchSize int) ContentRepository {
	return &contentRepo{db: db, schema: schema, batchSize: batchSize}
}

func (r *contentRepo) InsertIgnore(ctx context.Context, table model.Table, records []model.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, chunk := range chunkRecords(records, RowsPerStatement(len(table.Columns()), r.batchSize)) {
		query, args := BuildInsertIgnore(r.schema, table, chunk)
		tag, err := r.db.Exec(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("ошибка вставки в %s.%s: %w", r.schema, table, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *contentRepo) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`

	rows, err := r.db.Query(ctx, query, r.schema)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка таблиц схемы %s: %w", r.schema, err)
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

func (r *contentRepo) CountRows(ctx context.Context, table model.Table) (int, error) {
	query := "SELECT COUNT(*) FROM " + qualified(r.schema, table)

	var n int
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта строк %s.%s: %w", r.schema, table, err)
	}
	return n, nil
}

func (r *contentRepo) IDs(ctx context.Context, table model.Table) ([]string, error) {
	query := "SELECT id::text FROM " + qualified(r.schema, table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ключей %s.%s: %w", r.schema, table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ключа: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BuildInsertIgnore строит один многострочный INSERT ... ON CONFLICT (id) DO NOTHING.
// Колонки перечисляются в каноническом порядке таблицы.
func BuildInsertIgnore(schema string, table model.Table, records []model.Record) (string, []any) {
	cols := table.Columns()

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qualified(schema, table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*len(cols))
	argNum := 1
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argNum))
			argNum++
		}
		sb.WriteByte(')')
		args = append(args, rec.Values()...)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	return sb.String(), args
}

// RowsPerStatement возвращает максимальное число строк в одном INSERT
// для таблицы с numCols колонками.
func RowsPerStatement(numCols, batchSize int) int {
	limit := MaxBindParams / numCols
	if batchSize > 0 && batchSize < limit {
		return batchSize
	}
	return limit
}

func chunkRecords(records []model.Record, size int) [][]model.Record {
	var chunks [][]model.Record
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

func qualified(schema string, table model.Table) string {
	return pgx.Identifier{schema, table.String()}.Sanitize()
}
