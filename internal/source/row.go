package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDecode — строку источника не удалось преобразовать в запись каталога.
var ErrDecode = errors.New("ошибка разбора строки источника")

// timeLayouts — форматы времени, встречающиеся в SQLite-выгрузках каталога.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// row — значения одной строки по имени колонки.
// Первая ошибка разбора запоминается, последующие вызовы её не перезаписывают.
type row struct {
	values map[string]any
	err    error
}

func newRow(cols []string, vals []any) *row {
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		m[strings.ToLower(c)] = vals[i]
	}
	return &row{values: m}
}

func (r *row) fail(col, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: колонка %q: %s", ErrDecode, col, fmt.Sprintf(format, args...))
	}
}

// lookup возвращает значение колонки, отсутствие колонки считается ошибкой.
func (r *row) lookup(col string) (any, bool) {
	v, ok := r.values[col]
	if !ok {
		r.fail(col, "колонка отсутствует в таблице")
		return nil, false
	}
	return v, true
}

func (r *row) uuid(col string) uuid.UUID {
	s := r.text(col)
	if r.err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		r.fail(col, "некорректный UUID %q", s)
		return uuid.Nil
	}
	return id
}

func (r *row) text(col string) string {
	s := r.optText(col)
	if r.err != nil {
		return ""
	}
	if s == nil {
		r.fail(col, "NULL в обязательной колонке")
		return ""
	}
	return *s
}

func (r *row) optText(col string) *string {
	v, ok := r.lookup(col)
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		return &x
	case []byte:
		s := string(x)
		return &s
	default:
		r.fail(col, "ожидалась строка, получено %T", v)
		return nil
	}
}

func (r *row) optFloat(col string) *float64 {
	v, ok := r.lookup(col)
	if !ok || v == nil {
		return nil
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			r.fail(col, "некорректное число %q", x)
			return nil
		}
		f = parsed
	default:
		r.fail(col, "ожидалось число, получено %T", v)
		return nil
	}
	// SQLite хранит 'NaN' и 'Inf' в REAL-колонке как текст, ParseFloat их принимает.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail(col, "недопустимое число %v", f)
		return nil
	}
	return &f
}

func (r *row) optTime(col string) *time.Time {
	v, ok := r.lookup(col)
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case time.Time:
		return &x
	case int64:
		t := time.Unix(x, 0).UTC()
		return &t
	case []byte:
		return r.parseTime(col, string(x))
	case string:
		return r.parseTime(col, x)
	default:
		r.fail(col, "ожидалось время, получено %T", v)
		return nil
	}
}

func (r *row) parseTime(col, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	r.fail(col, "некорректное время %q", s)
	return nil
}
