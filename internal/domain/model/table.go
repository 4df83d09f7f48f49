// Пакет model — доменные типы каталога фильмов: записи пяти таблиц,
// перечисление имён таблиц и снимок данных, извлечённый из источника.
package model

// Table — имя таблицы каталога. Единое перечисление для extractor,
// loader и checker.
type Table string

const (
	TableFilmWork       Table = "film_work"
	TableGenre          Table = "genre"
	TableGenreFilmWork  Table = "genre_film_work"
	TablePerson         Table = "person"
	TablePersonFilmWork Table = "person_film_work"
)

// Tables — все распознаваемые таблицы в алфавитном порядке.
var Tables = []Table{
	TableFilmWork,
	TableGenre,
	TableGenreFilmWork,
	TablePerson,
	TablePersonFilmWork,
}

// LoadOrder — порядок загрузки в целевую БД. Ассоциативные таблицы
// идут после таблиц, на которые ссылаются.
var LoadOrder = []Table{
	TableGenre,
	TableFilmWork,
	TableGenreFilmWork,
	TablePerson,
	TablePersonFilmWork,
}

// columns — канонический порядок колонок каждой таблицы.
var columns = map[Table][]string{
	TableGenre:          {"id", "name", "description", "created_at", "updated_at"},
	TableFilmWork:       {"id", "title", "description", "creation_date", "file_path", "type", "rating", "created_at", "updated_at"},
	TableGenreFilmWork:  {"id", "film_work_id", "genre_id", "created_at"},
	TablePerson:         {"id", "full_name", "created_at", "updated_at"},
	TablePersonFilmWork: {"id", "film_work_id", "person_id", "role", "created_at"},
}

// ParseTable возвращает Table для имени таблицы, если оно распознано.
func ParseTable(name string) (Table, bool) {
	if t := Table(name); t.Valid() {
		return t, true
	}
	return "", false
}

// Columns возвращает копию канонического списка колонок таблицы.
func (t Table) Columns() []string {
	cols := columns[t]
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Valid сообщает, распознана ли таблица.
func (t Table) Valid() bool {
	_, ok := columns[t]
	return ok
}

func (t Table) String() string {
	return string(t)
}

// RecognizedSet фильтрует имена таблиц, оставляя только распознанные.
// Порядок результата совпадает с Tables.
func RecognizedSet(names []string) []Table {
	present := make(map[Table]bool, len(names))
	for _, n := range names {
		if t, ok := ParseTable(n); ok {
			present[t] = true
		}
	}
	var out []Table
	for _, t := range Tables {
		if present[t] {
			out = append(out, t)
		}
	}
	return out
}
