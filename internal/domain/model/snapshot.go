package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Snapshot — данные всех пяти таблиц, прочитанные из источника.
// Порядок строк внутри каждой таблицы совпадает с порядком в источнике.
type Snapshot struct {
	Genres          []Genre
	Filmworks       []Filmwork
	GenreFilmworks  []GenreFilmwork
	Persons         []Person
	PersonFilmworks []PersonFilmwork
}

// Records возвращает строки таблицы в виде []Record.
// Для нераспознанной таблицы возвращает nil.
func (s *Snapshot) Records(t Table) []Record {
	switch t {
	case TableGenre:
		return toRecords(s.Genres)
	case TableFilmWork:
		return toRecords(s.Filmworks)
	case TableGenreFilmWork:
		return toRecords(s.GenreFilmworks)
	case TablePerson:
		return toRecords(s.Persons)
	case TablePersonFilmWork:
		return toRecords(s.PersonFilmworks)
	}
	return nil
}

// Len возвращает количество строк таблицы.
func (s *Snapshot) Len(t Table) int {
	switch t {
	case TableGenre:
		return len(s.Genres)
	case TableFilmWork:
		return len(s.Filmworks)
	case TableGenreFilmWork:
		return len(s.GenreFilmworks)
	case TablePerson:
		return len(s.Persons)
	case TablePersonFilmWork:
		return len(s.PersonFilmworks)
	}
	return 0
}

// Total — суммарное количество строк во всех таблицах.
func (s *Snapshot) Total() int {
	n := 0
	for _, t := range Tables {
		n += s.Len(t)
	}
	return n
}

// Validate проверяет все записи снимка и уникальность первичных ключей
// внутри каждой таблицы. Возвращает первую ошибку.
func (s *Snapshot) Validate() error {
	for _, t := range LoadOrder {
		records := s.Records(t)
		seen := make(map[uuid.UUID]struct{}, len(records))
		for i, r := range records {
			if err := r.Validate(); err != nil {
				return err
			}
			if _, dup := seen[r.Key()]; dup {
				return fmt.Errorf("%w: %s.id %s повторяется (строка %d)", ErrValidation, t, r.Key(), i+1)
			}
			seen[r.Key()] = struct{}{}
		}
	}
	return nil
}

func toRecords[T Record](items []T) []Record {
	if len(items) == 0 {
		return nil
	}
	out := make([]Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
