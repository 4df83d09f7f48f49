package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrValidation — запись нарушает инвариант каталога.
var ErrValidation = errors.New("ошибка валидации")

// Границы рейтинга кинопроизведения.
const (
	MinRating = 0.0
	MaxRating = 10.0
)

// FilmworkType — тип кинопроизведения.
type FilmworkType string

const (
	FilmworkTypeMovie  FilmworkType = "movie"
	FilmworkTypeTVShow FilmworkType = "tv_show"
)

// Valid сообщает, входит ли тип в перечисление.
func (t FilmworkType) Valid() bool {
	return t == FilmworkTypeMovie || t == FilmworkTypeTVShow
}

// Известные роли участника. Роль хранится свободным текстом,
// значения ниже встречаются в исходных данных.
const (
	RoleDirector = "director"
	RoleActor    = "actor"
	RoleProducer = "producer"
	RoleWriter   = "writer"
)

// KnownRole сообщает, входит ли роль в перечень известных.
// Остальные роли (включая пустую) допустимы и загружаются как есть.
func KnownRole(role string) bool {
	switch role {
	case RoleDirector, RoleActor, RoleProducer, RoleWriter:
		return true
	}
	return false
}

// Record — строка одной из таблиц каталога.
type Record interface {
	// Table возвращает таблицу, которой принадлежит запись.
	Table() Table
	// Key возвращает первичный ключ.
	Key() uuid.UUID
	// Values возвращает значения в каноническом порядке колонок Table().Columns().
	Values() []any
	// Validate проверяет инварианты записи.
	Validate() error
}

// Genre — жанр.
type Genre struct {
	// ID — UUID жанра
	ID uuid.UUID
	// Name — название
	Name string
	// Description — описание (опционально)
	Description *string
	// CreatedAt — время создания
	CreatedAt *time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt *time.Time
}

func (g Genre) Table() Table   { return TableGenre }
func (g Genre) Key() uuid.UUID { return g.ID }

func (g Genre) Values() []any {
	return []any{g.ID.String(), g.Name, g.Description, g.CreatedAt, g.UpdatedAt}
}

func (g Genre) Validate() error {
	return requireID("genre.id", g.ID)
}

// Filmwork — кинопроизведение (фильм или сериал).
type Filmwork struct {
	// ID — UUID кинопроизведения
	ID uuid.UUID
	// Title — название
	Title string
	// Description — описание (опционально)
	Description *string
	// CreationDate — дата создания произведения (опционально)
	CreationDate *time.Time
	// FilePath — путь к файлу (опционально)
	FilePath *string
	// Type — movie или tv_show
	Type FilmworkType
	// Rating — рейтинг 0.0–10.0 (опционально)
	Rating *float64
	// CreatedAt — время создания записи
	CreatedAt *time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt *time.Time
}

func (f Filmwork) Table() Table   { return TableFilmWork }
func (f Filmwork) Key() uuid.UUID { return f.ID }

func (f Filmwork) Values() []any {
	return []any{
		f.ID.String(), f.Title, f.Description, f.CreationDate, f.FilePath,
		string(f.Type), f.Rating, f.CreatedAt, f.UpdatedAt,
	}
}

func (f Filmwork) Validate() error {
	if err := requireID("film_work.id", f.ID); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: film_work.type %q, допустимые: movie, tv_show", ErrValidation, string(f.Type))
	}
	if f.Rating != nil && !validRating(*f.Rating) {
		return fmt.Errorf("%w: film_work.rating %v вне диапазона [%.1f, %.1f]",
			ErrValidation, *f.Rating, MinRating, MaxRating)
	}
	return nil
}

// Person — участник (актёр, режиссёр, сценарист…).
type Person struct {
	// ID — UUID участника
	ID uuid.UUID
	// FullName — полное имя
	FullName string
	// CreatedAt — время создания
	CreatedAt *time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt *time.Time
}

func (p Person) Table() Table   { return TablePerson }
func (p Person) Key() uuid.UUID { return p.ID }

func (p Person) Values() []any {
	return []any{p.ID.String(), p.FullName, p.CreatedAt, p.UpdatedAt}
}

func (p Person) Validate() error {
	return requireID("person.id", p.ID)
}

// GenreFilmwork — связь кинопроизведения с жанром.
type GenreFilmwork struct {
	ID         uuid.UUID
	FilmworkID uuid.UUID
	GenreID    uuid.UUID
	CreatedAt  *time.Time
}

func (gf GenreFilmwork) Table() Table   { return TableGenreFilmWork }
func (gf GenreFilmwork) Key() uuid.UUID { return gf.ID }

func (gf GenreFilmwork) Values() []any {
	return []any{gf.ID.String(), gf.FilmworkID.String(), gf.GenreID.String(), gf.CreatedAt}
}

func (gf GenreFilmwork) Validate() error {
	if err := requireID("genre_film_work.id", gf.ID); err != nil {
		return err
	}
	if err := requireID("genre_film_work.film_work_id", gf.FilmworkID); err != nil {
		return err
	}
	return requireID("genre_film_work.genre_id", gf.GenreID)
}

// PersonFilmwork — участие персоны в кинопроизведении с ролью.
type PersonFilmwork struct {
	ID         uuid.UUID
	FilmworkID uuid.UUID
	PersonID   uuid.UUID
	// Role — роль свободным текстом (director, actor, producer…)
	Role      string
	CreatedAt *time.Time
}

func (pf PersonFilmwork) Table() Table   { return TablePersonFilmWork }
func (pf PersonFilmwork) Key() uuid.UUID { return pf.ID }

func (pf PersonFilmwork) Values() []any {
	return []any{pf.ID.String(), pf.FilmworkID.String(), pf.PersonID.String(), pf.Role, pf.CreatedAt}
}

func (pf PersonFilmwork) Validate() error {
	if err := requireID("person_film_work.id", pf.ID); err != nil {
		return err
	}
	if err := requireID("person_film_work.film_work_id", pf.FilmworkID); err != nil {
		return err
	}
	return requireID("person_film_work.person_id", pf.PersonID)
}

// validRating ложна для NaN: сравнения с NaN всегда false.
func validRating(r float64) bool {
	return !math.IsNaN(r) && r >= MinRating && r <= MaxRating
}

func requireID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: %s пустой", ErrValidation, field)
	}
	return nil
}
