package source

import "github.com/bigkaa/movies-etl/internal/domain/model"

func decodeGenre(r *row) model.Genre {
	return model.Genre{
		ID:          r.uuid("id"),
		Name:        r.text("name"),
		Description: r.optText("description"),
		CreatedAt:   r.optTime("created_at"),
		UpdatedAt:   r.optTime("updated_at"),
	}
}

func decodeFilmwork(r *row) model.Filmwork {
	return model.Filmwork{
		ID:           r.uuid("id"),
		Title:        r.text("title"),
		Description:  r.optText("description"),
		CreationDate: r.optTime("creation_date"),
		FilePath:     r.optText("file_path"),
		Type:         model.FilmworkType(r.text("type")),
		Rating:       r.optFloat("rating"),
		CreatedAt:    r.optTime("created_at"),
		UpdatedAt:    r.optTime("updated_at"),
	}
}

func decodeGenreFilmwork(r *row) model.GenreFilmwork {
	return model.GenreFilmwork{
		ID:         r.uuid("id"),
		FilmworkID: r.uuid("film_work_id"),
		GenreID:    r.uuid("genre_id"),
		CreatedAt:  r.optTime("created_at"),
	}
}

func decodePerson(r *row) model.Person {
	return model.Person{
		ID:        r.uuid("id"),
		FullName:  r.text("full_name"),
		CreatedAt: r.optTime("created_at"),
		UpdatedAt: r.optTime("updated_at"),
	}
}

func decodePersonFilmwork(r *row) model.PersonFilmwork {
	return model.PersonFilmwork{
		ID:         r.uuid("id"),
		FilmworkID: r.uuid("film_work_id"),
		PersonID:   r.uuid("person_id"),
		Role:       r.text("role"),
		CreatedAt:  r.optTime("created_at"),
	}
}
