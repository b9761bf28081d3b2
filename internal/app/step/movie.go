package step

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tigerroll/surfbatch/internal/app/domain"
	item "github.com/tigerroll/surfbatch/pkg/batch/component/item"
	"github.com/tigerroll/surfbatch/pkg/batch/component/step/reader"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
)

// MovieColumns is the layout of the movie CSV: title,year,genre,rating.
var MovieColumns = []reader.Column{
	{Name: "title", Type: reader.FieldString},
	{Name: "year", Type: reader.FieldInt},
	{Name: "genre", Type: reader.FieldString},
	{Name: "rating", Type: reader.FieldFloat},
}

// UnknownGenre is assigned to movies imported without a genre.
const UnknownGenre = "Unknown"

// MovieQuery selects every movie in export order.
const MovieQuery = "SELECT title, year, genre, rating FROM movies ORDER BY title, year"

// MapMovieRecord converts a parsed CSV line into a Movie.
func MapMovieRecord(r reader.Record) (domain.Movie, error) {
	title, _ := r["title"].(string)
	if strings.TrimSpace(title) == "" {
		return domain.Movie{}, fmt.Errorf("movie without title")
	}
	year, _ := r["year"].(int)
	genre, _ := r["genre"].(string)
	rating, _ := r["rating"].(float64)
	return domain.Movie{
		Title:  strings.TrimSpace(title),
		Year:   int32(year),
		Genre:  strings.TrimSpace(genre),
		Rating: rating,
	}, nil
}

// ScanMovie maps the current row of MovieQuery.
func ScanMovie(rows *sql.Rows) (domain.Movie, error) {
	var m domain.Movie
	if err := rows.Scan(&m.Title, &m.Year, &m.Genre, &m.Rating); err != nil {
		return domain.Movie{}, err
	}
	return m, nil
}

// GenrePartition places exported movies under genre=<genre>.
func GenrePartition(m domain.Movie) (string, error) {
	genre := m.Genre
	if genre == "" {
		genre = UnknownGenre
	}
	return "genre=" + strings.ToLower(genre), nil
}

// NewMovieProcessor fills in a missing genre, then filters out movies released
// before minYear. A year of 0, read from a not-applicable marker, is kept only
// when minYear is 0.
func NewMovieProcessor(minYear int32) port.ItemProcessor[domain.Movie, domain.Movie] {
	normalize := item.FunctionItemProcessor[domain.Movie, domain.Movie](func(ctx context.Context, m domain.Movie) (domain.Movie, error) {
		if m.Genre == "" {
			m.Genre = UnknownGenre
		}
		return m, nil
	})
	byYear := item.NewFilteringItemProcessor(func(m domain.Movie) bool { return m.Year >= minYear })
	return item.Compose[domain.Movie, domain.Movie, domain.Movie](normalize, byYear)
}
