// Package domain holds the records moved by the application jobs.
package domain

// Movie is one row of the movies table and of the exported Parquet files.
type Movie struct {
	Title  string  `gorm:"column:title;primaryKey" parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year   int32   `gorm:"column:year;primaryKey" parquet:"name=year, type=INT32"`
	Genre  string  `gorm:"column:genre" parquet:"name=genre, type=BYTE_ARRAY, convertedtype=UTF8"`
	Rating float64 `gorm:"column:rating" parquet:"name=rating, type=DOUBLE"`
}

// TableName specifies the table name for Movie.
func (Movie) TableName() string {
	return "movies"
}
