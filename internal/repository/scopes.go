package repository

import (
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// anyGenre matches rows whose genre column shares at least one of genres.
// PostgreSQL uses array overlap; other dialects match the stored
// "{a,b}" literal token by token.
func anyGenre(column string, genres []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(genres) == 0 {
			return db
		}
		expr, args := genreMatch(db, column, genres)
		return db.Where(expr, args...)
	}
}

// noGenre rejects rows carrying any of genres
func noGenre(column string, genres []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(genres) == 0 {
			return db
		}
		expr, args := genreMatch(db, column, genres)
		return db.Where("NOT ("+expr+")", args...)
	}
}

func genreMatch(db *gorm.DB, column string, genres []string) (string, []interface{}) {
	normalized := lowerAll(genres)
	if db.Dialector.Name() == "postgres" {
		return "COALESCE(" + column + ", '{}') && ?", []interface{}{pq.Array(normalized)}
	}

	token := "(',' || LOWER(TRIM(COALESCE(" + column + ", ''), '{}')) || ',')"
	clauses := make([]string, len(normalized))
	args := make([]interface{}, len(normalized))
	for i, g := range normalized {
		clauses[i] = token + " LIKE ?"
		args[i] = "%," + g + ",%"
	}
	return strings.Join(clauses, " OR "), args
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
