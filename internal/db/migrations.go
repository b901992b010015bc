package db

import (
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *DB) error {
	// Catalog tables first, synthetic tables reference books and addresses
	models := append(CatalogModels(), TestDataModels()...)
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}

	if db.Dialect() == DialectPostgres {
		if err := createIndexes(db.DB); err != nil {
			return err
		}
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// GIN index for full-text search on title
		`CREATE INDEX IF NOT EXISTS idx_books_title_search ON books USING gin(to_tsvector('english', coalesce(title, '')))`,

		// Orders are usually listed per user, newest first
		`CREATE INDEX IF NOT EXISTS idx_orders_user_placement ON orders(user_id, placement DESC)`,

		// Reviews by score for ranking queries
		`CREATE INDEX IF NOT EXISTS idx_reviews_score ON reviews(score)`,
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
