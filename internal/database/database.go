package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/krizium/kidsreading/internal/entities"
)

// DefaultUserID is the single local reader seeded on first start.
const DefaultUserID uint = 1

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Cascading deletes (book -> pages -> paragraphs -> words) rely on
	// foreign keys being enforced.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Page{},
		&entities.Paragraph{},
		&entities.Word{},
		&entities.ReadingProgress{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedDefaultUser(); err != nil {
		return nil, fmt.Errorf("failed to seed default user: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedDefaultUser() error {
	var existing entities.User
	result := d.DB.First(&existing, DefaultUserID)
	if result.Error == gorm.ErrRecordNotFound {
		user := entities.User{ID: DefaultUserID, Name: "Reader"}
		if err := d.DB.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("Created default user %d", DefaultUserID)
		return nil
	}
	return result.Error
}
