// Package progress provides reading-progress storage with upsert semantics:
// at most one record exists per (user, book).
package progress

import (
	"time"

	"gorm.io/gorm"

	"github.com/krizium/kidsreading/internal/entities"
)

// Repository handles all reading-progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reading-progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the progress record for a user and book, or (nil, nil) when
// the user has not read that book yet.
func (r *Repository) Get(userID, bookID uint) (*entities.ReadingProgress, error) {
	var progress entities.ReadingProgress
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&progress).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// Upsert creates or updates the single progress record for (user, book).
//
// TimesCompleted increments only on the transition where the new page is
// the book's last page and the previous LastPageRead was lower; repeating
// the same page does not increment it again. maxPage is the book's highest
// page number (0 when unknown, which disables completion tracking for the
// write). Idempotent under repeated identical calls.
func (r *Repository) Upsert(userID, bookID uint, pageNumber, maxPage, timeSpentSeconds int) (*entities.ReadingProgress, error) {
	var saved *entities.ReadingProgress
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing entities.ReadingProgress
		result := tx.Where("user_id = ? AND book_id = ?", userID, bookID).First(&existing)

		now := time.Now().UTC()
		if result.Error == gorm.ErrRecordNotFound {
			progress := entities.ReadingProgress{
				UserID:                userID,
				BookID:                bookID,
				LastPageRead:          pageNumber,
				LastReadTime:          now,
				TotalTimeSpentSeconds: timeSpentSeconds,
			}
			if maxPage > 0 && pageNumber >= maxPage {
				progress.TimesCompleted = 1
			}
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
			saved = &progress
			return nil
		} else if result.Error != nil {
			return result.Error
		}

		if maxPage > 0 && pageNumber >= maxPage && existing.LastPageRead < maxPage {
			existing.TimesCompleted++
		}
		existing.LastPageRead = pageNumber
		existing.LastReadTime = now
		existing.TotalTimeSpentSeconds += timeSpentSeconds
		existing.SyncedToRemote = false
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		saved = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Recent returns the user's most recently read books with their progress,
// newest first.
func (r *Repository) Recent(userID uint, limit int) ([]entities.ReadingProgress, error) {
	var records []entities.ReadingProgress
	query := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("last_read_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// Unsynced returns progress records carrying local updates that have not
// been pushed to the remote API yet.
func (r *Repository) Unsynced() ([]entities.ReadingProgress, error) {
	var records []entities.ReadingProgress
	err := r.db.Where("synced_to_remote = ?", false).Find(&records).Error
	return records, err
}

// MarkSynced flags a record as pushed to the remote API.
func (r *Repository) MarkSynced(id uint) error {
	return r.db.Model(&entities.ReadingProgress{}).
		Where("id = ?", id).
		Update("synced_to_remote", true).Error
}
