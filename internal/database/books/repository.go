// Package books provides the local content source: book, page, paragraph
// and word storage backed by the embedded database.
//
// Read methods return (nil, nil) when the requested record is absent. A
// local miss is the expected terminal outcome of the fallback chain, not an
// error.
package books

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/krizium/kidsreading/internal/entities"
)

// Repository handles all book content database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new book content repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetAllBooks returns every locally known book without its content tree.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}

// GetBookByID returns a book with its full content tree, pages in ascending
// page order, paragraphs and words in render order.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Preload("Pages", func(db *gorm.DB) *gorm.DB {
			return db.Order("page_number ASC")
		}).
		Preload("Pages.Paragraphs", func(db *gorm.DB) *gorm.DB {
			return db.Order("paragraph_order ASC")
		}).
		Preload("Pages.Paragraphs.Words", func(db *gorm.DB) *gorm.DB {
			return db.Order("word_order ASC")
		}).
		First(&book, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetPage returns a single page with paragraphs and words in render order.
func (r *Repository) GetPage(bookID uint, pageNumber int) (*entities.Page, error) {
	var page entities.Page
	err := r.db.
		Preload("Paragraphs", func(db *gorm.DB) *gorm.DB {
			return db.Order("paragraph_order ASC")
		}).
		Preload("Paragraphs.Words", func(db *gorm.DB) *gorm.DB {
			return db.Order("word_order ASC")
		}).
		Where("book_id = ? AND page_number = ?", bookID, pageNumber).
		First(&page).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// SaveBook stores a book and its entire content tree, replacing any
// previously cached copy. The offline flag of an existing record survives
// the refresh. Idempotent under repeated identical calls.
func (r *Repository) SaveBook(book *entities.Book) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing entities.Book
		result := tx.First(&existing, book.ID)
		if result.Error == nil {
			book.IsAvailableOffline = existing.IsAvailableOffline
			if err := tx.Delete(&entities.Book{}, book.ID).Error; err != nil {
				return fmt.Errorf("replace book %d: %w", book.ID, err)
			}
		} else if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}
		return tx.Create(book).Error
	})
}

// SaveSummary upserts a book's metadata without touching its cached
// content tree, used when only the catalog listing was fetched.
func (r *Repository) SaveSummary(book *entities.Book) error {
	var existing entities.Book
	result := r.db.First(&existing, book.ID)
	if result.Error == gorm.ErrRecordNotFound {
		summary := *book
		summary.Pages = nil
		return r.db.Create(&summary).Error
	} else if result.Error != nil {
		return result.Error
	}

	return r.db.Model(&entities.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
		"title":           book.Title,
		"author":          book.Author,
		"cover_image_url": book.CoverImageURL,
		"age_range_min":   book.AgeRangeMin,
		"age_range_max":   book.AgeRangeMax,
	}).Error
}

// SavePage stores a single page's content under an already-cached book,
// replacing any previous copy of the same page. Pages of unknown books are
// skipped so a partial remote fetch cannot create orphaned rows.
func (r *Repository) SavePage(bookID uint, page *entities.Page) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		err := tx.Where("book_id = ? AND page_number = ?", bookID, page.PageNumber).
			Delete(&entities.Page{}).Error
		if err != nil {
			return fmt.Errorf("replace page %d of book %d: %w", page.PageNumber, bookID, err)
		}

		page.BookID = bookID
		return tx.Create(page).Error
	})
}

// MaxPageNumber returns the highest page number of a book, or 0 when the
// book has no pages locally.
func (r *Repository) MaxPageNumber(bookID uint) (int, error) {
	var max int
	err := r.db.Model(&entities.Page{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(MAX(page_number), 0)").
		Scan(&max).Error
	return max, err
}

// MarkBookOffline flips the offline-available flag on a book and on every
// word belonging to it.
func (r *Repository) MarkBookOffline(bookID uint, available bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&entities.Book{}).
			Where("id = ?", bookID).
			Update("is_available_offline", available).Error
		if err != nil {
			return err
		}

		return tx.Model(&entities.Word{}).
			Where("paragraph_id IN (?)",
				tx.Model(&entities.Paragraph{}).Select("id").
					Where("page_id IN (?)",
						tx.Model(&entities.Page{}).Select("id").Where("book_id = ?", bookID)),
			).
			Update("is_available_offline", available).Error
	})
}

// AssignAudioKeys records the audio cache key for every word of a book whose
// normalized text appears in keys. Keys are matched case-insensitively.
func (r *Repository) AssignAudioKeys(bookID uint, keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for text, key := range keys {
			err := tx.Model(&entities.Word{}).
				Where("LOWER(text) = ?", strings.ToLower(text)).
				Where("paragraph_id IN (?)",
					tx.Model(&entities.Paragraph{}).Select("id").
						Where("page_id IN (?)",
							tx.Model(&entities.Page{}).Select("id").Where("book_id = ?", bookID)),
				).
				Update("audio_cache_key", key).Error
			if err != nil {
				return fmt.Errorf("assign audio key for %q: %w", text, err)
			}
		}
		return nil
	})
}

// DeleteBook removes a book and, via cascade, its pages, paragraphs and
// words.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Delete(&entities.Book{}, id).Error
}
