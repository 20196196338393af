package entities

import (
	"time"
)

// Book is a children's book with its full content tree.
type Book struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Title              string    `gorm:"index;size:512" json:"title"`
	Author             string    `gorm:"index;size:256" json:"author"`
	CoverImageURL      string    `gorm:"size:2048" json:"cover_image_url,omitempty"`
	AgeRangeMin        int       `json:"age_range_min"`
	AgeRangeMax        int       `json:"age_range_max"`
	IsAvailableOffline bool      `gorm:"index" json:"is_available_offline"`
	Pages              []Page    `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"pages,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Page belongs to a book. PageNumber is unique within the book and drives
// navigation order.
type Page struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	BookID     uint        `gorm:"uniqueIndex:idx_book_page" json:"book_id"`
	PageNumber int         `gorm:"uniqueIndex:idx_book_page" json:"page_number"`
	ImageURL   string      `gorm:"size:2048" json:"image_url,omitempty"`
	Paragraphs []Paragraph `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE" json:"paragraphs,omitempty"`
}

// Paragraph holds an ordered run of words on a page.
type Paragraph struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PageID uint   `gorm:"uniqueIndex:idx_page_paragraph" json:"page_id"`
	Order  int    `gorm:"uniqueIndex:idx_page_paragraph;column:paragraph_order" json:"order"`
	Words  []Word `gorm:"foreignKey:ParagraphID;constraint:OnDelete:CASCADE" json:"words,omitempty"`
}

// Word is a single tappable word. AudioCacheKey, once assigned, is the
// stable content-derived key for this word's text; two words with the same
// normalized text share one cached artifact.
type Word struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	ParagraphID        uint   `gorm:"index" json:"paragraph_id"`
	Text               string `gorm:"size:128" json:"text"`
	Order              int    `gorm:"column:word_order" json:"order"`
	AudioCacheKey      string `gorm:"size:128" json:"audio_cache_key,omitempty"`
	IsAvailableOffline bool   `json:"is_available_offline"`
}

// ReadingProgress tracks a single user's position in a book. At most one
// record exists per (user, book); writes are upserts.
//
// SyncedToRemote is false while the record holds a locally-made update that
// has not yet been pushed to the remote API.
type ReadingProgress struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"uniqueIndex:idx_user_book" json:"user_id"`
	BookID                uint      `gorm:"uniqueIndex:idx_user_book" json:"book_id"`
	LastPageRead          int       `json:"last_page_read"`
	LastReadTime          time.Time `json:"last_read_time"`
	TimesCompleted        int       `json:"times_completed"`
	TotalTimeSpentSeconds int       `json:"total_time_spent_seconds"`
	SyncedToRemote        bool      `gorm:"index" json:"-"`
	Book                  *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

// User is the local reader. The app serves a single local user but keeps
// the ID explicit so progress records stay keyed the same way as the API's.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BookProgress pairs a book with the user's progress in it, used by the
// recent-books listing.
type BookProgress struct {
	Book     Book            `json:"book"`
	Progress ReadingProgress `json:"progress"`
}
