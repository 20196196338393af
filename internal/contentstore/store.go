// Package contentstore persists book content to local disk for offline
// reading: one directory per book holding a metadata snapshot and one JSON
// blob per page. The existence of the metadata file is the source of truth
// for "is this book offline".
package contentstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/krizium/kidsreading/internal/entities"
)

const manifestFile = "metadata.json"

// Store owns the on-disk offline book directory tree.
type Store struct {
	root string
}

// NewStore creates the offline root directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create offline dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the offline root directory path.
func (s *Store) Root() string {
	return s.root
}

// SaveManifest writes the book's metadata snapshot, overwriting any
// previous one. Page content is stripped from the snapshot; pages are
// stored as separate blobs.
func (s *Store) SaveManifest(book *entities.Book) error {
	dir := s.bookDir(book.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create book dir: %w", err)
	}

	snapshot := *book
	snapshot.Pages = nil

	return s.writeJSON(filepath.Join(dir, manifestFile), &snapshot)
}

// LoadManifest reads a book's metadata snapshot. Returns (nil, nil) when
// the book is not offline.
func (s *Store) LoadManifest(bookID uint) (*entities.Book, error) {
	var book entities.Book
	ok, err := s.readJSON(filepath.Join(s.bookDir(bookID), manifestFile), &book)
	if err != nil || !ok {
		return nil, err
	}
	return &book, nil
}

// SavePage writes one page's full content blob, overwriting any previous
// copy of the same page.
func (s *Store) SavePage(bookID uint, page *entities.Page) error {
	dir := s.bookDir(bookID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create book dir: %w", err)
	}
	return s.writeJSON(filepath.Join(dir, pageFile(page.PageNumber)), page)
}

// LoadPage reads one page's content blob. Returns (nil, nil) when absent.
func (s *Store) LoadPage(bookID uint, pageNumber int) (*entities.Page, error) {
	var page entities.Page
	ok, err := s.readJSON(filepath.Join(s.bookDir(bookID), pageFile(pageNumber)), &page)
	if err != nil || !ok {
		return nil, err
	}
	return &page, nil
}

// LoadPages reads every stored page blob of a book, in no particular order.
func (s *Store) LoadPages(bookID uint) ([]entities.Page, error) {
	matches, err := filepath.Glob(filepath.Join(s.bookDir(bookID), "page_*.json"))
	if err != nil {
		return nil, err
	}

	var pages []entities.Page
	for _, path := range matches {
		var page entities.Page
		ok, err := s.readJSON(path, &page)
		if err != nil {
			return nil, err
		}
		if ok {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// ListBooks returns the metadata snapshots of every offline book.
func (s *Store) ListBooks() ([]entities.Book, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read offline dir: %w", err)
	}

	var books []entities.Book
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseUint(entry.Name(), 10, 32)
		if err != nil {
			continue
		}
		book, err := s.LoadManifest(uint(id))
		if err != nil {
			return nil, err
		}
		if book != nil {
			books = append(books, *book)
		}
	}
	return books, nil
}

// IsAvailable reports whether the book's metadata snapshot exists on disk.
func (s *Store) IsAvailable(bookID uint) bool {
	_, err := os.Stat(filepath.Join(s.bookDir(bookID), manifestFile))
	return err == nil
}

// Remove deletes the book's entire offline directory. Removing a book that
// is not offline is a no-op.
func (s *Store) Remove(bookID uint) error {
	return os.RemoveAll(s.bookDir(bookID))
}

func (s *Store) bookDir(bookID uint) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(bookID), 10))
}

func pageFile(pageNumber int) string {
	return fmt.Sprintf("page_%d.json", pageNumber)
}

// writeJSON writes via a temp file and rename so readers never observe a
// partially written blob.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// readJSON reads a JSON blob; missing files report (false, nil).
func (s *Store) readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
