// Package offline orchestrates content reads and progress writes across the
// remote API, the local database and the on-disk offline store.
//
// Source precedence for reads: remote first while connected, with a
// write-through to local storage on success; any remote failure (or being
// disconnected in the first place) falls back to the local database and
// then the offline content store. Local storage is the terminal source:
// its miss is the final "not found", and transient remote errors never
// reach the caller as long as a fallback yields data.
package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/krizium/kidsreading/internal/audiocache"
	"github.com/krizium/kidsreading/internal/entities"
)

// ErrNotFound means the requested content is absent everywhere: remote,
// local database and offline store.
var ErrNotFound = errors.New("content not found")

const defaultPrecacheWorkers = 4

// RemoteSource is the network-backed content source.
type RemoteSource interface {
	GetAllBooks(ctx context.Context) ([]entities.Book, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	GetPage(ctx context.Context, bookID uint, pageNumber int) (*entities.Page, error)
	UpdateProgress(ctx context.Context, userID, bookID uint, pageNumber int) error
}

// LocalSource is the database-backed content source and write-through
// target. Read methods return (nil, nil) on a miss.
type LocalSource interface {
	GetAllBooks() ([]entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
	GetPage(bookID uint, pageNumber int) (*entities.Page, error)
	SaveBook(book *entities.Book) error
	SaveSummary(book *entities.Book) error
	SavePage(bookID uint, page *entities.Page) error
	MaxPageNumber(bookID uint) (int, error)
	MarkBookOffline(bookID uint, available bool) error
	AssignAudioKeys(bookID uint, keys map[string]string) error
}

// ContentStore is the per-book offline directory of content blobs.
type ContentStore interface {
	SaveManifest(book *entities.Book) error
	LoadManifest(bookID uint) (*entities.Book, error)
	SavePage(bookID uint, page *entities.Page) error
	LoadPage(bookID uint, pageNumber int) (*entities.Page, error)
	LoadPages(bookID uint) ([]entities.Page, error)
	ListBooks() ([]entities.Book, error)
	IsAvailable(bookID uint) bool
	Remove(bookID uint) error
}

// ProgressStore persists reading progress locally with upsert semantics.
type ProgressStore interface {
	Get(userID, bookID uint) (*entities.ReadingProgress, error)
	Upsert(userID, bookID uint, pageNumber, maxPage, timeSpentSeconds int) (*entities.ReadingProgress, error)
	Recent(userID uint, limit int) ([]entities.ReadingProgress, error)
	Unsynced() ([]entities.ReadingProgress, error)
	MarkSynced(id uint) error
}

// AudioStore caches synthesized speech keyed by content.
type AudioStore interface {
	IsCached(key string) bool
	GenerateAndCache(ctx context.Context, text string) (string, error)
	Sweep(referenced map[string]struct{}) (int, error)
}

// CoverCache caches cover images for offline books.
type CoverCache interface {
	GetCover(bookID uint, coverURL string) (string, error)
	Invalidate(bookID uint) error
}

// ConnectivityMonitor reports network state and transition events.
type ConnectivityMonitor interface {
	IsConnected() bool
	Subscribe() (<-chan bool, func())
}

// Coordinator routes reads and writes between the sources and drives the
// make-available-offline pipeline.
type Coordinator struct {
	remote   RemoteSource
	local    LocalSource
	store    ContentStore
	progress ProgressStore
	audio    AudioStore
	covers   CoverCache
	monitor  ConnectivityMonitor

	precacheWorkers int
}

// NewCoordinator wires the coordinator. covers may be nil when cover
// caching is disabled.
func NewCoordinator(
	remote RemoteSource,
	local LocalSource,
	store ContentStore,
	progress ProgressStore,
	audio AudioStore,
	covers CoverCache,
	monitor ConnectivityMonitor,
	precacheWorkers int,
) *Coordinator {
	if precacheWorkers <= 0 {
		precacheWorkers = defaultPrecacheWorkers
	}
	return &Coordinator{
		remote:          remote,
		local:           local,
		store:           store,
		progress:        progress,
		audio:           audio,
		covers:          covers,
		monitor:         monitor,
		precacheWorkers: precacheWorkers,
	}
}

// GetAllBooks lists the catalog: remote while connected, local otherwise.
// An empty catalog is a valid result, not an error.
func (c *Coordinator) GetAllBooks(ctx context.Context) ([]entities.Book, error) {
	if c.monitor.IsConnected() {
		books, err := c.remote.GetAllBooks(ctx)
		if err == nil {
			for i := range books {
				if saveErr := c.local.SaveSummary(&books[i]); saveErr != nil {
					log.Printf("Failed to cache book %d summary locally: %v", books[i].ID, saveErr)
				}
			}
			return books, nil
		}
		log.Printf("Remote catalog fetch failed, falling back to local: %v", err)
	}

	books, err := c.local.GetAllBooks()
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return c.store.ListBooks()
	}
	return books, nil
}

// GetBook returns a book's full content tree, or ErrNotFound when it is
// absent everywhere.
func (c *Coordinator) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	if c.monitor.IsConnected() {
		book, err := c.remote.GetBook(ctx, id)
		if err == nil {
			if saveErr := c.local.SaveBook(book); saveErr != nil {
				log.Printf("Failed to cache book %d locally: %v", id, saveErr)
			}
			return book, nil
		}
		log.Printf("Remote fetch of book %d failed, falling back to local: %v", id, err)
	}

	book, err := c.local.GetBookByID(id)
	if err != nil {
		return nil, err
	}
	if book != nil {
		return book, nil
	}

	return c.offlineBook(id)
}

// GetPage returns one page's content, or ErrNotFound when it is absent
// everywhere.
func (c *Coordinator) GetPage(ctx context.Context, bookID uint, pageNumber int) (*entities.Page, error) {
	if c.monitor.IsConnected() {
		page, err := c.remote.GetPage(ctx, bookID, pageNumber)
		if err == nil {
			if saveErr := c.local.SavePage(bookID, page); saveErr != nil {
				log.Printf("Failed to cache page %d of book %d locally: %v", pageNumber, bookID, saveErr)
			}
			return page, nil
		}
		log.Printf("Remote fetch of page %d (book %d) failed, falling back to local: %v", pageNumber, bookID, err)
	}

	page, err := c.local.GetPage(bookID, pageNumber)
	if err != nil {
		return nil, err
	}
	if page != nil {
		return page, nil
	}

	page, err = c.store.LoadPage(bookID, pageNumber)
	if err != nil {
		return nil, err
	}
	if page != nil {
		return page, nil
	}

	return nil, fmt.Errorf("%w: page %d of book %d", ErrNotFound, pageNumber, bookID)
}

// GetProgress returns the user's progress for a book, or (nil, nil) when
// none exists.
func (c *Coordinator) GetProgress(userID, bookID uint) (*entities.ReadingProgress, error) {
	return c.progress.Get(userID, bookID)
}

// RecentBooks returns the user's most recently read books with progress.
func (c *Coordinator) RecentBooks(userID uint, limit int) ([]entities.BookProgress, error) {
	records, err := c.progress.Recent(userID, limit)
	if err != nil {
		return nil, err
	}

	result := make([]entities.BookProgress, 0, len(records))
	for _, record := range records {
		if record.Book == nil {
			continue
		}
		book := *record.Book
		record.Book = nil
		result = append(result, entities.BookProgress{Book: book, Progress: record})
	}
	return result, nil
}

// UpdateProgress records a page read. The local write always happens and is
// the source of truth for the reading experience; the remote write is
// attempted when connected and its failure only leaves the record flagged
// for a later flush, never an error to the caller.
func (c *Coordinator) UpdateProgress(ctx context.Context, userID, bookID uint, pageNumber, timeSpentSeconds int) (*entities.ReadingProgress, error) {
	maxPage, err := c.local.MaxPageNumber(bookID)
	if err != nil {
		return nil, err
	}

	record, err := c.progress.Upsert(userID, bookID, pageNumber, maxPage, timeSpentSeconds)
	if err != nil {
		return nil, fmt.Errorf("save progress locally: %w", err)
	}

	if c.monitor.IsConnected() {
		if err := c.remote.UpdateProgress(ctx, userID, bookID, pageNumber); err != nil {
			log.Printf("Remote progress update failed (will flush later): %v", err)
		} else if err := c.progress.MarkSynced(record.ID); err != nil {
			log.Printf("Failed to mark progress %d synced: %v", record.ID, err)
		}
	}

	return record, nil
}

// MakeBookAvailableOffline materializes a book's full content tree to the
// offline store and pre-generates audio for every unique word.
//
// The operation is idempotent and re-entrant: re-running it refreshes the
// stored content. Individual word synthesis failures are logged and
// skipped; the book still becomes offline-available with whatever audio
// succeeded. There is no all-or-nothing guarantee; an interrupted run
// leaves a partial directory that the next run overwrites.
func (c *Coordinator) MakeBookAvailableOffline(ctx context.Context, bookID uint) error {
	book, err := c.GetBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("resolve book %d: %w", bookID, err)
	}

	if err := c.store.SaveManifest(book); err != nil {
		return fmt.Errorf("save manifest for book %d: %w", bookID, err)
	}

	if c.covers != nil && book.CoverImageURL != "" {
		if _, err := c.covers.GetCover(bookID, book.CoverImageURL); err != nil {
			log.Printf("Failed to cache cover for book %d: %v", bookID, err)
		}
	}

	words := make(map[string]struct{})
	for _, page := range book.Pages {
		full, err := c.GetPage(ctx, bookID, page.PageNumber)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return fmt.Errorf("resolve page %d of book %d: %w", page.PageNumber, bookID, err)
		}

		if err := c.store.SavePage(bookID, full); err != nil {
			return fmt.Errorf("save page %d of book %d: %w", page.PageNumber, bookID, err)
		}

		collectWords(full, words)
	}

	keys := c.precacheAudio(ctx, words)

	if err := c.local.AssignAudioKeys(bookID, keys); err != nil {
		log.Printf("Failed to assign audio keys for book %d: %v", bookID, err)
	}

	if err := c.local.MarkBookOffline(bookID, true); err != nil {
		return fmt.Errorf("mark book %d offline: %w", bookID, err)
	}

	log.Printf("Book %d available offline: %d unique words, %d with audio", bookID, len(words), len(keys))
	return nil
}

// RemoveBookFromOffline deletes the book's offline directory and clears its
// flags. Cached audio is left in place: artifacts are shared across books
// and reclaimed only by SweepAudioCache.
func (c *Coordinator) RemoveBookFromOffline(bookID uint) error {
	if err := c.store.Remove(bookID); err != nil {
		return fmt.Errorf("remove offline content for book %d: %w", bookID, err)
	}

	if c.covers != nil {
		if err := c.covers.Invalidate(bookID); err != nil {
			log.Printf("Failed to invalidate cover for book %d: %v", bookID, err)
		}
	}

	if err := c.local.MarkBookOffline(bookID, false); err != nil {
		return fmt.Errorf("clear offline flag for book %d: %w", bookID, err)
	}
	return nil
}

// OfflineBooks lists the books currently materialized to the offline store.
func (c *Coordinator) OfflineBooks() ([]entities.Book, error) {
	return c.store.ListBooks()
}

// SweepAudioCache removes audio artifacts no longer referenced by any
// offline book and returns how many were removed.
func (c *Coordinator) SweepAudioCache() (int, error) {
	books, err := c.store.ListBooks()
	if err != nil {
		return 0, fmt.Errorf("list offline books: %w", err)
	}

	referenced := make(map[string]struct{})
	for _, book := range books {
		pages, err := c.store.LoadPages(book.ID)
		if err != nil {
			return 0, fmt.Errorf("load pages of book %d: %w", book.ID, err)
		}
		words := make(map[string]struct{})
		for i := range pages {
			collectWords(&pages[i], words)
		}
		for word := range words {
			if key := audiocache.Key(word); key != "" {
				referenced[key] = struct{}{}
			}
		}
	}

	return c.audio.Sweep(referenced)
}

// FlushProgress pushes locally-made progress updates to the remote API,
// marking each record synced on success. Best effort: the first
// unavailability stops the pass.
func (c *Coordinator) FlushProgress(ctx context.Context) error {
	records, err := c.progress.Unsynced()
	if err != nil {
		return fmt.Errorf("list unsynced progress: %w", err)
	}

	for _, record := range records {
		if err := c.remote.UpdateProgress(ctx, record.UserID, record.BookID, record.LastPageRead); err != nil {
			log.Printf("Progress flush for user %d book %d failed: %v", record.UserID, record.BookID, err)
			return err
		}
		if err := c.progress.MarkSynced(record.ID); err != nil {
			return fmt.Errorf("mark progress %d synced: %w", record.ID, err)
		}
	}

	if len(records) > 0 {
		log.Printf("Flushed %d progress records to remote", len(records))
	}
	return nil
}

// Run watches connectivity transitions until ctx is cancelled, flushing
// pending progress writes whenever the connection comes back. Best effort
// and non-blocking relative to reads.
func (c *Coordinator) Run(ctx context.Context) {
	events, unsubscribe := c.monitor.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case connected := <-events:
			if !connected {
				continue
			}
			log.Printf("Connectivity restored, flushing pending progress")
			if err := c.FlushProgress(ctx); err != nil {
				log.Printf("Opportunistic progress flush incomplete: %v", err)
			}
		}
	}
}

// precacheAudio generates audio for every word not already cached, with
// bounded parallelism. Returns the normalized-word → key map for every word
// that ended up cached. Failures are logged and skipped.
func (c *Coordinator) precacheAudio(ctx context.Context, words map[string]struct{}) map[string]string {
	keys := make(map[string]string, len(words))
	var keysMu sync.Mutex

	// Stable order keeps logs and gateway traffic deterministic in tests.
	sorted := make([]string, 0, len(words))
	for word := range words {
		sorted = append(sorted, word)
	}
	sort.Strings(sorted)

	var failed int
	var failedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.precacheWorkers)
	for _, word := range sorted {
		word := word
		g.Go(func() error {
			key := audiocache.Key(word)
			if key == "" {
				return nil
			}
			if !c.audio.IsCached(key) {
				if _, err := c.audio.GenerateAndCache(gctx, word); err != nil {
					log.Printf("Skipping audio for word %q: %v", word, err)
					failedMu.Lock()
					failed++
					failedMu.Unlock()
					return nil
				}
			}
			keysMu.Lock()
			keys[word] = key
			keysMu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are per-word and tolerated.
	_ = g.Wait()

	if failed > 0 {
		log.Printf("Audio pre-cache finished with %d of %d words skipped", failed, len(words))
	}
	return keys
}

// offlineBook assembles a full book from the offline store's manifest and
// page blobs.
func (c *Coordinator) offlineBook(id uint) (*entities.Book, error) {
	book, err := c.store.LoadManifest(id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}

	pages, err := c.store.LoadPages(id)
	if err != nil {
		return nil, err
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
	book.Pages = pages
	return book, nil
}

// collectWords adds every non-blank word of a page to the set, normalized
// case-insensitively.
func collectWords(page *entities.Page, words map[string]struct{}) {
	for _, paragraph := range page.Paragraphs {
		for _, word := range paragraph.Words {
			text := strings.ToLower(strings.TrimSpace(word.Text))
			if text != "" {
				words[text] = struct{}{}
			}
		}
	}
}
