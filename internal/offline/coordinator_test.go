package offline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krizium/kidsreading/internal/audiocache"
	"github.com/krizium/kidsreading/internal/entities"
)

type fakeRemote struct {
	mu    sync.Mutex
	books map[uint]*entities.Book
	err   error

	progressCalls []string
	progressErr   error
}

func (f *fakeRemote) GetAllBooks(ctx context.Context) ([]entities.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	var books []entities.Book
	for _, b := range f.books {
		summary := *b
		summary.Pages = nil
		books = append(books, summary)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (f *fakeRemote) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	book, ok := f.books[id]
	if !ok {
		return nil, fmt.Errorf("remote: book %d not found", id)
	}
	clone := *book
	return &clone, nil
}

func (f *fakeRemote) GetPage(ctx context.Context, bookID uint, pageNumber int) (*entities.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	book, ok := f.books[bookID]
	if !ok {
		return nil, fmt.Errorf("remote: book %d not found", bookID)
	}
	for i := range book.Pages {
		if book.Pages[i].PageNumber == pageNumber {
			clone := book.Pages[i]
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("remote: page %d of book %d not found", pageNumber, bookID)
}

func (f *fakeRemote) UpdateProgress(ctx context.Context, userID, bookID uint, pageNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return f.progressErr
	}
	f.progressCalls = append(f.progressCalls, fmt.Sprintf("%d/%d/%d", userID, bookID, pageNumber))
	return nil
}

type fakeLocal struct {
	books     map[uint]*entities.Book
	offline   map[uint]bool
	audioKeys map[uint]map[string]string

	savedBooks     []uint
	savedSummaries []uint
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{
		books:     make(map[uint]*entities.Book),
		offline:   make(map[uint]bool),
		audioKeys: make(map[uint]map[string]string),
	}
}

func (f *fakeLocal) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	for _, b := range f.books {
		books = append(books, *b)
	}
	return books, nil
}

func (f *fakeLocal) GetBookByID(id uint) (*entities.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, nil
	}
	clone := *book
	return &clone, nil
}

func (f *fakeLocal) GetPage(bookID uint, pageNumber int) (*entities.Page, error) {
	book, ok := f.books[bookID]
	if !ok {
		return nil, nil
	}
	for i := range book.Pages {
		if book.Pages[i].PageNumber == pageNumber {
			clone := book.Pages[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeLocal) SaveBook(book *entities.Book) error {
	clone := *book
	f.books[book.ID] = &clone
	f.savedBooks = append(f.savedBooks, book.ID)
	return nil
}

func (f *fakeLocal) SaveSummary(book *entities.Book) error {
	f.savedSummaries = append(f.savedSummaries, book.ID)
	if _, ok := f.books[book.ID]; !ok {
		summary := *book
		summary.Pages = nil
		f.books[book.ID] = &summary
	}
	return nil
}

func (f *fakeLocal) SavePage(bookID uint, page *entities.Page) error {
	return nil
}

func (f *fakeLocal) MaxPageNumber(bookID uint) (int, error) {
	book, ok := f.books[bookID]
	if !ok {
		return 0, nil
	}
	max := 0
	for _, p := range book.Pages {
		if p.PageNumber > max {
			max = p.PageNumber
		}
	}
	return max, nil
}

func (f *fakeLocal) MarkBookOffline(bookID uint, available bool) error {
	f.offline[bookID] = available
	return nil
}

func (f *fakeLocal) AssignAudioKeys(bookID uint, keys map[string]string) error {
	f.audioKeys[bookID] = keys
	return nil
}

type fakeStore struct {
	manifests map[uint]*entities.Book
	pages     map[uint]map[int]*entities.Page
	removed   []uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		manifests: make(map[uint]*entities.Book),
		pages:     make(map[uint]map[int]*entities.Page),
	}
}

func (f *fakeStore) SaveManifest(book *entities.Book) error {
	snapshot := *book
	snapshot.Pages = nil
	f.manifests[book.ID] = &snapshot
	return nil
}

func (f *fakeStore) LoadManifest(bookID uint) (*entities.Book, error) {
	book, ok := f.manifests[bookID]
	if !ok {
		return nil, nil
	}
	clone := *book
	return &clone, nil
}

func (f *fakeStore) SavePage(bookID uint, page *entities.Page) error {
	if f.pages[bookID] == nil {
		f.pages[bookID] = make(map[int]*entities.Page)
	}
	clone := *page
	f.pages[bookID][page.PageNumber] = &clone
	return nil
}

func (f *fakeStore) LoadPage(bookID uint, pageNumber int) (*entities.Page, error) {
	page, ok := f.pages[bookID][pageNumber]
	if !ok {
		return nil, nil
	}
	clone := *page
	return &clone, nil
}

func (f *fakeStore) LoadPages(bookID uint) ([]entities.Page, error) {
	var pages []entities.Page
	for _, page := range f.pages[bookID] {
		pages = append(pages, *page)
	}
	return pages, nil
}

func (f *fakeStore) ListBooks() ([]entities.Book, error) {
	var books []entities.Book
	for _, book := range f.manifests {
		books = append(books, *book)
	}
	return books, nil
}

func (f *fakeStore) IsAvailable(bookID uint) bool {
	_, ok := f.manifests[bookID]
	return ok
}

func (f *fakeStore) Remove(bookID uint) error {
	delete(f.manifests, bookID)
	delete(f.pages, bookID)
	f.removed = append(f.removed, bookID)
	return nil
}

type fakeProgress struct {
	records map[string]*entities.ReadingProgress
	nextID  uint
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{records: make(map[string]*entities.ReadingProgress)}
}

func progressKey(userID, bookID uint) string {
	return fmt.Sprintf("%d/%d", userID, bookID)
}

func (f *fakeProgress) Get(userID, bookID uint) (*entities.ReadingProgress, error) {
	record, ok := f.records[progressKey(userID, bookID)]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (f *fakeProgress) Upsert(userID, bookID uint, pageNumber, maxPage, timeSpentSeconds int) (*entities.ReadingProgress, error) {
	key := progressKey(userID, bookID)
	record, ok := f.records[key]
	if !ok {
		f.nextID++
		record = &entities.ReadingProgress{ID: f.nextID, UserID: userID, BookID: bookID}
		f.records[key] = record
	}
	if maxPage > 0 && pageNumber >= maxPage && record.LastPageRead < maxPage {
		record.TimesCompleted++
	}
	record.LastPageRead = pageNumber
	record.TotalTimeSpentSeconds += timeSpentSeconds
	record.SyncedToRemote = false
	clone := *record
	return &clone, nil
}

func (f *fakeProgress) Recent(userID uint, limit int) ([]entities.ReadingProgress, error) {
	var records []entities.ReadingProgress
	for _, record := range f.records {
		if record.UserID == userID {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (f *fakeProgress) Unsynced() ([]entities.ReadingProgress, error) {
	var records []entities.ReadingProgress
	for _, record := range f.records {
		if !record.SyncedToRemote {
			records = append(records, *record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (f *fakeProgress) MarkSynced(id uint) error {
	for _, record := range f.records {
		if record.ID == id {
			record.SyncedToRemote = true
			return nil
		}
	}
	return fmt.Errorf("progress %d not found", id)
}

type fakeAudio struct {
	mu        sync.Mutex
	cached    map[string]bool
	failWords map[string]bool
	calls     int

	sweptWith map[string]struct{}
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{cached: make(map[string]bool), failWords: make(map[string]bool)}
}

func (f *fakeAudio) IsCached(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached[key]
}

func (f *fakeAudio) GenerateAndCache(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWords[text] {
		return "", fmt.Errorf("%w for %q", audiocache.ErrSynthesisFailed, text)
	}
	key := audiocache.Key(text)
	f.cached[key] = true
	return key, nil
}

func (f *fakeAudio) Sweep(referenced map[string]struct{}) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweptWith = referenced
	removed := 0
	for key := range f.cached {
		if _, ok := referenced[key]; !ok {
			delete(f.cached, key)
			removed++
		}
	}
	return removed, nil
}

type fakeCovers struct {
	fetched     []uint
	invalidated []uint
}

func (f *fakeCovers) GetCover(bookID uint, coverURL string) (string, error) {
	f.fetched = append(f.fetched, bookID)
	return "/covers/fake.jpg", nil
}

func (f *fakeCovers) Invalidate(bookID uint) error {
	f.invalidated = append(f.invalidated, bookID)
	return nil
}

type fakeMonitor struct {
	mu        sync.Mutex
	connected bool
	events    chan bool
}

func newFakeMonitor(connected bool) *fakeMonitor {
	return &fakeMonitor{connected: connected, events: make(chan bool, 1)}
}

func (f *fakeMonitor) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeMonitor) set(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
	f.events <- connected
}

func (f *fakeMonitor) Subscribe() (<-chan bool, func()) {
	return f.events, func() {}
}

func remoteBook() *entities.Book {
	return &entities.Book{
		ID:            1,
		Title:         "Max's Adventure in the Forest",
		Author:        "Sarah Johnson",
		CoverImageURL: "images/books/max_adventure.jpg",
		Pages: []entities.Page{
			{
				BookID:     1,
				PageNumber: 1,
				Paragraphs: []entities.Paragraph{
					{Order: 1, Words: []entities.Word{
						{Text: "Max", Order: 1},
						{Text: "the", Order: 2},
						{Text: "fox", Order: 3},
					}},
				},
			},
			{
				BookID:     1,
				PageNumber: 2,
				Paragraphs: []entities.Paragraph{
					{Order: 1, Words: []entities.Word{
						{Text: "happy", Order: 1},
						{Text: "squirrel", Order: 2},
					}},
				},
			},
		},
	}
}

type fixture struct {
	remote   *fakeRemote
	local    *fakeLocal
	store    *fakeStore
	progress *fakeProgress
	audio    *fakeAudio
	covers   *fakeCovers
	monitor  *fakeMonitor
	coord    *Coordinator
}

func newFixture(connected bool) *fixture {
	f := &fixture{
		remote:   &fakeRemote{books: map[uint]*entities.Book{1: remoteBook()}},
		local:    newFakeLocal(),
		store:    newFakeStore(),
		progress: newFakeProgress(),
		audio:    newFakeAudio(),
		covers:   &fakeCovers{},
		monitor:  newFakeMonitor(connected),
	}
	f.coord = NewCoordinator(f.remote, f.local, f.store, f.progress, f.audio, f.covers, f.monitor, 2)
	return f
}

func TestGetAllBooks(t *testing.T) {
	t.Run("connected fetches remote and caches summaries", func(t *testing.T) {
		f := newFixture(true)

		books, err := f.coord.GetAllBooks(context.Background())
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, []uint{1}, f.local.savedSummaries)
	})

	t.Run("disconnected falls back to local", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())
		f.local.savedBooks = nil

		books, err := f.coord.GetAllBooks(context.Background())
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Empty(t, f.local.savedSummaries, "no remote fetch happened")
	})

	t.Run("empty local falls back to offline store", func(t *testing.T) {
		f := newFixture(false)
		f.store.SaveManifest(remoteBook())

		books, err := f.coord.GetAllBooks(context.Background())
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Max's Adventure in the Forest", books[0].Title)
	})

	t.Run("remote failure while connected falls back to local", func(t *testing.T) {
		f := newFixture(true)
		f.remote.err = errors.New("boom")
		f.local.SaveBook(remoteBook())

		books, err := f.coord.GetAllBooks(context.Background())
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})
}

func TestGetBook(t *testing.T) {
	t.Run("connected caches the remote tree", func(t *testing.T) {
		f := newFixture(true)

		book, err := f.coord.GetBook(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "Max's Adventure in the Forest", book.Title)
		assert.Equal(t, []uint{1}, f.local.savedBooks)
	})

	t.Run("disconnected serves from local", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())

		book, err := f.coord.GetBook(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, book.Pages, 2)
	})

	t.Run("local miss assembles from offline store with sorted pages", func(t *testing.T) {
		f := newFixture(false)
		source := remoteBook()
		f.store.SaveManifest(source)
		f.store.SavePage(1, &source.Pages[1])
		f.store.SavePage(1, &source.Pages[0])

		book, err := f.coord.GetBook(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, book.Pages, 2)
		assert.Equal(t, 1, book.Pages[0].PageNumber)
		assert.Equal(t, 2, book.Pages[1].PageNumber)
	})

	t.Run("absent everywhere is ErrNotFound", func(t *testing.T) {
		f := newFixture(false)

		_, err := f.coord.GetBook(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetPage(t *testing.T) {
	t.Run("disconnected local hit", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())

		page, err := f.coord.GetPage(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, page.PageNumber)
	})

	t.Run("offline store is the terminal fallback", func(t *testing.T) {
		f := newFixture(false)
		source := remoteBook()
		f.store.SavePage(1, &source.Pages[0])

		page, err := f.coord.GetPage(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, page.PageNumber)
	})

	t.Run("absent everywhere is ErrNotFound", func(t *testing.T) {
		f := newFixture(false)

		_, err := f.coord.GetPage(context.Background(), 1, 9)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateProgress(t *testing.T) {
	t.Run("connected writes locally and remotely", func(t *testing.T) {
		f := newFixture(true)
		f.local.SaveBook(remoteBook())

		record, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 30)
		require.NoError(t, err)
		assert.Equal(t, 2, record.LastPageRead)
		assert.Equal(t, []string{"1/1/2"}, f.remote.progressCalls)

		// Remote success marks the record synced
		unsynced, err := f.progress.Unsynced()
		require.NoError(t, err)
		assert.Empty(t, unsynced)
	})

	t.Run("remote failure is not an error and leaves the record unsynced", func(t *testing.T) {
		f := newFixture(true)
		f.local.SaveBook(remoteBook())
		f.remote.progressErr = errors.New("api down")

		_, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 0)
		require.NoError(t, err)

		unsynced, err := f.progress.Unsynced()
		require.NoError(t, err)
		assert.Len(t, unsynced, 1)
	})

	t.Run("disconnected never touches the network", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())

		_, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 0)
		require.NoError(t, err)
		assert.Empty(t, f.remote.progressCalls)
	})

	t.Run("completion uses the local max page", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())

		record, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, record.TimesCompleted)
	})
}

func TestMakeBookAvailableOffline(t *testing.T) {
	t.Run("materializes content, audio and cover", func(t *testing.T) {
		f := newFixture(true)

		require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))

		assert.True(t, f.store.IsAvailable(1))
		pages, err := f.store.LoadPages(1)
		require.NoError(t, err)
		assert.Len(t, pages, 2)

		// One synthesis per unique normalized word
		assert.Equal(t, 5, f.audio.calls)
		assert.True(t, f.audio.IsCached("max"))
		assert.True(t, f.audio.IsCached("squirrel"))

		keys := f.local.audioKeys[1]
		require.NotNil(t, keys)
		assert.Equal(t, "fox", keys["fox"])

		assert.True(t, f.local.offline[1])
		assert.Equal(t, []uint{1}, f.covers.fetched)
	})

	t.Run("word synthesis failure does not block the book", func(t *testing.T) {
		f := newFixture(true)
		f.audio.failWords["squirrel"] = true

		require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))

		assert.True(t, f.store.IsAvailable(1))
		assert.True(t, f.local.offline[1])

		keys := f.local.audioKeys[1]
		_, ok := keys["squirrel"]
		assert.False(t, ok, "failed word gets no key")
		assert.Equal(t, "max", keys["max"])
	})

	t.Run("re-running refreshes and skips cached audio", func(t *testing.T) {
		f := newFixture(true)

		require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))
		firstCalls := f.audio.calls

		require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))
		assert.Equal(t, firstCalls, f.audio.calls, "cached words are not re-synthesized")
	})

	t.Run("unknown book fails", func(t *testing.T) {
		f := newFixture(false)

		err := f.coord.MakeBookAvailableOffline(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRemoveBookFromOffline(t *testing.T) {
	f := newFixture(true)
	require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))

	require.NoError(t, f.coord.RemoveBookFromOffline(1))

	assert.False(t, f.store.IsAvailable(1))
	assert.False(t, f.local.offline[1])
	assert.Equal(t, []uint{1}, f.covers.invalidated)

	// Audio artifacts survive removal; only a sweep reclaims them
	assert.True(t, f.audio.IsCached("max"))
}

func TestSweepAudioCache(t *testing.T) {
	f := newFixture(true)
	require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))
	require.NoError(t, f.coord.RemoveBookFromOffline(1))

	removed, err := f.coord.SweepAudioCache()
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.False(t, f.audio.IsCached("max"))
}

func TestSweepKeepsReferencedAudio(t *testing.T) {
	f := newFixture(true)
	require.NoError(t, f.coord.MakeBookAvailableOffline(context.Background(), 1))

	removed, err := f.coord.SweepAudioCache()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Contains(t, f.audio.sweptWith, "fox")
}

func TestFlushProgress(t *testing.T) {
	t.Run("pushes and marks synced", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())
		_, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 0)
		require.NoError(t, err)

		require.NoError(t, f.coord.FlushProgress(context.Background()))
		assert.Equal(t, []string{"1/1/2"}, f.remote.progressCalls)

		unsynced, err := f.progress.Unsynced()
		require.NoError(t, err)
		assert.Empty(t, unsynced)
	})

	t.Run("stops on first failure", func(t *testing.T) {
		f := newFixture(false)
		f.local.SaveBook(remoteBook())
		_, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 0)
		require.NoError(t, err)
		f.remote.progressErr = errors.New("api down")

		require.Error(t, f.coord.FlushProgress(context.Background()))

		unsynced, err := f.progress.Unsynced()
		require.NoError(t, err)
		assert.Len(t, unsynced, 1)
	})
}

func TestRunFlushesOnReconnect(t *testing.T) {
	f := newFixture(false)
	f.local.SaveBook(remoteBook())
	_, err := f.coord.UpdateProgress(context.Background(), 1, 1, 2, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.coord.Run(ctx)

	f.monitor.set(true)

	require.Eventually(t, func() bool {
		unsynced, err := f.progress.Unsynced()
		return err == nil && len(unsynced) == 0
	}, 2*time.Second, 10*time.Millisecond, "reconnect should flush pending progress")
}

func TestRecentBooks(t *testing.T) {
	f := newFixture(false)
	book := remoteBook()
	f.progress.records["1/1"] = &entities.ReadingProgress{
		ID: 1, UserID: 1, BookID: 1, LastPageRead: 2, Book: book,
	}

	recent, err := f.coord.RecentBooks(1, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, book.Title, recent[0].Book.Title)
	assert.Equal(t, 2, recent[0].Progress.LastPageRead)
	assert.Nil(t, recent[0].Progress.Book)
}
