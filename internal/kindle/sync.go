package kindle

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/store"
)

var (
	ErrMissingCredentials  = errors.New("email, password and user_id are required")
	ErrLoginNotImplemented = errors.New("connect a backend/headless workflow to authenticate with Kindle. This function expects a token")
	ErrMissingUser         = errors.New("user id is required")
)

// ExternalPrefix marks books imported from the extension.
const ExternalPrefix = "kindle:"

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserID   string `json:"user_id"`
}

// LibraryBook is one entry of the cloud library.
type LibraryBook struct {
	Title         string
	Author        string
	Cover         string
	TotalPages    int
	ProgressPages int
	Status        string
	AmazonID      string
}

// Authenticator exchanges Amazon credentials for a session token.
type Authenticator func(ctx context.Context, email, password string) (string, error)

type LibraryFetcher interface {
	FetchLibrary(ctx context.Context, token string) ([]LibraryBook, error)
}

// LibraryFunc adapts a function to LibraryFetcher.
type LibraryFunc func(ctx context.Context, token string) ([]LibraryBook, error)

func (f LibraryFunc) FetchLibrary(ctx context.Context, token string) ([]LibraryBook, error) {
	return f(ctx, token)
}

type Store interface {
	UpsertBooks(ctx context.Context, books []store.Book) (map[string]string, error)
	UpsertUserBooks(ctx context.Context, rows []store.UserBook) error
	SaveHighlights(ctx context.Context, userID, bookID string, hs []store.Highlight) (int, error)
}

type SyncService struct {
	store Store
	log   *zap.Logger

	Login   Authenticator
	Library LibraryFetcher
}

// NewSyncService has no working login: Sync fails with
// ErrLoginNotImplemented until Login is replaced.
func NewSyncService(st Store, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{
		store: st,
		log:   log,
		Login: func(context.Context, string, string) (string, error) {
			return "", ErrLoginNotImplemented
		},
		Library: LibraryFunc(func(context.Context, string) ([]LibraryBook, error) {
			return nil, nil
		}),
	}
}

// Sync signs in, fetches the cloud library and puts every book with an
// Amazon id on the user's shelf. It returns the number of shelf rows
// written.
func (s *SyncService) Sync(ctx context.Context, c Credentials) (int, error) {
	if c.Email == "" || c.Password == "" || c.UserID == "" {
		return 0, ErrMissingCredentials
	}
	token, err := s.Login(ctx, c.Email, c.Password)
	if err != nil {
		return 0, err
	}
	library, err := s.Library.FetchLibrary(ctx, token)
	if err != nil {
		return 0, err
	}

	var books []store.Book
	for _, b := range library {
		if b.AmazonID == "" {
			continue
		}
		books = append(books, store.Book{
			Title:      b.Title,
			Author:     b.Author,
			CoverURL:   b.Cover,
			TotalPages: b.TotalPages,
			ExternalID: b.AmazonID,
		})
	}
	if len(books) == 0 {
		return 0, nil
	}
	ids, err := s.store.UpsertBooks(ctx, books)
	if err != nil {
		return 0, err
	}

	var shelf []store.UserBook
	for _, b := range library {
		id, ok := ids[b.AmazonID]
		if !ok || b.AmazonID == "" {
			continue
		}
		status := b.Status
		if status == "" {
			status = store.StatusInProgress
		}
		shelf = append(shelf, store.UserBook{UserID: c.UserID, BookID: id, Status: status, CurrentPage: b.ProgressPages})
	}
	if err := s.store.UpsertUserBooks(ctx, shelf); err != nil {
		return 0, err
	}
	s.log.Info("kindle sync", zap.String("user", c.UserID), zap.Int("imported", len(shelf)))
	return len(shelf), nil
}

type ImportResult struct {
	Books      int `json:"books"`
	Highlights int `json:"highlights"`
}

// Import stores what the browser extension scraped. Books are keyed on
// "kindle:<id>"; highlights already saved are not counted again.
func (s *SyncService) Import(ctx context.Context, userID string, res ScrapeResult) (ImportResult, error) {
	if userID == "" {
		return ImportResult{}, ErrMissingUser
	}
	if len(res.Books) == 0 {
		return ImportResult{}, nil
	}
	books := make([]store.Book, 0, len(res.Books))
	for _, b := range res.Books {
		books = append(books, store.Book{
			Title:      b.Title,
			Author:     b.Author,
			CoverURL:   b.Cover,
			ExternalID: ExternalPrefix + b.ID,
		})
	}
	ids, err := s.store.UpsertBooks(ctx, books)
	if err != nil {
		return ImportResult{}, err
	}

	out := ImportResult{Books: len(ids)}
	for _, b := range res.Books {
		if len(b.Highlights) == 0 {
			continue
		}
		hs := make([]store.Highlight, 0, len(b.Highlights))
		for _, h := range b.Highlights {
			sh := store.Highlight{Text: h.Text, Location: h.Location}
			if h.Note != nil {
				sh.Note = *h.Note
			}
			hs = append(hs, sh)
		}
		n, err := s.store.SaveHighlights(ctx, userID, ids[ExternalPrefix+b.ID], hs)
		if err != nil {
			return ImportResult{}, err
		}
		out.Highlights += n
	}
	s.log.Info("kindle import",
		zap.String("user", userID),
		zap.Int("books", out.Books),
		zap.Int("highlights", out.Highlights))
	return out, nil
}
