// Package kindle reads books and highlights from the Kindle notebook page
// and imports them into the library.
package kindle

import (
	"context"
	"time"
)

const (
	ActionScrape = "scrapeKindle"

	DefaultBookLimit = 10
	UnknownField     = "Unknown"
)

type Highlight struct {
	Text     string  `json:"text"`
	Location string  `json:"location"`
	Note     *string `json:"note"`
}

type Book struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	Author             string      `json:"author"`
	Cover              string      `json:"cover"`
	Highlights         []Highlight `json:"highlights"`
	HighlightCount     int         `json:"highlightCount"`
	ScrapedAt          time.Time   `json:"scrapedAt"`
	Progress           *int        `json:"progress"`
	ProgressPercentage *float64    `json:"progressPercentage"`
}

// ScrapeResult is the payload the extension popup posts to the backend.
type ScrapeResult struct {
	Books           []Book    `json:"books"`
	TotalHighlights int       `json:"totalHighlights"`
	ScrapedAt       time.Time `json:"scrapedAt"`
}

// Message is a request from the popup to the page scraper.
type Message struct {
	Action string `json:"action"`
}

type Response struct {
	Success bool          `json:"success"`
	Data    *ScrapeResult `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type Scraper interface {
	Scrape(ctx context.Context) (ScrapeResult, error)
}

// HandleMessage answers one popup message.
func HandleMessage(ctx context.Context, s Scraper, msg Message) Response {
	if msg.Action != ActionScrape {
		return Response{Error: "unknown action"}
	}
	res, err := s.Scrape(ctx)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Success: true, Data: &res}
}
