package compositions

// Format selects the layout variant.
type Format string

const (
	Story  Format = "story"
	Square Format = "square"
)

func (f Format) normalize() Format {
	if f == Square {
		return Square
	}
	return Story
}

// ReadingSessionInput describes one finished reading session.
type ReadingSessionInput struct {
	Format          Format `json:"format" yaml:"format"`
	BookTitle       string `json:"bookTitle" yaml:"bookTitle"`
	BookAuthor      string `json:"bookAuthor,omitempty" yaml:"bookAuthor,omitempty"`
	PagesRead       int    `json:"pagesRead" yaml:"pagesRead"`
	DurationMinutes int    `json:"durationMinutes" yaml:"durationMinutes"`
	StartPage       int    `json:"startPage" yaml:"startPage"`
	EndPage         int    `json:"endPage" yaml:"endPage"`
}

func (in *ReadingSessionInput) Normalize() {
	in.Format = in.Format.normalize()
}

// BookFinishedInput describes a completed book. Colours are #RRGGBB.
type BookFinishedInput struct {
	Format         Format `json:"format" yaml:"format"`
	Title          string `json:"title" yaml:"title"`
	Author         string `json:"author" yaml:"author"`
	CoverURL       string `json:"coverUrl" yaml:"coverUrl"`
	PagesRead      int    `json:"pagesRead" yaml:"pagesRead"`
	TotalPages     int    `json:"totalPages" yaml:"totalPages"`
	ReadingTime    string `json:"readingTime" yaml:"readingTime"`
	Sessions       int    `json:"sessions" yaml:"sessions"`
	StartDate      string `json:"startDate" yaml:"startDate"`
	EndDate        string `json:"endDate" yaml:"endDate"`
	DominantColor  string `json:"dominantColor" yaml:"dominantColor"`
	SecondaryColor string `json:"secondaryColor" yaml:"secondaryColor"`
	Seed           int64  `json:"seed" yaml:"seed"`
}

const (
	DefaultDominantColor  = "#D97706"
	DefaultSecondaryColor = "#92400E"
)

func (in *BookFinishedInput) Normalize() {
	in.Format = in.Format.normalize()
	if in.DominantColor == "" {
		in.DominantColor = DefaultDominantColor
	}
	if in.SecondaryColor == "" {
		in.SecondaryColor = DefaultSecondaryColor
	}
}

type TopBookData struct {
	Title        string `json:"title" yaml:"title"`
	Author       string `json:"author" yaml:"author"`
	TotalMinutes int    `json:"totalMinutes" yaml:"totalMinutes"`
	CoverURL     string `json:"coverUrl,omitempty" yaml:"coverUrl,omitempty"`
}

type BadgeData struct {
	Icon string `json:"icon" yaml:"icon"`
	Name string `json:"name" yaml:"name"`
}

// MonthlyWrappedInput is the month summary. Month is 1-12, BestDayWeekday
// is 1 (Monday) to 7 (Sunday).
type MonthlyWrappedInput struct {
	Format                Format       `json:"format" yaml:"format"`
	Month                 int          `json:"month" yaml:"month"`
	Year                  int          `json:"year" yaml:"year"`
	TotalMinutes          int          `json:"totalMinutes" yaml:"totalMinutes"`
	Sessions              int          `json:"sessions" yaml:"sessions"`
	AvgSessionMinutes     int          `json:"avgSessionMinutes" yaml:"avgSessionMinutes"`
	BooksFinished         int          `json:"booksFinished" yaml:"booksFinished"`
	BooksInProgress       int          `json:"booksInProgress" yaml:"booksInProgress"`
	LongestSessionMinutes int          `json:"longestSessionMinutes" yaml:"longestSessionMinutes"`
	BestDayWeekday        int          `json:"bestDayWeekday" yaml:"bestDayWeekday"`
	LongestFlow           int          `json:"longestFlow" yaml:"longestFlow"`
	CurrentFlow           int          `json:"currentFlow" yaml:"currentFlow"`
	TopBook               *TopBookData `json:"topBook,omitempty" yaml:"topBook,omitempty"`
	VsLastMonthPercent    int          `json:"vsLastMonthPercent" yaml:"vsLastMonthPercent"`
	DailyMinutes          []int        `json:"dailyMinutes" yaml:"dailyMinutes"`
	Badges                []BadgeData  `json:"badges" yaml:"badges"`
}

func (in *MonthlyWrappedInput) Normalize() {
	in.Format = in.Format.normalize()
}

type GenreData struct {
	Name         string  `json:"name" yaml:"name"`
	TotalMinutes int     `json:"totalMinutes" yaml:"totalMinutes"`
	Percentage   float64 `json:"percentage" yaml:"percentage"`
}

type MilestoneData struct {
	Icon      string `json:"icon" yaml:"icon"`
	Title     string `json:"title" yaml:"title"`
	DateLabel string `json:"dateLabel,omitempty" yaml:"dateLabel,omitempty"`
}

type MonthlyBookCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// YearlyWrappedInput is the year summary.
type YearlyWrappedInput struct {
	Format                  Format             `json:"format" yaml:"format"`
	Year                    int                `json:"year" yaml:"year"`
	UserName                string             `json:"userName,omitempty" yaml:"userName,omitempty"`
	TotalMinutes            int                `json:"totalMinutes" yaml:"totalMinutes"`
	TotalSessions           int                `json:"totalSessions" yaml:"totalSessions"`
	AvgSessionMinutes       int                `json:"avgSessionMinutes" yaml:"avgSessionMinutes"`
	BooksFinished           int                `json:"booksFinished" yaml:"booksFinished"`
	BooksPerMonth           []MonthlyBookCount `json:"booksPerMonth" yaml:"booksPerMonth"`
	TopGenres               []GenreData        `json:"topGenres" yaml:"topGenres"`
	ReaderType              string             `json:"readerType" yaml:"readerType"`
	ReaderEmoji             string             `json:"readerEmoji" yaml:"readerEmoji"`
	NightSessionsPercent    int                `json:"nightSessionsPercent" yaml:"nightSessionsPercent"`
	PeakHour                string             `json:"peakHour" yaml:"peakHour"`
	ActiveDays              int                `json:"activeDays" yaml:"activeDays"`
	BestFlow                int                `json:"bestFlow" yaml:"bestFlow"`
	BestFlowPeriod          string             `json:"bestFlowPeriod" yaml:"bestFlowPeriod"`
	LongestSessionMinutes   int                `json:"longestSessionMinutes" yaml:"longestSessionMinutes"`
	LongestSessionDateLabel string             `json:"longestSessionDateLabel" yaml:"longestSessionDateLabel"`
	TopBooks                []TopBookData      `json:"topBooks" yaml:"topBooks"`
	Milestones              []MilestoneData    `json:"milestones" yaml:"milestones"`
	PercentileRank          int                `json:"percentileRank" yaml:"percentileRank"`
	TotalUsersCompared      int                `json:"totalUsersCompared" yaml:"totalUsersCompared"`
	PreviousYearMinutes     int                `json:"previousYearMinutes" yaml:"previousYearMinutes"`
	PreviousYearBooks       int                `json:"previousYearBooks" yaml:"previousYearBooks"`
	PreviousYearSessions    int                `json:"previousYearSessions" yaml:"previousYearSessions"`
	PreviousYearFlow        int                `json:"previousYearFlow" yaml:"previousYearFlow"`
}

const DefaultReaderName = "Lecteur"

func (in *YearlyWrappedInput) Normalize() {
	in.Format = in.Format.normalize()
}

// Name is the display name, "Lecteur" when none was given.
func (in *YearlyWrappedInput) Name() string {
	if in.UserName == "" {
		return DefaultReaderName
	}
	return in.UserName
}

// TopBook is the first entry of TopBooks, if any.
func (in *YearlyWrappedInput) TopBook() *TopBookData {
	if len(in.TopBooks) == 0 {
		return nil
	}
	return &in.TopBooks[0]
}
