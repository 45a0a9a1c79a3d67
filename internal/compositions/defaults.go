package compositions

import "github.com/acoeffic/readon/internal/prng"

var DefaultReadingSession = ReadingSessionInput{
	Format:          Story,
	BookTitle:       "Dune",
	BookAuthor:      "Frank Herbert",
	PagesRead:       36,
	DurationMinutes: 45,
	StartPage:       42,
	EndPage:         78,
}

var DefaultBookFinished = BookFinishedInput{
	Format:         Story,
	Title:          "Dune",
	Author:         "Frank Herbert",
	PagesRead:      688,
	TotalPages:     688,
	ReadingTime:    "22h 15min",
	Sessions:       31,
	StartDate:      "3 Déc",
	EndDate:        "2 Fév",
	DominantColor:  DefaultDominantColor,
	SecondaryColor: DefaultSecondaryColor,
	Seed:           42,
}

// DefaultMonthlyWrapped builds fresh sample data; the daily series is seeded
// so previews stay stable between runs.
func DefaultMonthlyWrapped() MonthlyWrappedInput {
	rng := prng.NewParkMiller(MonthlySeed(5, 2025))
	daily := make([]int, 31)
	for i := range daily {
		daily[i] = int(rng.Next() * 120)
	}
	return MonthlyWrappedInput{
		Format:                Story,
		Month:                 5,
		Year:                  2025,
		TotalMinutes:          1480,
		Sessions:              24,
		AvgSessionMinutes:     62,
		BooksFinished:         3,
		BooksInProgress:       2,
		LongestSessionMinutes: 120,
		BestDayWeekday:        7,
		LongestFlow:           12,
		CurrentFlow:           8,
		TopBook: &TopBookData{
			Title:        "L'Insoutenable Légèreté de l'être",
			Author:       "Milan Kundera",
			TotalMinutes: 480,
		},
		VsLastMonthPercent: 23,
		DailyMinutes:       daily,
		Badges:             []BadgeData{},
	}
}

func DefaultYearlyWrapped() YearlyWrappedInput {
	return YearlyWrappedInput{
		Format:                  Story,
		Year:                    2025,
		UserName:                "Adrien",
		TotalMinutes:            14820,
		TotalSessions:           1482,
		AvgSessionMinutes:       10,
		BooksFinished:           34,
		BooksPerMonth:           []MonthlyBookCount{},
		TopGenres:               []GenreData{},
		ReaderType:              "Night Owl Reader",
		ReaderEmoji:             "🌙",
		NightSessionsPercent:    72,
		PeakHour:                "22h30",
		ActiveDays:              298,
		BestFlow:                42,
		BestFlowPeriod:          "Juillet-Août",
		LongestSessionMinutes:   180,
		LongestSessionDateLabel: "15 mars",
		TopBooks: []TopBookData{
			{Title: "Les Frères Karamazov", Author: "Dostoïevski", TotalMinutes: 2400},
			{Title: "Dune", Author: "Frank Herbert", TotalMinutes: 1800},
		},
		Milestones:           []MilestoneData{},
		PercentileRank:       3,
		TotalUsersCompared:   12000,
		PreviousYearMinutes:  9600,
		PreviousYearBooks:    22,
		PreviousYearSessions: 980,
		PreviousYearFlow:     28,
	}
}
