package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/acoeffic/readon/internal/store"
)

const (
	finishedLimit = 30
	toReadLimit   = 20
	topGenres     = 5
	topAuthors    = 5
)

const SystemPrompt = `Tu es Muse, conseillère littéraire passionnée et bienveillante pour l'application LexDay.
Tu réponds toujours en français, de façon concise et chaleureuse (trois ou quatre paragraphes au plus).

RÈGLES :
- Ne recommande que des livres dont tu es certaine qu'ils existent, avec le titre et l'auteur exacts.
- N'invente jamais de titre ni d'auteur. En cas de doute sur un livre, ne le cite pas.
- Cite toujours un livre sous la forme "Titre exact" de Auteur exact, titre entre guillemets droits. Par exemple : "L'Étranger" de Albert Camus.
- Ne propose pas un livre que le lecteur a déjà lu, lit en ce moment ou a mis dans sa liste à lire.

PERSONNALISATION :
- Appuie tes conseils sur les lectures passées du lecteur, fournies dans le contexte.
- Repère les genres, auteurs et thèmes qui reviennent pour cerner ses goûts.
- Quand un genre ou un auteur domine, propose des titres proches ou du même auteur.
- Explique le lien avec ses lectures ("Puisque tu as aimé X de Y, Z devrait te plaire car...").
- Sans historique de lecture, propose des classiques reconnus et demande ses préférences.

Si la question n'a rien à voir avec la lecture, rappelle gentiment que tu es Muse, sa conseillère lecture, et propose de l'aider à trouver son prochain livre.`

const noReadingData = "Aucune donnée de lecture disponible. Propose des classiques reconnus et demande les préférences du lecteur."

// ReaderContext summarises the reader's shelves and goals for year as the
// French text block handed to the model.
func (s *Service) ReaderContext(ctx context.Context, userID string, year int) (string, error) {
	finished, err := s.store.BooksByStatus(ctx, userID, store.StatusFinished, finishedLimit)
	if err != nil {
		return "", err
	}
	reading, err := s.store.BooksByStatus(ctx, userID, store.StatusReading, 0)
	if err != nil {
		return "", err
	}
	toRead, err := s.store.BooksByStatus(ctx, userID, store.StatusToRead, toReadLimit)
	if err != nil {
		return "", err
	}
	goals, err := s.store.ActiveGoals(ctx, userID, year)
	if err != nil {
		return "", err
	}
	return formatContext(finished, reading, toRead, goals), nil
}

func formatContext(finished, reading, toRead []store.Book, goals []store.Goal) string {
	read := append(append([]store.Book(nil), finished...), reading...)
	genres := rank(read, func(b store.Book) string { return b.Genre })
	authors := rank(read, func(b store.Book) string { return b.Author })

	var sb strings.Builder
	if top := counted(genres, topGenres, 1); len(top) > 0 {
		fmt.Fprintf(&sb, "Genres préférés: %s\n\n", strings.Join(top, ", "))
	}
	if top := counted(authors, topAuthors, 2); len(top) > 0 {
		fmt.Fprintf(&sb, "Auteurs favoris (plusieurs livres lus): %s\n\n", strings.Join(top, ", "))
	}
	if len(finished) > 0 {
		fmt.Fprintf(&sb, "Livres terminés récemment (%d):\n%s\n\n", len(finished), bookList(finished))
	}
	if len(reading) > 0 {
		fmt.Fprintf(&sb, "En cours de lecture:\n%s\n\n", bookList(reading))
	}
	if len(toRead) > 0 {
		fmt.Fprintf(&sb, "Liste à lire (ne pas recommander ceux-ci):\n%s\n\n", bookList(toRead))
	}
	if len(goals) > 0 {
		lines := make([]string, len(goals))
		for i, g := range goals {
			lines[i] = fmt.Sprintf("- %s: %d", g.GoalType, g.TargetValue)
		}
		fmt.Fprintf(&sb, "Objectifs de lecture:\n%s\n", strings.Join(lines, "\n"))
	}
	if sb.Len() == 0 {
		return noReadingData
	}
	return sb.String()
}

func bookList(books []store.Book) string {
	lines := make([]string, len(books))
	for i, b := range books {
		line := "- " + b.Title
		if b.Author != "" {
			line += " de " + b.Author
		}
		if b.Genre != "" {
			line += " (" + b.Genre + ")"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

type tally struct {
	name  string
	count int
}

// rank counts non-empty keys, most frequent first. Ties keep first-seen
// order.
func rank(books []store.Book, key func(store.Book) string) []tally {
	index := map[string]int{}
	var out []tally
	for _, b := range books {
		k := key(b)
		if k == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, tally{name: k})
		}
		out[i].count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

// counted formats the first n entries that reach minCount. The cut happens
// before the filter.
func counted(ts []tally, n, minCount int) []string {
	if len(ts) > n {
		ts = ts[:n]
	}
	var out []string
	for _, t := range ts {
		if t.count >= minCount {
			out = append(out, fmt.Sprintf("%s (%d livres)", t.name, t.count))
		}
	}
	return out
}
