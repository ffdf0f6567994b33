package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

type stubSearcher struct {
	got     domain.Filter
	results []domain.SearchResult
	err     error
}

func (s *stubSearcher) Query(_ context.Context, _ string, _ int, filter domain.Filter) ([]domain.SearchResult, error) {
	s.got = filter
	return s.results, s.err
}

func typeQuery(t *testing.T, m Model, q string) Model {
	t.Helper()
	for _, r := range q {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestModel_QueryShowsResults(t *testing.T) {
	s := &stubSearcher{results: []domain.SearchResult{
		{DocID: "d", ChunkIndex: 4, Content: "Saliva moistens food. It contains amylase.", Metadata: domain.Metadata{Source: "a.pdf", Page: 12}, Similarity: domain.Float64(0.5)},
		{DocID: "d", ChunkIndex: 9, Content: "Other text.", Metadata: domain.Metadata{Source: "a.pdf", Page: 30}},
	}}
	filter := domain.Filter{Source: "a.pdf"}
	m := sized(New(context.Background(), s, 3, filter, "a.pdf"))
	m = typeQuery(t, m, "amylase")

	assert.Equal(t, filter, s.got)
	assert.Contains(t, m.status, `2 results for "amylase"`)
	assert.Contains(t, m.renderCurrentResult(), "Result 1/2  a.pdf page 12  sim=0.500  chunk_index=4")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderCurrentResult(), "page 30  sim=?  chunk_index=9")
	assert.Contains(t, m.View(), "docrag probe")
}

func TestModel_NoMatchesAndErrors(t *testing.T) {
	s := &stubSearcher{}
	m := sized(New(context.Background(), s, 3, domain.Filter{}, ""))
	m = typeQuery(t, m, "nothing")
	assert.Equal(t, "(no matches)", m.renderCurrentResult())

	s.err = errors.New("index offline")
	m = typeQuery(t, m, "again")
	assert.Equal(t, "Error: index offline", m.status)
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Water is wet. Vitamins dissolve in water. The end.", "water soluble vitamins")
	assert.Contains(t, out, highlightStyle.Render("Vitamins dissolve in water."))
	assert.Equal(t, "A. B.", highlightBestSentence("A. B.", ""))
}
