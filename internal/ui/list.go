package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
)

var (
	_ list.Item         = playlistItem{}
	_ list.Item         = trackItem{}
	_ list.ItemDelegate = trackDelegate{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string {
	if i.playlist.IsFavorites() {
		return "★ " + i.playlist.Title
	}
	return i.playlist.Title
}
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d tracks • %s", i.playlist.TrackCount, formatter.FormatDuration(i.playlist.Duration))
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }

// rows is what the track delegate needs to know about the model when drawing.
type rows struct {
	query     string
	currentID string
	playing   bool
}

// trackDelegate draws one track per line: index or now-playing marker, highlighted title and artist,
// duration, and a star for favorites.
type trackDelegate struct {
	rows *rows
}

func (d trackDelegate) Height() int  { return 1 }
func (d trackDelegate) Spacing() int { return 0 }

func (d trackDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d trackDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(trackItem)
	if !ok {
		return
	}
	t := it.track

	marker := fmt.Sprintf("%3d", index+1)
	if t.ID != "" && t.ID == d.rows.currentID {
		symbol := "❚❚"
		if d.rows.playing {
			symbol = "▶"
		}
		marker = styles.ok.Render(fmt.Sprintf("%3s", symbol))
	}

	cursor := "  "
	if index == m.Index() {
		cursor = styles.cursor.Render("> ")
	}

	star := " "
	if t.Favorite {
		star = styles.warn.Render("★")
	}

	fmt.Fprintf(w, "%s%s  %s %s %s  %s %s",
		cursor,
		marker,
		highlight(t.Title, d.rows.query, lipgloss.NewStyle()),
		styles.muted.Render("·"),
		highlight(t.Artist, d.rows.query, styles.muted),
		styles.muted.Render(formatter.FormatDuration(t.Duration)),
		star,
	)
}

// highlight renders text with the segments matching query picked out.
func highlight(text, query string, base lipgloss.Style) string {
	var b strings.Builder
	for _, seg := range formatter.Highlight(text, query) {
		if seg.Match {
			b.WriteString(styles.match.Render(seg.Text))
		} else {
			b.WriteString(base.Render(seg.Text))
		}
	}
	return b.String()
}
