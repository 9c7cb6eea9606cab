package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/keys"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/playback"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/samber/lo"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	PlaylistListView
	ConfirmDeleteView
)

const defaultPollInterval = 250 * time.Millisecond

var _ keys.View = (*Model)(nil)

// TrackStore is the local track cache the TUI keeps in step with the server.
type TrackStore interface {
	Put(tracks ...models.Track)
	Invalidate(id string)
}

// Options configures a [Model].
type Options struct {
	// Library is the music server. Nil limits the TUI to demo tracks.
	Library services.Library
	Tracks  TrackStore
	// Keys carries space and "/" to the session's dispatcher.
	Keys *keys.Bus
	// Demo overrides the bundled demo tracks and should match the session's.
	Demo []models.Track
	// PlaylistID opens the tracks view on a playlist instead of the whole library.
	PlaylistID   string
	PollInterval time.Duration
	Logger       *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	session *playback.Session
	library services.Library
	tracks  TrackStore
	bus     *keys.Bus
	demo    []models.Track
	logger  *log.Logger

	width  int
	height int

	trackList    list.Model
	playlistList list.Model
	search       textinput.Model
	progress     progress.Model
	help         help.Model
	keys         keyMap

	rows       *rows
	query      string
	playlistID string
	confirm    *models.Track
	state      playback.State
	status     string
	err        error

	interval    time.Duration
	updates     chan playback.State
	unsubscribe func()
}

// NewModel creates a TUI driving session's coordinator.
func NewModel(ctx context.Context, session *playback.Session, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	demo := opts.Demo
	if demo == nil {
		demo = playback.DemoTracks()
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search tracks"
	search.CharLimit = 128

	r := &rows{}
	trackList := list.New(nil, trackDelegate{rows: r}, 0, 0)
	configureList(&trackList, "Tracks")
	playlistList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	configureList(&playlistList, "Playlists")

	m := &Model{
		ctx:          ctx,
		view:         TrackListView,
		session:      session,
		library:      opts.Library,
		tracks:       opts.Tracks,
		bus:          opts.Keys,
		demo:         demo,
		logger:       logger.With("component", "ui"),
		trackList:    trackList,
		playlistList: playlistList,
		search:       search,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:         help.New(),
		keys:         newKeyMap(),
		rows:         r,
		playlistID:   opts.PlaylistID,
		interval:     interval,
		updates:      make(chan playback.State, 1),
	}

	m.unsubscribe = session.Coordinator.Subscribe(m.publish)
	m.refreshState()
	return m
}

func configureList(l *list.Model, title string) {
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
}

// Close stops listening to the coordinator. The session is closed by its owner.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init loads the first listing and starts mirroring playback state.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchTracks(), m.waitForPlayback(), m.poll())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case ConfirmDeleteView:
		body = m.renderConfirm()
	default:
		body = m.renderTrackList()
	}
	return fmt.Sprintf("%s\n\n%s%s", body, m.renderNowPlaying(), m.renderStatus())
}

// FocusSearch focuses the search input while the tracks view is showing.
func (m *Model) FocusSearch() bool {
	if m.view != TrackListView {
		return false
	}
	m.search.Focus()
	return true
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		if data.authenticated != m.serverMode() {
			return m, nil
		}
		if data.err != nil {
			m.err = fmt.Errorf("failed to load tracks: %w", data.err)
			m.logger.Error("track listing failed", "error", data.err)
			return m, nil
		}
		m.err = nil
		return m, m.setListing(data.listing, data.authenticated)

	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			if errors.Is(data.err, shared.ErrNotAuthenticated) {
				m.status = "Playlists need a server connection (press a)"
			} else {
				m.err = fmt.Errorf("failed to load playlists: %w", data.err)
			}
			return m, m.playlistList.SetItems(nil)
		}
		m.err = nil
		items := lo.Map(data.playlists, func(p models.Playlist, _ int) list.Item { return playlistItem{playlist: p} })
		return m, m.playlistList.SetItems(items)

	case MsgPlaybackChanged:
		m.state = msg.data.(playback.State)
		m.syncRows()
		return m, m.waitForPlayback()

	case MsgPoll:
		m.session.Poll()
		return m, m.poll()

	case MsgFavoriteToggled:
		data := msg.data.(trackChanged)
		if data.err != nil {
			m.err = fmt.Errorf("failed to update favorite: %w", data.err)
			return m, nil
		}
		if m.tracks != nil {
			m.tracks.Invalidate(data.track.ID)
		}
		m.err = nil
		m.status = fmt.Sprintf("%s %s", lo.Ternary(data.track.Favorite, "Favorited", "Unfavorited"), data.track.Title)
		return m, m.fetchTracks()

	case MsgTrackDeleted:
		data := msg.data.(trackChanged)
		if data.err != nil {
			m.err = fmt.Errorf("failed to delete track: %w", data.err)
			return m, nil
		}
		m.session.Coordinator.StopPlayback(data.track.ID)
		if m.tracks != nil {
			m.tracks.Invalidate(data.track.ID)
		}
		m.refreshState()
		m.err = nil
		m.status = fmt.Sprintf("Deleted %s", data.track.Title)
		return m, m.fetchTracks()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.view == ConfirmDeleteView {
		return m.handleConfirmKeys(msg)
	}

	if m.bus != nil && m.bus.Publish(keys.Event{Key: msg.String(), Editing: m.search.Focused(), View: m}) {
		m.refreshState()
		if m.search.Focused() {
			return m, textinput.Blink
		}
		return m, nil
	}

	if m.search.Focused() {
		return m.handleSearchKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		return m.switchView()
	case key.Matches(msg, m.keys.auth):
		return m.toggleAuthenticated()
	case key.Matches(msg, m.keys.next):
		m.session.Coordinator.PlayNextTrack()
		m.refreshState()
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.session.Coordinator.PlayPreviousTrack()
		m.refreshState()
		return m, nil
	}

	if m.view == PlaylistListView {
		return m.handlePlaylistListKeys(msg)
	}
	return m.handleTrackListKeys(msg)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.query = strings.TrimSpace(m.search.Value())
		m.search.Blur()
		return m, m.fetchTracks()
	case tea.KeyEsc:
		m.search.SetValue(m.query)
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if t, ok := m.selectedTrack(); ok {
			c := m.session.Coordinator
			if c.State().CurrentTrackID == t.ID {
				c.TogglePlayPause()
			} else {
				c.PlayTrack(t)
			}
			m.refreshState()
		}
		return m, nil

	case key.Matches(msg, m.keys.favorite):
		t, ok := m.selectedTrack()
		if !ok {
			return m, nil
		}
		if !m.serverMode() {
			m.status = "Favorites need a server connection"
			return m, nil
		}
		return m, m.toggleFavorite(t)

	case key.Matches(msg, m.keys.remove):
		t, ok := m.selectedTrack()
		if !ok {
			return m, nil
		}
		if !m.serverMode() {
			m.status = "Demo tracks cannot be deleted"
			return m, nil
		}
		m.confirm = &t
		m.view = ConfirmDeleteView
		return m, nil

	case key.Matches(msg, m.keys.back):
		if m.playlistID != "" {
			m.playlistID = ""
			return m, m.fetchTracks()
		}
		if m.query != "" {
			m.query = ""
			m.search.SetValue("")
			return m, m.fetchTracks()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.enter) {
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.playlistID = pl.playlist.ID
			m.query = ""
			m.search.SetValue("")
			m.view = TrackListView
			return m, m.fetchTracks()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		t := *m.confirm
		m.confirm = nil
		m.view = TrackListView
		return m, m.deleteTrack(t)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.confirm = nil
		m.view = TrackListView
	}
	return m, nil
}

func (m *Model) switchView() (tea.Model, tea.Cmd) {
	if m.view == TrackListView {
		m.search.Blur()
		m.view = PlaylistListView
		return m, m.fetchPlaylists()
	}
	m.view = TrackListView
	return m, nil
}

func (m *Model) toggleAuthenticated() (tea.Model, tea.Cmd) {
	if m.library == nil {
		m.status = "No server configured, demo tracks only"
		return m, nil
	}

	c := m.session.Coordinator
	authenticated := !c.State().Authenticated
	c.SetAuthenticated(authenticated)

	m.playlistID = ""
	m.query = ""
	m.search.SetValue("")
	m.view = TrackListView
	m.err = nil
	m.status = lo.Ternary(authenticated, "Switched to server tracks", "Switched to demo tracks")
	m.playlistList.SetItems(nil)
	m.refreshState()
	return m, m.fetchTracks()
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// setListing shows l and makes it the coordinator's navigation context.
func (m *Model) setListing(l *formatter.Listing, authenticated bool) tea.Cmd {
	title := l.Title
	if m.query != "" {
		title = fmt.Sprintf("%s matching %q", title, m.query)
	}
	if !authenticated {
		title += " (demo)"
	}
	m.trackList.Title = title

	m.session.Coordinator.SetPlaylist(l.Tracks)
	if authenticated && m.tracks != nil {
		m.tracks.Put(l.Tracks...)
	}
	m.refreshState()

	items := lo.Map(l.Tracks, func(t models.Track, _ int) list.Item { return trackItem{track: t} })
	return m.trackList.SetItems(items)
}

func (m *Model) selectedTrack() (models.Track, bool) {
	it, ok := m.trackList.SelectedItem().(trackItem)
	if !ok {
		return models.Track{}, false
	}
	return it.track, true
}

// serverMode reports whether listings come from the server rather than the demo catalog.
func (m *Model) serverMode() bool {
	return m.library != nil && m.session.Coordinator.Authenticated()
}

func (m *Model) refreshState() {
	m.state = m.session.Coordinator.State()
	m.syncRows()
}

func (m *Model) syncRows() {
	m.rows.query = m.query
	m.rows.currentID = m.state.CurrentTrackID
	m.rows.playing = m.state.IsPlaying
}

func (m *Model) resize() {
	listHeight := max(m.height-9, 3)
	m.trackList.SetSize(m.width-4, listHeight)
	m.playlistList.SetSize(m.width-4, listHeight)
	m.progress.Width = max(m.width-24, 10)
	m.search.Width = max(m.width-8, 10)
	m.help.Width = m.width
}

// publish hands st to the update loop, replacing any state it has not picked up yet.
// It runs on coordinator goroutines and never blocks.
func (m *Model) publish(st playback.State) {
	for {
		select {
		case m.updates <- st:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m *Model) waitForPlayback() tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-m.updates:
			return playbackChangedMsg(st)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) poll() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg() })
}

func (m *Model) fetchTracks() tea.Cmd {
	authenticated := m.serverMode()
	query, playlistID := m.query, m.playlistID
	demo := m.demo

	return func() tea.Msg {
		if !authenticated {
			l := &formatter.Listing{ID: "demo", Title: "Demo Tracks", Tracks: filterTracks(demo, query)}
			return tracksFetchedMsg(l, false, nil)
		}

		if playlistID != "" {
			p, err := m.library.GetPlaylistByID(m.ctx, playlistID)
			if err != nil {
				return tracksFetchedMsg(nil, true, err)
			}
			l := formatter.PlaylistListing(*p)
			l.Tracks = filterTracks(l.Tracks, query)
			return tracksFetchedMsg(l, true, nil)
		}

		tracks, err := m.library.GetTracks(m.ctx, query)
		if err != nil {
			return tracksFetchedMsg(nil, true, err)
		}
		return tracksFetchedMsg(formatter.LibraryListing(tracks), true, nil)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	if !m.serverMode() {
		return func() tea.Msg { return playlistsFetchedMsg(nil, shared.ErrNotAuthenticated) }
	}
	return func() tea.Msg {
		playlists, err := m.library.GetPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) toggleFavorite(t models.Track) tea.Cmd {
	return func() tea.Msg {
		var err error
		if t.Favorite {
			err = m.library.RemoveFavorite(m.ctx, t.ID)
		} else {
			err = m.library.AddFavorite(m.ctx, t.ID)
		}
		t.Favorite = !t.Favorite
		return favoriteToggledMsg(t, err)
	}
}

func (m *Model) deleteTrack(t models.Track) tea.Cmd {
	return func() tea.Msg {
		return trackDeletedMsg(t, m.library.DeleteTrack(m.ctx, t.ID))
	}
}

// filterTracks keeps tracks whose title or artist contains query, ignoring case.
func filterTracks(tracks []models.Track, query string) []models.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tracks
	}
	return lo.Filter(tracks, func(t models.Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Artist), q)
	})
}

func (m *Model) renderTrackList() string {
	var helpKeys []key.Binding
	switch {
	case m.search.Focused():
		apply := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search"))
		helpKeys = []key.Binding{apply, m.keys.back}
	case m.serverMode():
		helpKeys = []key.Binding{
			m.keys.enter, m.keys.toggle, m.keys.next, m.keys.prev, m.keys.search,
			m.keys.favorite, m.keys.remove, m.keys.tab, m.keys.auth, m.keys.quit,
		}
	default:
		helpKeys = []key.Binding{
			m.keys.enter, m.keys.toggle, m.keys.next, m.keys.prev, m.keys.search, m.keys.auth, m.keys.quit,
		}
	}

	return fmt.Sprintf("%s\n%s\n\n%s", m.search.View(), m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderPlaylistList() string {
	open := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open"))
	helpKeys := []key.Binding{open, m.keys.tab, m.keys.toggle, m.keys.auth, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	t := m.confirm
	title := styles.title.Render(fmt.Sprintf("Delete '%s'?", t.Title))
	info := fmt.Sprintf("\nArtist: %s\nDuration: %s\n\n%s\n",
		t.Artist, formatter.FormatDuration(t.Duration), styles.warn.Render("This removes the track from the server."))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderNowPlaying() string {
	st := m.state
	mode := styles.muted.Render(lo.Ternary(st.Authenticated, "[server]", "[demo]"))
	if st.CurrentTrackID == "" {
		return fmt.Sprintf("%s %s", styles.muted.Render("Nothing playing"), mode)
	}

	title := st.CurrentTrackID
	length := st.Duration
	if t := st.CurrentTrack; t != nil {
		title = fmt.Sprintf("%s · %s", t.Title, t.Artist)
		if length <= 0 {
			length = time.Duration(t.Duration) * time.Second
		}
	}

	percent := 0.0
	if length > 0 {
		percent = min(float64(st.CurrentTime)/float64(length), 1)
	}

	return fmt.Sprintf("%s %s %s\n%s %s / %s",
		styles.ok.Render(lo.Ternary(st.IsPlaying, "▶", "❚❚")),
		title,
		mode,
		m.progress.ViewAs(percent),
		formatter.FormatTime(st.CurrentTime),
		formatter.FormatTime(length),
	)
}

func (m *Model) renderStatus() string {
	switch {
	case m.err != nil:
		return "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		return "\n" + styles.help.Render(m.status)
	default:
		return ""
	}
}
