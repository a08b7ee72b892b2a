package askcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/vera/pkg/cliui"
	"github.com/papercomputeco/vera/pkg/client"
	"github.com/papercomputeco/vera/pkg/render"
	"github.com/papercomputeco/vera/pkg/session"
	"github.com/papercomputeco/vera/pkg/state"
	"github.com/papercomputeco/vera/pkg/utils"
)

const (
	// chromeLines is the number of screen lines outside the viewport:
	// header, search line, input, help and two rules.
	chromeLines = 6

	sectionShortcuts = 9
)

var (
	askTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	askMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	askRuleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	askErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	askSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

type focusArea int

const (
	focusInput focusArea = iota
	focusAnswer
)

type askKeyMap struct {
	Submit key.Binding
	Stop   key.Binding
	Focus  key.Binding
	Toggle key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

func (k askKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Stop, k.Focus, k.Toggle, k.Up, k.Down, k.Quit}
}

func (k askKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Stop, k.Focus}, {k.Toggle, k.Up, k.Down, k.Quit}}
}

func defaultKeyMap() askKeyMap {
	return askKeyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		Stop:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
		Focus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "input/answer")),
		Toggle: key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "sections")),
		Up:     key.NewBinding(key.WithKeys("up", "pgup"), key.WithHelp("↑", "scroll")),
		Down:   key.NewBinding(key.WithKeys("down", "pgdown"), key.WithHelp("↓", "scroll")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// snapshotMsg carries a snapshot published by the controller.
type snapshotMsg struct {
	state *state.State
}

type startedMsg struct {
	session *session.Session
	err     error
}

type finishedMsg struct {
	summary session.Summary
}

// programSender forwards controller snapshots into a running program.
// Snapshots published before the program is attached are dropped.
type programSender struct {
	program atomic.Pointer[bubbletea.Program]
}

func (s *programSender) send(st *state.State) {
	if p := s.program.Load(); p != nil {
		p.Send(snapshotMsg{state: st})
	}
}

func runTUI(ctx context.Context, cl *client.Client, query string, opts render.Options) error {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)

	sender := &programSender{}
	ctrl := cl.NewController(sender.send)
	defer ctrl.Close()

	model, err := newAskModel(ctx, cl, ctrl, opts, query)
	if err != nil {
		return err
	}

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	sender.program.Store(program)

	_, err = program.Run()
	if errors.Is(err, bubbletea.ErrProgramKilled) {
		return nil
	}
	return err
}

type askModel struct {
	ctx    context.Context
	client *client.Client
	ctrl   *session.Controller

	opts render.Options
	term *render.Terminal

	snapshot  *state.State
	current   *session.Session
	summary   *session.Summary
	expanded  map[string]bool
	focus     focusArea
	streaming bool
	initial   string
	err       error

	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model
	help     help.Model
	keys     askKeyMap

	width  int
	height int
}

func newAskModel(ctx context.Context, cl *client.Client, ctrl *session.Controller, opts render.Options, initial string) (askModel, error) {
	t, err := render.NewTerminal(opts)
	if err != nil {
		return askModel{}, err
	}

	input := textinput.New()
	input.Placeholder = "Ask a clinical question"
	input.Prompt = "› "
	input.CharLimit = 2000

	m := askModel{
		ctx:      ctx,
		client:   cl,
		ctrl:     ctrl,
		opts:     opts,
		term:     t,
		snapshot: state.Initial(),
		expanded: map[string]bool{},
		input:    input,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(askSpinnerStyle)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		viewport: viewport.New(80, 20),
		help:     help.New(),
		keys:     defaultKeyMap(),
		initial:  initial,
	}

	if initial != "" {
		m.input.SetValue(initial)
		m.streaming = true
		m.focus = focusAnswer
	} else {
		m.input.Focus()
	}

	return m, nil
}

func (m askModel) Init() bubbletea.Cmd {
	if m.initial != "" {
		return bubbletea.Batch(startCmd(m.ctx, m.ctrl, m.initial), m.spinner.Tick)
	}
	return textinput.Blink
}

func (m askModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height)

	case snapshotMsg:
		m.snapshot = msg.state
		m.refresh()
		return m, nil

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m.idle()
		}
		m.current = msg.session
		return m, waitCmd(m.ctx, m.client, msg.session)

	case finishedMsg:
		if m.current == nil || msg.summary.SessionID != m.current.ID() {
			return m, nil
		}
		m.summary = &msg.summary
		m.input.Reset()
		return m.idle()

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m askModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.streaming {
			return m, cancelCmd(m.ctrl)
		}
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.streaming {
			return m, nil
		}
		if m.focus == focusInput {
			m.focus = focusAnswer
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()
	}

	if m.focus == focusInput {
		if key.Matches(msg, m.keys.Submit) {
			return m.submit()
		}
		var cmd bubbletea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, m.keys.Toggle) && len(msg.Runes) == 1 {
		m.toggleSection(int(msg.Runes[0] - '1'))
		return m, nil
	}

	var cmd bubbletea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// submit starts a session for the typed question. The input stays disabled
// until the session finishes.
func (m askModel) submit() (bubbletea.Model, bubbletea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.streaming {
		return m, nil
	}

	m.streaming = true
	m.err = nil
	m.summary = nil
	m.expanded = map[string]bool{}
	m.focus = focusAnswer
	m.input.Blur()

	return m, bubbletea.Batch(startCmd(m.ctx, m.ctrl, query), m.spinner.Tick)
}

func (m askModel) idle() (bubbletea.Model, bubbletea.Cmd) {
	m.streaming = false
	m.focus = focusInput
	return m, m.input.Focus()
}

func (m *askModel) toggleSection(idx int) {
	if idx < 0 || idx >= sectionShortcuts || idx >= len(m.snapshot.Sections) {
		return
	}
	id := m.snapshot.Sections[idx].ID
	m.expanded[id] = !m.expanded[id]
	m.refresh()
}

func (m askModel) resize(width, height int) (bubbletea.Model, bubbletea.Cmd) {
	m.width = width
	m.height = height

	m.viewport.Width = width
	m.viewport.Height = max(3, height-chromeLines)
	m.input.Width = max(10, width-4)
	m.progress.Width = max(10, min(40, width/3))
	m.help.Width = width

	opts := m.opts
	opts.WordWrap = max(20, width-4)
	if t, err := render.NewTerminal(opts); err == nil {
		m.term = t
	}

	m.refresh()
	return m, nil
}

// refresh re-renders the answer into the viewport, following the tail
// unless the reader has scrolled away from it.
func (m *askModel) refresh() {
	// Search telemetry is shown in the header instead.
	view := *m.snapshot
	view.Search = state.Search{}

	content, err := m.term.RenderWith(&view, m.expanded)
	if err != nil {
		m.err = err
		return
	}

	follow := m.viewport.AtBottom()
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m askModel) View() string {
	lines := []string{
		m.viewHeader(),
		m.viewSearch(),
		askRuleStyle.Render(strings.Repeat("─", max(1, m.width))),
		m.viewport.View(),
		askRuleStyle.Render(strings.Repeat("─", max(1, m.width))),
		m.viewInput(),
		m.help.View(m.keys),
	}
	return strings.Join(lines, "\n")
}

func (m askModel) viewHeader() string {
	title := askTitleStyle.Render("vera")

	var status string
	switch {
	case m.streaming:
		status = m.spinner.View() + " " + askMutedStyle.Render("streaming")
	case m.err != nil:
		status = askErrorStyle.Render(m.err.Error())
	case m.summary != nil:
		status = cliui.SummaryLine(*m.summary)
	default:
		status = askMutedStyle.Render("ask a clinical question")
	}

	return utils.Truncate(title+"  "+status, max(1, m.width-3))
}

func (m askModel) viewSearch() string {
	s := m.snapshot
	if len(s.Search.Steps) == 0 && s.Search.Progress == nil {
		return ""
	}

	var bar string
	if s.Search.Progress != nil {
		bar = m.progress.ViewAs(*s.Search.Progress/100) + " " + fmt.Sprintf("%3.0f%%", *s.Search.Progress)
	}

	steps := askMutedStyle.Render(strings.Join(s.Search.Steps, " → "))
	return utils.Truncate(strings.TrimSpace(bar+"  "+steps), max(1, m.width-3))
}

func (m askModel) viewInput() string {
	if m.streaming {
		return askMutedStyle.Render(m.input.Prompt + m.input.Value())
	}
	return m.input.View()
}

func startCmd(ctx context.Context, ctrl *session.Controller, query string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		s, err := ctrl.Start(ctx, query)
		return startedMsg{session: s, err: err}
	}
}

// waitCmd blocks until s finishes, then publishes its summary event.
func waitCmd(ctx context.Context, cl *client.Client, s *session.Session) bubbletea.Cmd {
	return func() bubbletea.Msg {
		sum := s.Summary()
		cl.Publish(ctx, sum)
		return finishedMsg{summary: sum}
	}
}

func cancelCmd(ctrl *session.Controller) bubbletea.Cmd {
	return func() bubbletea.Msg {
		ctrl.Cancel()
		return nil
	}
}
