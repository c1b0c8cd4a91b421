package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nconklindev/tablegrab/internal/api"
	"github.com/nconklindev/tablegrab/internal/artifact"
	"github.com/nconklindev/tablegrab/internal/session"
	"github.com/nconklindev/tablegrab/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateBrowse state = iota
	stateProcessing
	stateResult
)

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastWarn
	toastError
)

const toastTTL = 4 * time.Second

// toast is a transient, auto-dismissing notification line.
type toast struct {
	text  string
	level toastLevel
	until time.Time
}

type Model struct {
	state  state
	sess   *session.Session
	client *api.Client

	filepicker filepicker.Model
	focusList  bool
	cursor     int

	progress     progress.Model
	progressChan chan types.ProgressUpdate
	doneChan     chan batchDoneMsg
	progMsg      string

	// Result pane state. resultTable and artifactRef persist across runs
	// so a result with an empty preview grid or missing artifact URL
	// leaves the previous rendering in place while the counts update.
	batch       *types.BatchResult
	resultTable string
	rowCount    int
	colCount    int
	artifactRef string
	saving      bool

	toasts  []toast
	initial []session.Outcome

	width  int
	height int
}

type healthMsg struct{ err error }

type filesStagedMsg struct{ outcomes []session.Outcome }

type batchProgressMsg types.ProgressUpdate

type batchDoneMsg struct {
	result *types.BatchResult
	err    error
}

type waitForBatchMsg struct{}

type artifactDoneMsg struct {
	sum *artifact.Summary
	err error
}

type toastExpiredMsg time.Time

// InitialModel builds the UI around an already constructed session and
// service client. initial carries staging outcomes for files given on the
// command line, so their rejections surface as toasts once the program runs.
func InitialModel(sess *session.Session, client *api.Client, initial []session.Outcome) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#3EC1A8"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FD9C8"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#3EC1A8")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	prog := progress.New(progress.WithGradient("#3EC1A8", "#7FD9C8"))

	return Model{
		state:      stateBrowse,
		sess:       sess,
		client:     client,
		filepicker: fp,
		progress:   prog,
		initial:    initial,
	}
}

func (m Model) Init() tea.Cmd {
	initial := m.initial
	return tea.Batch(
		m.filepicker.Init(),
		checkHealth(m.client),
		func() tea.Msg { return filesStagedMsg{outcomes: initial} },
	)
}

func checkHealth(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthMsg{err: client.Health(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for title, panes, help, and toast lines.
		height := msg.Height - 18
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case healthMsg:
		if msg.err != nil {
			return m, m.pushToast(toastWarn, fmt.Sprintf("backend unreachable at %s", m.client.BaseURL()))
		}
		return m, nil

	case filesStagedMsg:
		var cmds []tea.Cmd
		for _, out := range msg.outcomes {
			switch out.Reason {
			case session.RejectBadType:
				cmds = append(cmds, m.pushToast(toastError,
					fmt.Sprintf("%s: unsupported type %s (PNG, JPEG, BMP, TIFF only)", out.Name, out.MIME)))
			case session.RejectTooLarge:
				cmds = append(cmds, m.pushToast(toastError,
					fmt.Sprintf("%s: larger than 10 MiB", out.Name)))
			}
			// Duplicates are dropped silently.
		}
		return m, tea.Batch(cmds...)

	case batchProgressMsg:
		if m.state == stateProcessing {
			u := types.ProgressUpdate(msg)
			m.progMsg = fmt.Sprintf("%s %d/%d: %s", u.Phase, u.Index+1, u.Total, u.Filename)
			cmd := m.progress.SetPercent(u.Fraction)
			return m, tea.Batch(cmd, waitForBatch(m.progressChan, m.doneChan))
		}
		return m, nil

	case waitForBatchMsg:
		return m, waitForBatch(m.progressChan, m.doneChan)

	case batchDoneMsg:
		if msg.err != nil {
			m.state = stateBrowse
			return m, m.pushToast(toastError, msg.err.Error())
		}
		m.batch = msg.result
		m.applyResult(msg.result.First)
		m.state = stateResult
		return m, m.pushToast(toastSuccess,
			fmt.Sprintf("processed %d file(s)", msg.result.FilesProcessed))

	case artifactDoneMsg:
		m.saving = false
		if msg.err != nil {
			return m, m.pushToast(toastError, msg.err.Error())
		}
		return m, m.pushToast(toastSuccess,
			fmt.Sprintf("saved %s (%d rows x %d cols)", msg.sum.Path, msg.sum.Rows, msg.sum.Cols))

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case toastExpiredMsg:
		now := time.Now()
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.until.After(now) {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, nil
	}

	// The file picker consumes everything else while it has focus.
	if m.state == stateBrowse && !m.focusList {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			return m, tea.Batch(cmd, stageFile(m.sess, path))
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateBrowse:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.focusList {
				m.focusList = false
			} else if m.sess.Len() > 0 {
				m.focusList = true
				m.cursor = 0
			}
			return m, nil
		case "p":
			if !m.sess.CanProcess() {
				// Disabled trigger: empty list or a run in flight.
				return m, nil
			}
			return m.startBatch()
		}

		if m.focusList {
			switch msg.String() {
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < m.sess.Len()-1 {
					m.cursor++
				}
			case "x", "backspace", "delete":
				m.sess.Remove(m.cursor)
				if m.cursor >= m.sess.Len() {
					m.cursor = m.sess.Len() - 1
				}
				if m.sess.Len() == 0 {
					m.focusList = false
					m.cursor = 0
				}
			case "c":
				m.sess.Clear()
				m.focusList = false
				m.cursor = 0
			}
			return m, nil
		}

		// Remaining keys belong to the file picker.
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)
		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			return m, tea.Batch(cmd, stageFile(m.sess, path))
		}
		return m, cmd

	case stateProcessing:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case stateResult:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			if m.artifactRef == "" {
				return m, m.pushToast(toastWarn, "no spreadsheet artifact for this result")
			}
			if m.saving {
				return m, nil
			}
			m.saving = true
			return m, saveArtifact(m.client, m.artifactRef)
		case "n", "enter":
			// Starting a new batch destroys the previous staging state.
			m.sess.Clear()
			m.batch = nil
			m.resultTable = ""
			m.rowCount = 0
			m.colCount = 0
			m.artifactRef = ""
			m.focusList = false
			m.cursor = 0
			m.state = stateBrowse
			return m, nil
		}
		return m, nil
	}
	return m, nil
}

// applyResult folds the first file's extraction result into the view state.
// An empty preview grid keeps the previous table; a missing artifact URL
// keeps the previous target. Counts always take the new values.
func (m *Model) applyResult(first *types.ProcessResult) {
	if first == nil {
		m.rowCount = 0
		m.colCount = 0
		return
	}
	if len(first.PreviewData) > 0 {
		m.resultTable = renderGrid(first.PreviewData)
	}
	m.rowCount = first.RowCount
	m.colCount = first.ColCount
	if first.ExcelURL != "" {
		m.artifactRef = first.ExcelURL
	}
}

func (m Model) startBatch() (Model, tea.Cmd) {
	m.state = stateProcessing
	m.progMsg = "starting..."
	m.progressChan = make(chan types.ProgressUpdate, 16)
	m.doneChan = make(chan batchDoneMsg, 1)

	progressChan := m.progressChan
	doneChan := m.doneChan
	sess := m.sess

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				result, err := sess.Process(context.Background(), func(u types.ProgressUpdate) {
					select {
					case progressChan <- u:
					default:
					}
				})
				doneChan <- batchDoneMsg{result: result, err: err}
				close(progressChan)
				close(doneChan)
			}()
			return waitForBatchMsg{}
		},
		waitForBatch(progressChan, doneChan),
		m.progress.Init(),
	)

	return m, cmd
}

func waitForBatch(progressChan chan types.ProgressUpdate, doneChan chan batchDoneMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		u, ok := <-progressChan
		if !ok {
			// Progress channel closed, the run is over.
			done, ok := <-doneChan
			if ok {
				return done
			}
			return nil
		}
		return batchProgressMsg(u)
	}
}

func stageFile(sess *session.Session, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			// Surface read failures through the same rejection path as
			// a type mismatch so the UI shows a single toast.
			return filesStagedMsg{outcomes: []session.Outcome{
				{Name: filepath.Base(path), Reason: session.RejectBadType},
			}}
		}
		outcomes := sess.Add(session.Candidate{Name: filepath.Base(path), Data: data})
		return filesStagedMsg{outcomes: outcomes}
	}
}

func saveArtifact(client *api.Client, ref string) tea.Cmd {
	return func() tea.Msg {
		data, err := client.FetchArtifact(context.Background(), ref)
		if err != nil {
			return artifactDoneMsg{err: err}
		}
		path, err := artifact.Save(".", ref, data)
		if err != nil {
			return artifactDoneMsg{err: err}
		}
		sum, err := artifact.Inspect(path)
		if err != nil {
			return artifactDoneMsg{err: err}
		}
		return artifactDoneMsg{sum: sum}
	}
}

func (m *Model) pushToast(level toastLevel, text string) tea.Cmd {
	m.toasts = append(m.toasts, toast{text: text, level: level, until: time.Now().Add(toastTTL)})
	return tea.Tick(toastTTL+100*time.Millisecond, func(t time.Time) tea.Msg {
		return toastExpiredMsg(t)
	})
}
