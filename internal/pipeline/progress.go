package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressManager renders batch progress using Bubble Tea.
type ProgressManager struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	program *tea.Program
	started bool
	done    chan struct{}
}

func NewProgressManager() *ProgressManager {
	return &ProgressManager{}
}

// Start begins the progress rendering in a separate goroutine.
func (pm *ProgressManager) Start(ctx context.Context) {
	if pm == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.started {
		return
	}

	model := newBatchModel()
	opts := []tea.ProgramOption{
		tea.WithOutput(os.Stderr),
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}
	program := tea.NewProgram(model, opts...)

	pm.ctx, pm.cancel = context.WithCancel(ctx)
	pm.program = program
	pm.started = true
	pm.done = make(chan struct{})

	go func() {
		defer close(pm.done)
		_, _ = program.Run()
		if pm.cancel != nil {
			pm.cancel()
		}
	}()

	go func() {
		<-pm.ctx.Done()
		pm.send(stopMsg{})
	}()
}

// Stop stops the progress rendering and waits for it to finish.
func (pm *ProgressManager) Stop() {
	if pm == nil {
		return
	}

	pm.mu.Lock()
	program := pm.program
	done := pm.done
	pm.mu.Unlock()

	if program != nil {
		program.Send(stopMsg{})
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}

func (pm *ProgressManager) send(msg tea.Msg) {
	if pm == nil {
		return
	}
	pm.mu.Lock()
	program := pm.program
	pm.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

type lineMsg struct {
	index int
	total int
	label string
}

type stageMsg struct {
	index int
	stage string
}

type itemMsg struct {
	name string
}

type failMsg struct {
	index   int
	message string
}

type logMsg struct {
	level LogLevel
	text  string
}

type stopMsg struct{}

// Styles following Bubble Tea examples
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0B0B0B")).
			Background(lipgloss.Color("#FFE66D")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2")).
			Bold(true)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Faint(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00D27A")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	logInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FDBFF")).
			Bold(true)

	logWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD166")).
			Bold(true)

	logErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FDBFF"))
)

type rowState int

const (
	rowRunning rowState = iota
	rowDone
	rowFailed
)

type lineRow struct {
	index   int
	label   string
	stage   string
	state   rowState
	items   int
	message string
}

type batchModel struct {
	rows    map[int]*lineRow
	order   []int
	current int
	total   int
	width   int
	height  int
	quit    bool
	log     string
	start   time.Time
	bar     progressbar.Model
	spin    spinner.Model
	vp      viewport.Model
	vpReady bool
}

func newBatchModel() *batchModel {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7FDBFF"))
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = spinnerStyle
	bar := progressbar.New(
		progressbar.WithGradient("#FF006E", "#00F5FF"),
		progressbar.WithWidth(barWidth(80)),
	)
	return &batchModel{
		rows:   make(map[int]*lineRow),
		order:  make([]int, 0),
		width:  80,
		height: 24,
		start:  time.Now(),
		bar:    bar,
		spin:   spin,
		vp:     vp,
	}
}

func barWidth(total int) int {
	width := total - 10
	if width < 10 {
		return 10
	}
	return width
}

func truncateLine(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	if width <= 3 {
		return text[:width]
	}
	return text[:width-3] + "..."
}

func (m *batchModel) Init() tea.Cmd {
	return m.spin.Tick
}

// completed counts rows that reached a terminal state and feeds the
// batch-level bar.
func (m *batchModel) completed() int {
	count := 0
	for _, row := range m.rows {
		if row.state != rowRunning {
			count++
		}
	}
	return count
}

func (m *batchModel) barCmd() tea.Cmd {
	if m.total <= 0 {
		return nil
	}
	return m.bar.SetPercent(float64(m.completed()) / float64(m.total))
}

func (m *batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 3
		borderHeight := 2
		m.vp.Width = msg.Width - 2
		m.vp.Height = msg.Height - headerHeight - borderHeight
		m.vp, _ = m.vp.Update(msg)
		m.vpReady = true
		m.bar.Width = barWidth(m.width)
	case lineMsg:
		if _, exists := m.rows[msg.index]; exists {
			return m, nil
		}
		m.order = append(m.order, msg.index)
		m.rows[msg.index] = &lineRow{
			index: msg.index,
			label: msg.label,
			stage: "queued",
		}
		m.current = msg.index
		m.total = msg.total
		return m, m.barCmd()
	case stageMsg:
		if row, ok := m.rows[msg.index]; ok {
			row.stage = msg.stage
		}
		return m, nil
	case itemMsg:
		// Items always belong to the most recently started line.
		if row, ok := m.rows[m.current]; ok {
			row.items++
			row.state = rowDone
		}
		return m, m.barCmd()
	case failMsg:
		if row, ok := m.rows[msg.index]; ok {
			row.state = rowFailed
			row.message = msg.message
		}
		return m, m.barCmd()
	case logMsg:
		var style lipgloss.Style
		switch msg.level {
		case LogError:
			style = logErrorStyle
		case LogWarn:
			style = logWarnStyle
		default:
			style = logInfoStyle
		}
		m.log = style.Render(truncateLine(msg.text, m.width))
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.vp.SetYOffset(m.vp.YOffset - 1)
		case "down", "j":
			m.vp.SetYOffset(m.vp.YOffset + 1)
		case "pgup":
			m.vp.HalfViewUp()
		case "pgdown", "f", " ":
			m.vp.HalfViewDown()
		case "home", "g":
			m.vp.GotoTop()
		case "end", "G":
			m.vp.GotoBottom()
		}
		return m, nil
	case progressbar.FrameMsg:
		model, cmd := m.bar.Update(msg)
		if updated, ok := model.(progressbar.Model); ok {
			m.bar = updated
		}
		return m, cmd
	case spinner.TickMsg:
		updated, cmd := m.spin.Update(msg)
		m.spin = updated
		return m, cmd
	case stopMsg:
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *batchModel) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder

	if m.log != "" {
		b.WriteString(m.log)
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render(" Batch"))
	b.WriteString(" ")
	b.WriteString(stageStyle.Render(fmt.Sprintf("(%d/%d lines · elapsed %s · ↑/↓ scroll)",
		m.completed(), m.total, formatDurationShort(time.Since(m.start)))))
	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n")

	if len(m.order) > 0 {
		var content strings.Builder
		for _, index := range m.order {
			row, ok := m.rows[index]
			if !ok {
				continue
			}

			switch row.state {
			case rowDone:
				detail := fmt.Sprintf("%d file", row.items)
				if row.items != 1 {
					detail = fmt.Sprintf("%d files", row.items)
				}
				content.WriteString(fmt.Sprintf("%s %s %s\n",
					okStyle.Render("✓"),
					labelStyle.Render(truncateLine(row.label, m.width-20)),
					stageStyle.Render(detail)))
			case rowFailed:
				content.WriteString(fmt.Sprintf("%s %s %s\n",
					failStyle.Render("✗"),
					labelStyle.Render(truncateLine(row.label, m.width-20)),
					failStyle.Render(truncateLine(row.message, m.width-8))))
			default:
				content.WriteString(fmt.Sprintf("%s %s %s\n",
					m.spin.View(),
					labelStyle.Render(truncateLine(row.label, m.width-20)),
					stageStyle.Render(row.stage)))
			}
		}
		m.vp.SetContent(content.String())
		b.WriteString(m.vp.View())
	}

	return b.String()
}

func formatDurationShort(d time.Duration) string {
	totalSeconds := int64(d.Seconds())

	if d < time.Minute {
		return fmt.Sprintf("%ds", totalSeconds)
	} else if d < time.Hour {
		mins := totalSeconds / 60
		secs := totalSeconds % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}

	hours := totalSeconds / 3600
	mins := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
