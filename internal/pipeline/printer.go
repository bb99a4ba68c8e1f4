package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

func parseLogLevel(value string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LogDebug
	case "warn", "warning":
		return LogWarn
	case "error":
		return LogError
	}
	return LogInfo
}

// Printer renders batch progress and results on stderr. When a progress
// manager is attached, events are routed to the TUI instead of printed as
// plain lines.
type Printer struct {
	quiet      bool
	color      bool
	level      LogLevel
	columns    int
	titleWidth int
	bell       bool
	manager    *ProgressManager
}

func NewPrinter(opts Options) *Printer {
	columns := terminalColumns()
	if columns <= 0 {
		columns = 100
	}

	titleWidth := columns - 44
	if titleWidth < 20 {
		titleWidth = 20
	}
	if titleWidth > 60 {
		titleWidth = 60
	}

	return &Printer{
		quiet:      opts.Quiet,
		color:      !opts.NoColor && supportsColor(),
		level:      parseLogLevel(opts.LogLevel),
		columns:    columns,
		titleWidth: titleWidth,
		bell:       opts.Bell,
	}
}

// AttachManager routes subsequent output through the progress TUI.
func (p *Printer) AttachManager(m *ProgressManager) {
	p.manager = m
}

func (p *Printer) Prefix(index, total int, title string) string {
	if total <= 0 {
		total = 1
	}
	width := len(strconv.Itoa(total))
	idx := fmt.Sprintf("%*d/%d", width, index, total)
	return fmt.Sprintf("[%s] %-*s", idx, p.titleWidth, truncateText(title, p.titleWidth))
}

// LineStart announces that work on an input line began.
func (p *Printer) LineStart(index, total int, label string) {
	if p.manager != nil {
		p.manager.send(lineMsg{index: index, total: total, label: label})
		return
	}
	p.Log(LogDebug, fmt.Sprintf("starting %s", label))
}

// Stage reports a stage transition for the line at index.
func (p *Printer) Stage(index int, stage string) {
	if p.manager != nil {
		p.manager.send(stageMsg{index: index, stage: stage})
		return
	}
	p.Log(LogDebug, stage)
}

func (p *Printer) ItemResult(prefix string, item ProcessedItem, size int64) {
	if p.manager != nil {
		p.manager.send(itemMsg{name: item.Name})
		return
	}
	if p.quiet {
		return
	}

	status := p.colorize("OK", colorGreen)
	detail := item.Name
	if item.Media != "" {
		detail = fmt.Sprintf("%s %s", padLeft(HumanBytes(size), 9), item.Media)
	}
	if item.Transcript != "" {
		detail = fmt.Sprintf("%s +transcript", detail)
	}

	maxDetail := p.columns - len(prefix) - len("OK") - 3
	if maxDetail < 0 {
		maxDetail = 0
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n", prefix, status, truncateText(detail, maxDetail))
}

func (p *Printer) LineFailed(index int, prefix string, err error) {
	if p.manager != nil {
		p.manager.send(failMsg{index: index, message: err.Error()})
		return
	}

	status := p.colorize("FAIL", colorRed)
	maxDetail := p.columns - len(prefix) - len("FAIL") - 3
	if maxDetail < 0 {
		maxDetail = 0
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n", prefix, status, truncateText(err.Error(), maxDetail))
}

func (p *Printer) Summary(lines, items, failures int, bytes int64) {
	if p.quiet {
		return
	}
	okLabel := p.colorize("OK", colorGreen)
	failLabel := p.colorize("FAIL", colorRed)
	fmt.Fprintf(os.Stderr, "Summary: %s %d | %s %d | LINES %d | SIZE %s\n",
		okLabel, items, failLabel, failures, lines, HumanBytes(bytes))
	if p.bell {
		fmt.Fprint(os.Stderr, "\a")
	}
}

func (p *Printer) Log(level LogLevel, msg string) {
	if level < p.level {
		return
	}
	if p.manager != nil {
		p.manager.send(logMsg{level: level, text: msg})
		return
	}
	if p.quiet && level < LogError {
		return
	}
	label := ""
	switch level {
	case LogWarn:
		label = p.colorize("warn: ", colorYellow)
	case LogError:
		label = p.colorize("error: ", colorRed)
	}
	fmt.Fprintf(os.Stderr, "%s%s\n", label, msg)
}

func (p *Printer) colorize(text, color string) string {
	if !p.color || color == "" {
		return text
	}
	return color + text + colorReset
}

func padLeft(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return strings.Repeat(" ", width-len(value)) + value
}

func truncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

// HumanBytes renders a byte count in the nearest binary unit.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for n >= unit*div && exp < 4 {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	suffix := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f%s", value, suffix[exp])
}

func terminalColumns() int {
	if columns := os.Getenv("COLUMNS"); columns != "" {
		if val, err := strconv.Atoi(columns); err == nil && val > 0 {
			return val
		}
	}
	return 0
}

func supportsColor() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" || os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return InteractiveTerminal()
}

// InteractiveTerminal reports whether stderr is attached to a terminal.
func InteractiveTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
)
