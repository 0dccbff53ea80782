// Package ui renders a practice session in the terminal and translates
// key presses into session triggers.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/eartrain/internal/music"
	"github.com/0xlemi/eartrain/internal/trainer"
)

// octaveShiftDebounce batches rapid [ and ] presses into one range change,
// so leaning on the key does not burn through targets.
const octaveShiftDebounce = 250 * time.Millisecond

const barWidth = 24

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	correctStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	tryAgainStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F56"))

	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// Returns a style for a note (sharps get split color and are rendered
// separately).
func getNoteStyle(noteName string) lipgloss.Style {
	if strings.HasSuffix(noteName, "#") {
		return lipgloss.NewStyle().Bold(true).MarginBottom(1)
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[noteName])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4).
		MarginBottom(1)
}

// Get the next note letter in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	case "B":
		return "C"
	default:
		return "C"
	}
}

// Trigger is the slice of the session the keyboard drives.
type Trigger interface {
	NewTarget()
	SetOctaves(start, end int) error
	ResetStats()
	Summary() trainer.Summary
}

// SnapshotMsg delivers a fresh session snapshot to the UI.
type SnapshotMsg trainer.Snapshot

// LevelMsg delivers the current input level in dBFS.
type LevelMsg float64

// SummaryMsg delivers refreshed session statistics.
type SummaryMsg trainer.Summary

// Model represents the UI state
type Model struct {
	trigger Trigger

	snap    trainer.Snapshot
	level   float64
	summary trainer.Summary

	octStart int
	octEnd   int
	// commitOctaves runs the last staged range change once the keys go
	// quiet.
	commitOctaves func(func())

	width  int
	height int
}

// NewModel creates a new UI model bound to a session.
func NewModel(trigger Trigger, cfg trainer.Config) Model {
	return Model{
		trigger:       trigger,
		snap:          trainer.Snapshot{Status: trainer.StatusIdle},
		level:         -100,
		octStart:      cfg.OctaveStart,
		octEnd:        cfg.OctaveEnd,
		commitOctaves: debounce.New(octaveShiftDebounce),
	}
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case SnapshotMsg:
		wasLocked := m.snap.IsLocked
		m.snap = trainer.Snapshot(msg)
		if m.snap.IsLocked && !wasLocked {
			return m, m.fetchSummary
		}

	case LevelMsg:
		m.level = float64(msg)

	case SummaryMsg:
		m.summary = trainer.Summary(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "n":
		return m, m.nextTarget

	case "[":
		if m.octStart > music.MinOctave {
			m.octStart--
			m.octEnd--
			m.scheduleOctaves()
		}

	case "]":
		if m.octEnd < music.MaxOctave {
			m.octStart++
			m.octEnd++
			m.scheduleOctaves()
		}

	case "r":
		m.trigger.ResetStats()
		return m, m.fetchSummary
	}

	return m, nil
}

func (m Model) scheduleOctaves() {
	start, end := m.octStart, m.octEnd
	trigger := m.trigger
	m.commitOctaves(func() {
		_ = trigger.SetOctaves(start, end)
	})
}

// nextTarget runs as a command: the session publishes the redraw to its
// subscribers synchronously, and the snapshot subscriber feeds messages
// back into the program, which must not happen from inside Update.
func (m Model) nextTarget() tea.Msg {
	m.trigger.NewTarget()
	return nil
}

func (m Model) fetchSummary() tea.Msg {
	return SummaryMsg(m.trigger.Summary())
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("EarTrain - Pitch Matching Practice"))
	b.WriteString("\n")

	b.WriteString(m.renderTarget())
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.detectedLine())
	b.WriteString("\n\n")

	b.WriteString(renderBar("Hold ", m.snap.LockProgress, fmt.Sprintf("%3.0f%%", m.snap.LockProgress*100)))
	b.WriteString("\n")

	levelFrac := (m.level + 60) / 60
	b.WriteString(renderBar("Input", levelFrac, fmt.Sprintf("%5.1f dB", m.level)))
	b.WriteString("\n\n")

	b.WriteString(m.statsLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("n next target | [ / ] shift octaves | r reset stats | q quit"))

	return b.String()
}

// renderTarget draws the target note card. Sharps are rendered with split
// colors: the left half takes the base note's color, the right half the
// next one's.
func (m Model) renderTarget() string {
	name := m.snap.TargetName
	if name == "" {
		return infoStyle.Render("Preparing a target...")
	}

	if !strings.Contains(name, "#") {
		return getNoteStyle(name[:1]).Render(name)
	}

	baseNote := name[:1]
	nextNote := getNextNote(baseNote)

	leftStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[baseNote])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingLeft(2).
		PaddingRight(1).
		PaddingTop(2).
		PaddingBottom(2)

	rightStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[nextNote])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(2).
		PaddingTop(2).
		PaddingBottom(2)

	return leftStyle.Render(baseNote) + rightStyle.Render(name[1:])
}

func (m Model) statusLine() string {
	switch m.snap.Status {
	case trainer.StatusIdle:
		return infoStyle.Render("Starting input...")
	case trainer.StatusNoPitch:
		return infoStyle.Render("Sing or play the note above")
	case trainer.StatusTryAgain:
		return tryAgainStyle.Render("Not it, keep trying")
	case trainer.StatusCorrect:
		return correctStyle.Render("Correct! Next target coming up...")
	default:
		if m.snap.LockProgress > 0 {
			return correctStyle.Render("Hold it...")
		}
		return infoStyle.Render("Listening...")
	}
}

func (m Model) detectedLine() string {
	if m.snap.DetectedNoteName == "" {
		return infoStyle.Render("You: -")
	}

	line := "You: " + m.snap.DetectedNoteName
	if m.snap.CentsOffset != nil {
		line += fmt.Sprintf("  %+.1f cents", *m.snap.CentsOffset)
	}
	switch m.snap.RingDirection {
	case trainer.DirectionFlat:
		line += "  v flat"
	case trainer.DirectionSharp:
		line += "  ^ sharp"
	case trainer.DirectionPerfect:
		line += "  on pitch"
	}
	return infoStyle.Render(line)
}

func (m Model) statsLine() string {
	line := fmt.Sprintf("Passed %d/%d", m.summary.Passed, m.summary.Targets)
	if m.summary.Passed > 0 {
		line += fmt.Sprintf("  avg lock %.1fs  avg %.1f cents off",
			m.summary.MeanLockSecs, m.summary.MeanAbsCents)
	}
	line += fmt.Sprintf("  octaves %d..%d", m.octStart, m.octEnd)
	return infoStyle.Render(line)
}

// renderBar draws a fixed-width progress bar with a label and suffix.
func renderBar(label string, frac float64, suffix string) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(barWidth) + 0.5)

	bar := barFillStyle.Render(strings.Repeat("#", filled)) +
		barEmptyStyle.Render(strings.Repeat("-", barWidth-filled))
	return infoStyle.Render(label+" [") + bar + infoStyle.Render("] "+suffix)
}
