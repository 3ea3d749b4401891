package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lcortes/semitone/internal/pitch"
)

// barWidth is the character width of the tuning-position bar; odd so the
// center marker has a single middle cell.
const barWidth = 41

// barRangeCents is the deviation mapped to each half of the bar.
const barRangeCents = 50.0

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))

	inTuneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#00AA00")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 4).
			MarginBottom(1)

	offTuneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#555555")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(1, 4).
			MarginBottom(1)

	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	markerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
)

// ReadingMsg delivers one tuning reading to the display.
type ReadingMsg pitch.Reading

// IdleMsg reports a tick with no resolved pitch; only the level is known.
type IdleMsg struct {
	LoudnessDB float64
}

// Model renders the tuner readout: note card, tuning-position bar and a
// frequency/level line. It tolerates receiving the same reading on every
// tick.
type Model struct {
	reading   pitch.Reading
	hasSignal bool
	loudness  float64
	width     int
	height    int
}

// NewModel creates the initial display state.
func NewModel() Model {
	return Model{loudness: math.Inf(-1)}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ReadingMsg:
		m.reading = pitch.Reading(msg)
		m.hasSignal = true
		m.loudness = m.reading.LoudnessDB

	case IdleMsg:
		m.hasSignal = false
		m.loudness = msg.LoudnessDB
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("semitone"))
	b.WriteString("\n")

	if m.hasSignal {
		r := m.reading

		noteStyle := offTuneStyle
		if r.Direction == pitch.InTune {
			noteStyle = inTuneStyle
		}
		b.WriteString(noteStyle.Render(fmt.Sprintf("%s%d %s", r.NoteName, r.Octave, directionGlyph(r.Direction))))
		b.WriteString("\n")

		b.WriteString(tuningBar(r.Cents))
		b.WriteString("\n")

		info := fmt.Sprintf("%.1f Hz  (ideal %.1f Hz)  %+.1f cents  %.1f dB",
			r.Frequency, r.IdealFrequency, r.Cents, r.LoudnessDB)
		b.WriteString(infoStyle.Render(info))
	} else {
		b.WriteString(idleStyle.Render("--"))
		b.WriteString("\n")
		b.WriteString(idleStyle.Render(fmt.Sprintf("Listening...  %s", levelLabel(m.loudness))))
	}

	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Press q to quit"))

	return b.String()
}

// directionGlyph picks the correction glyph for a reading.
func directionGlyph(d pitch.Direction) string {
	switch d {
	case pitch.Flat:
		return "♭"
	case pitch.Sharp:
		return "♯"
	default:
		return "●"
	}
}

// tuningBar draws the deviation marker on a fixed-width scale covering
// ±barRangeCents around the center.
func tuningBar(cents float64) string {
	clamped := math.Max(-barRangeCents, math.Min(barRangeCents, cents))
	pos := int(math.Round((clamped + barRangeCents) / (2 * barRangeCents) * float64(barWidth-1)))
	center := barWidth / 2

	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i == pos:
			b.WriteString(markerStyle.Render("▼"))
		case i == center:
			b.WriteString(barStyle.Render("|"))
		default:
			b.WriteString(barStyle.Render("-"))
		}
	}
	return b.String()
}

func levelLabel(db float64) string {
	if math.IsInf(db, -1) {
		return "silent"
	}
	return fmt.Sprintf("%.1f dB", db)
}
