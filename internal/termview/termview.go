// Package termview draws a calendar.View for a terminal.
package termview

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dualcal/internal/calendar"
	"dualcal/internal/ics"
)

const cellWidth = 11

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Width(cellWidth * 7).
			Align(lipgloss.Center)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(cellWidth * 7).
			Align(lipgloss.Center)

	weekdayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("117")).
			Width(cellWidth).
			Align(lipgloss.Center)

	cellStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Padding(0, 1)

	outsideStyle = cellStyle.Copy().
			Faint(true).
			Foreground(lipgloss.Color("241"))

	todayStyle = cellStyle.Copy().
			Bold(true).
			Reverse(true)

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	monthLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Italic(true)

	agendaStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 1)
)

// LocalizeDigits rewrites ASCII digits in the numeral set of sys:
// Persian digits for Jalali, unchanged for Gregorian.
func LocalizeDigits(text string, sys calendar.System) string {
	if sys != calendar.Jalali {
		return text
	}
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '۰' + (r - '0')
		}
		return r
	}, text)
}

// Render draws the month header, the weekday row and the day grid. When
// events is non-nil, days with events get a dot and an agenda of the
// primary month's events follows the grid.
func Render(v calendar.View, events ics.DayIndex) string {
	primary := v.State.Primary
	secondary := primary.Other()

	var b strings.Builder
	b.WriteString(titleStyle.Render(LocalizeDigits(v.Title, primary)))
	b.WriteByte('\n')
	b.WriteString(subtitleStyle.Render(LocalizeDigits(v.Subtitle, secondary)))
	b.WriteByte('\n')

	head := make([]string, 0, 7)
	for _, name := range v.Weekdays {
		head = append(head, weekdayStyle.Render(name))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, head...))
	b.WriteByte('\n')

	for row := 0; row < v.Rows; row++ {
		cols := make([]string, 0, 7)
		for _, cell := range v.Cells[row*7 : row*7+7] {
			cols = append(cols, renderCell(cell, primary, secondary, len(events.On(cell.Date))))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
		b.WriteByte('\n')
	}

	if agenda := renderAgenda(v, events); agenda != "" {
		b.WriteString(agendaStyle.Render(agenda))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderCell(cell calendar.DayCell, primary, secondary calendar.System, eventCount int) string {
	top := LocalizeDigits(cell.PrimaryLabel, primary)
	if eventCount > 0 {
		top += " •"
	}
	lines := []string{
		top,
		secondaryStyle.Render(LocalizeDigits(cell.SecondaryLabel, secondary)),
	}
	if cell.IsFirstOfMonth {
		lines = append(lines, monthLabelStyle.Render(cell.MonthLabel))
	} else {
		lines = append(lines, "")
	}

	style := cellStyle
	switch {
	case cell.IsToday:
		style = todayStyle
	case !cell.InPrimaryMonth:
		style = outsideStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func renderAgenda(v calendar.View, events ics.DayIndex) string {
	if len(events) == 0 {
		return ""
	}
	var lines []string
	for _, cell := range v.Cells {
		if !cell.InPrimaryMonth {
			continue
		}
		for _, occ := range events.On(cell.Date) {
			when := "all day"
			if !occ.AllDay {
				when = occ.Start.Format("15:04")
			}
			day := LocalizeDigits(cell.PrimaryLabel, v.State.Primary)
			lines = append(lines, day+"  "+when+"  "+occ.Summary)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// Days lists the local dates of the view's cells, for building a DayIndex.
func Days(v calendar.View) []time.Time {
	days := make([]time.Time, 0, len(v.Cells))
	for _, cell := range v.Cells {
		days = append(days, cell.Date)
	}
	return days
}

// Summary is a one-line plain description of the view, used in logs.
func Summary(v calendar.View) string {
	return v.State.Primary.String() + " " + v.Title + " (" + strconv.Itoa(len(v.Cells)) + " days)"
}
