package view

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Text renders the list as a table, or the loading/fallback text
func (v PlacesView) Text() string {
	var output strings.Builder

	output.WriteString(v.Title)
	output.WriteString("\n\n")

	if v.IsLoading {
		output.WriteString(v.LoadingText)
		output.WriteString("\n")
		return output.String()
	}
	if len(v.Places) == 0 {
		output.WriteString(v.FallbackText)
		output.WriteString("\n")
		return output.String()
	}

	headers := []string{"#", "ID", "Title"}
	if v.Origin != nil {
		headers = append(headers, "Distance (km)")
	}

	items := v.Items()
	rows := make([][]string, len(items))
	for i, item := range items {
		row := []string{fmt.Sprintf("%d", item.Index), item.Place.ID, item.Place.Title}
		if v.Origin != nil {
			row = append(row, item.Distance)
		}
		rows[i] = row
	}

	output.WriteString(formatTable(headers, rows))
	return output.String()
}

// Text renders the panel as two lines
func (e ErrorView) Text() string {
	return fmt.Sprintf("%s\n%s\n", e.Title, e.Message)
}

// formatTable aligns rows under headers
func formatTable(headers []string, rows [][]string) string {
	// Calculate column widths
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			cellWidth := utf8.RuneCountInString(cell)
			if cellWidth > widths[i] {
				widths[i] = cellWidth
			}
		}
	}

	var output strings.Builder

	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = padRight(cell, widths[i])
		}
		output.WriteString(strings.TrimRight(strings.Join(parts, "   "), " "))
		output.WriteString("\n")
	}

	writeRow(headers)

	separators := make([]string, len(headers))
	for i, width := range widths {
		separators[i] = strings.Repeat("-", width)
	}
	writeRow(separators)

	for _, row := range rows {
		writeRow(row)
	}

	return output.String()
}

// padRight pads a string with spaces on the right to reach the specified width
func padRight(s string, width int) string {
	runeCount := utf8.RuneCountInString(s)
	if runeCount >= width {
		return s
	}
	return s + strings.Repeat(" ", width-runeCount)
}
