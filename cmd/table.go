package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// columnGap separates table columns
const columnGap = 2

// alignColumns pads every cell but the last in each row to the widest cell
// of its column, measured in terminal columns so wide runes line up
func alignColumns(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]+columnGap))
		}
		lines = append(lines, b.String())
	}
	return lines
}

// writeTable writes rows aligned by alignColumns
func writeTable(w io.Writer, rows [][]string) error {
	for _, line := range alignColumns(rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
