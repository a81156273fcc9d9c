package recordstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed A1 range. Columns are zero-based, rows one-based.
// EndCol < 0 and EndRow == 0 mean unbounded.
type Range struct {
	StartCol int
	EndCol   int
	StartRow int
	EndRow   int
}

// ParseRange parses "A:K", "A2:D", "B3:B9" or a single cell such as "G5".
func ParseRange(rng string) (Range, error) {
	rng = strings.ToUpper(strings.TrimSpace(rng))
	if rng == "" {
		return Range{}, Fatal(fmt.Errorf("empty range"))
	}

	parts := strings.Split(rng, ":")
	switch len(parts) {
	case 1:
		col, row, err := ParseCell(parts[0])
		if err != nil {
			return Range{}, err
		}
		return Range{StartCol: col, EndCol: col, StartRow: row, EndRow: row}, nil
	case 2:
		startCol, startRow, err := splitRef(parts[0])
		if err != nil {
			return Range{}, err
		}
		endCol, endRow, err := splitRef(parts[1])
		if err != nil {
			return Range{}, err
		}
		if startRow == 0 {
			startRow = 1
		}
		if endCol < startCol || (endRow != 0 && endRow < startRow) {
			return Range{}, Fatal(fmt.Errorf("inverted range %q", rng))
		}
		return Range{StartCol: startCol, EndCol: endCol, StartRow: startRow, EndRow: endRow}, nil
	default:
		return Range{}, Fatal(fmt.Errorf("malformed range %q", rng))
	}
}

// ParseCell parses a single cell reference and requires both column and row.
func ParseCell(ref string) (col, row int, err error) {
	col, row, err = splitRef(strings.ToUpper(strings.TrimSpace(ref)))
	if err != nil {
		return 0, 0, err
	}
	if row == 0 {
		return 0, 0, Fatal(fmt.Errorf("cell reference %q has no row", ref))
	}
	return col, row, nil
}

// Cell formats a zero-based column and one-based row as an A1 reference.
func Cell(col, row int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// RowRange formats the span of a single row between two zero-based columns.
func RowRange(startCol, endCol, row int) string {
	return fmt.Sprintf("%s%d:%s%d", ColumnName(startCol), row, ColumnName(endCol), row)
}

// ColumnSpan formats an unbounded column range starting at the given row.
func ColumnSpan(startCol, endCol, startRow int) string {
	if startRow <= 1 {
		return ColumnName(startCol) + ":" + ColumnName(endCol)
	}
	return fmt.Sprintf("%s%d:%s", ColumnName(startCol), startRow, ColumnName(endCol))
}

// ColumnName converts a zero-based column index to letters (0 -> A, 26 -> AA).
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	name := ""
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}
	return name
}

// ColumnIndex converts column letters to a zero-based index.
func ColumnIndex(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, Fatal(fmt.Errorf("empty column"))
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, Fatal(fmt.Errorf("invalid column %q", letters))
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

func splitRef(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, Fatal(fmt.Errorf("reference %q has no column", ref))
	}
	col, err = ColumnIndex(ref[:i])
	if err != nil {
		return 0, 0, err
	}
	if i == len(ref) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, Fatal(fmt.Errorf("invalid row in reference %q", ref))
	}
	return col, row, nil
}

// Window extracts r from a full grid whose first element is row 1, trimming
// trailing empty cells and rows the way spreadsheet APIs do.
func (r Range) Window(grid [][]string) [][]string {
	var out [][]string
	for rowNum := r.StartRow; rowNum <= len(grid); rowNum++ {
		if r.EndRow != 0 && rowNum > r.EndRow {
			break
		}
		src := grid[rowNum-1]
		var row []string
		for col := r.StartCol; col < len(src) && (r.EndCol < 0 || col <= r.EndCol); col++ {
			row = append(row, src[col])
		}
		out = append(out, trimRow(row))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	if end == 0 {
		return []string{}
	}
	return row[:end]
}
