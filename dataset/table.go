package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Column layout shared by the three time series files.
const (
	colProvince  = 0
	colCountry   = 1
	colLat       = 2
	colLong      = 3
	dateColStart = 4
)

// Table is one parsed source file: the header line and the data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// SplitLines splits text on newlines, trimming carriage returns and dropping
// blank lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// SplitRow splits a single line on commas that are not inside a double quoted
// field. Lines the csv reader rejects are split on every comma followed by
// an even number of quotes to the end of the line; if the quotes are
// unbalanced the fields are returned together with an ErrMalformedRow error.
func SplitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err == io.EOF {
		return []string{""}, nil
	}
	if err == nil {
		return fields, nil
	}

	fields = splitQuoteParity(line)
	if strings.Count(line, `"`)%2 != 0 {
		return fields, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return fields, nil
}

// splitQuoteParity splits on each comma with an even number of quotes after
// it. Fields are trimmed and a fully quoted field loses its quotes.
func splitQuoteParity(line string) []string {
	var cuts []int
	after := 0
	for i := len(line) - 1; i >= 0; i-- {
		switch line[i] {
		case '"':
			after++
		case ',':
			if after%2 == 0 {
				cuts = append(cuts, i)
			}
		}
	}

	fields := make([]string, 0, len(cuts)+1)
	start := 0
	for k := len(cuts) - 1; k >= 0; k-- {
		fields = append(fields, unquote(line[start:cuts[k]]))
		start = cuts[k] + 1
	}
	return append(fields, unquote(line[start:]))
}

func unquote(field string) string {
	field = strings.TrimSpace(field)
	if len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"' {
		field = strings.ReplaceAll(field[1:len(field)-1], `""`, `"`)
	}
	return field
}

// ParseTable splits text into a header and data rows. Malformed lines are
// kept, split by quote parity, and recorded in diag.
func ParseTable(name, text string, diag *Diagnostics) Table {
	t := Table{Name: name}
	lines := SplitLines(text)
	if len(lines) == 0 {
		return t
	}

	header, err := SplitRow(lines[0])
	if err != nil && diag != nil {
		diag.add(KindMalformedRow, name, -1, -1, "header: %v", err)
	}
	t.Header = header

	t.Rows = make([][]string, 0, len(lines)-1)
	for i, line := range lines[1:] {
		fields, err := SplitRow(line)
		if err != nil && diag != nil {
			diag.add(KindMalformedRow, name, i, -1, "%v", err)
		}
		t.Rows = append(t.Rows, fields)
	}
	return t
}

// Dates returns the date labels of the header, i.e. every column from the
// fifth onward.
func (t Table) Dates() []string {
	if len(t.Header) <= dateColStart {
		return nil
	}
	return append([]string(nil), t.Header[dateColStart:]...)
}

// rowKey identifies a region by its province and country names. It is empty
// when the row carries neither.
func rowKey(row []string) string {
	var province, country string
	if len(row) > colProvince {
		province = strings.TrimSpace(row[colProvince])
	}
	if len(row) > colCountry {
		country = strings.TrimSpace(row[colCountry])
	}
	if province == "" && country == "" {
		return ""
	}
	return province + "|" + country
}
