package analyst

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bizassist/bizassist/internal/rag"
)

// row gives typed access to one CSV record by column name.
type row struct {
	line   int
	fields []string
	cols   map[string]int
}

func (r row) str(name string) string {
	return strings.TrimSpace(r.fields[r.cols[name]])
}

func (r row) float(name string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(name), 64)
	if err != nil {
		return 0, rag.Invalid("line %d: column %s: %q is not a number", r.line, name, r.str(name))
	}
	return v, nil
}

func (r row) int(name string) (int, error) {
	v, err := r.float(name)
	if err != nil {
		return 0, err
	}
	return int(math.Round(v)), nil
}

// readRows parses a CSV with a header line. Columns may appear in any
// order; every name in required must be present.
func readRows(rd io.Reader, required []string) ([]row, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, rag.Invalid("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, rag.Invalid("csv is missing columns: %s", strings.Join(missing, ", "))
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rag.Invalid("reading csv: %v", err)
		}
		rows = append(rows, row{line: line, fields: rec, cols: cols})
	}
	return rows, nil
}

func openCSV(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// table renders aligned plain-text tables for prompts and terminals.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) String() string {
	if len(t.rows) == 0 {
		return "(no rows)"
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.header, "\t"))
	for _, r := range t.rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

// money formats v as whole euros with thousands separators.
func money(v float64) string {
	return "€" + thousands(int64(math.Round(v)))
}

func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var sb strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// contains reports whether want is empty or holds v.
func contains(want []string, v string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if strings.EqualFold(w, v) {
			return true
		}
	}
	return false
}
