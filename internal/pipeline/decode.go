package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"calibboard/internal"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported source format")
	errNoTable           = errors.New("no table with a header row and data rows")
	errNoAttachments     = errors.New("no supported spreadsheet attachments")
)

var zipMagic = []byte("PK\x03\x04")

// Decoder turns one uploaded source into raw rows.
type Decoder interface {
	Name() string
	CanHandle(src internal.Source) bool
	Decode(ctx context.Context, src internal.Source) ([]internal.RawRow, error)
}

type Registry struct {
	decoders []Decoder
}

func NewRegistry(decoders ...Decoder) *Registry {
	return &Registry{decoders: decoders}
}

// DefaultRegistry knows xlsx, csv and html exports, plus emails carrying any of
// those as attachments.
func DefaultRegistry(preferredSheet string) *Registry {
	files := NewRegistry(
		&XLSXDecoder{PreferredSheet: preferredSheet},
		&CSVDecoder{},
		&HTMLDecoder{},
	)
	return NewRegistry(append(files.decoders, &EMLDecoder{Attachments: files})...)
}

// Select returns the first registered decoder that can handle src.
func (r *Registry) Select(src internal.Source) (Decoder, error) {
	for _, d := range r.decoders {
		if d.CanHandle(src) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, src.Name)
}

// Accepts reports whether a file name alone is enough to pick a decoder.
func (r *Registry) Accepts(name string) bool {
	_, err := r.Select(internal.Source{Name: name})
	return err == nil
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.decoders))
	for i, d := range r.decoders {
		names[i] = d.Name()
	}
	return names
}

type XLSXDecoder struct {
	PreferredSheet string
}

func (*XLSXDecoder) Name() string { return string(internal.SourceXLSX) }

func (*XLSXDecoder) CanHandle(src internal.Source) bool {
	if hasExt(src.Name, ".xlsx", ".xlsm", ".xltx") {
		return true
	}
	return filepath.Ext(src.Name) == "" && bytes.HasPrefix(src.Content, zipMagic)
}

func (d *XLSXDecoder) Decode(ctx context.Context, src internal.Source) ([]internal.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(src.Content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := pickSheet(f.GetSheetList(), d.PreferredSheet)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rowsFromGrid(rows), nil
}

type CSVDecoder struct{}

func (*CSVDecoder) Name() string { return string(internal.SourceCSV) }

func (*CSVDecoder) CanHandle(src internal.Source) bool {
	return hasExt(src.Name, ".csv", ".tsv", ".txt")
}

func (*CSVDecoder) Decode(ctx context.Context, src internal.Source) ([]internal.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := toUTF8(src.Content)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = detectDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		grid = append(grid, record)
	}
	return rowsFromGrid(grid), nil
}

type HTMLDecoder struct{}

func (*HTMLDecoder) Name() string { return string(internal.SourceHTML) }

func (*HTMLDecoder) CanHandle(src internal.Source) bool {
	return hasExt(src.Name, ".html", ".htm")
}

// Decode reads the first table that has a header row and at least one data row.
func (*HTMLDecoder) Decode(ctx context.Context, src internal.Source) ([]internal.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []internal.RawRow
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		trs := table.Find("tr")
		if trs.Length() < 2 {
			return true
		}
		grid := make([][]string, 0, trs.Length())
		trs.Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cell.Text())
			})
			grid = append(grid, cells)
		})
		out = rowsFromGrid(grid)
		return len(out) == 0
	})
	if len(out) == 0 {
		return nil, errNoTable
	}
	return out, nil
}

// EMLDecoder decodes every attachment of a message that one of the Attachments
// decoders understands and concatenates their rows in attachment order.
type EMLDecoder struct {
	Attachments *Registry
}

func (*EMLDecoder) Name() string { return string(internal.SourceEML) }

func (*EMLDecoder) CanHandle(src internal.Source) bool {
	return hasExt(src.Name, ".eml")
}

func (d *EMLDecoder) Decode(ctx context.Context, src internal.Source) ([]internal.RawRow, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(src.Content))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	var (
		out     []internal.RawRow
		decoded int
		errs    []error
	)
	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, part := range parts {
		att := internal.Source{Name: strings.TrimSpace(part.FileName), Content: part.Content}
		dec, err := d.Attachments.Select(att)
		if err != nil {
			continue
		}
		rows, err := dec.Decode(ctx, att)
		if err != nil {
			errs = append(errs, fmt.Errorf("attachment %q: %w", att.Name, err))
			continue
		}
		decoded++
		out = append(out, rows...)
	}
	if decoded == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, errNoAttachments
	}
	return out, nil
}

// rowsFromGrid treats the first non-blank row as the header. Blank header cells
// drop their column and repeated labels get _1, _2 suffixes. Labels and values
// are trimmed but otherwise kept as written; only non-empty cells are kept.
func rowsFromGrid(grid [][]string) []internal.RawRow {
	headerIdx := -1
	for i, row := range grid {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	labels := headerLabels(grid[headerIdx])
	out := make([]internal.RawRow, 0, len(grid)-headerIdx-1)
	for _, row := range grid[headerIdx+1:] {
		var raw internal.RawRow
		for i, value := range row {
			if i >= len(labels) || labels[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			raw = append(raw, internal.Cell{Label: labels[i], Value: value})
		}
		if len(raw) > 0 {
			out = append(out, raw)
		}
	}
	return out
}

func headerLabels(header []string) []string {
	seen := map[string]int{}
	labels := make([]string, len(header))
	for i, h := range header {
		label := strings.TrimSpace(h)
		if label == "" {
			continue
		}
		if n, ok := seen[label]; ok {
			seen[label] = n + 1
			labels[i] = label + "_" + strconv.Itoa(n+1)
			continue
		}
		seen[label] = 0
		labels[i] = label
	}
	return labels
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pickSheet(sheets []string, preferred string) string {
	if len(sheets) == 0 {
		return ""
	}
	for _, s := range sheets {
		if preferred != "" && strings.EqualFold(strings.TrimSpace(s), preferred) {
			return s
		}
	}
	return sheets[0]
}

// detectDelimiter picks ';' when the first line has more semicolons than
// commas, which is what spreadsheet tools emit under pt-BR locales.
func detectDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	switch {
	case bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{','}) && bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{';'}):
		return '\t'
	case bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}):
		return ';'
	default:
		return ','
	}
}

// toUTF8 strips a UTF-8 BOM and reinterprets non-UTF-8 input as Windows-1252.
func toUTF8(content []byte) ([]byte, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if utf8.Valid(content) {
		return content, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
