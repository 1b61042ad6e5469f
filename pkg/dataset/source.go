/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: source.go
Description: Dataset sources. Loads tabular data from local files or HTTP(S) URLs in CSV,
TSV, JSON (array of objects) or HTML (first <table>) form and returns a Table of raw
string cells ready for discretization.
*/

package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Source produces a dataset snapshot
type Source interface {
	Name() string
	Description() string
	Fetch(ctx context.Context) (*Table, error)
}

// FileSource reads a dataset from a local path or an http(s) URL
type FileSource struct {
	NameStr        string
	DescriptionStr string
	URL            string
	Format         string // "csv", "tsv", "json", "html"; empty means infer from extension
	Timeout        time.Duration
}

// NewFileSource creates a new FileSource
func NewFileSource(name, desc, url, format string, timeout time.Duration) *FileSource {
	return &FileSource{
		NameStr:        name,
		DescriptionStr: desc,
		URL:            url,
		Format:         format,
		Timeout:        timeout,
	}
}

func (fs *FileSource) Name() string        { return fs.NameStr }
func (fs *FileSource) Description() string { return fs.DescriptionStr }

// Fetch opens the source and parses it according to its format
func (fs *FileSource) Fetch(ctx context.Context) (*Table, error) {
	reader, err := fs.open(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	format := fs.Format
	if format == "" {
		format = FormatFromPath(fs.URL)
	}

	switch format {
	case "csv":
		return ReadCSV(reader, ',')
	case "tsv":
		return ReadCSV(reader, '\t')
	case "json":
		return ReadJSON(reader)
	case "html":
		return ReadHTML(reader)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", format)
	}
}

func (fs *FileSource) open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(fs.URL, "http://") || strings.HasPrefix(fs.URL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fs.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build dataset request: %w", err)
		}
		client := &http.Client{Timeout: fs.Timeout}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch dataset: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("dataset returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	file, err := os.Open(fs.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	return file, nil
}

// FormatFromPath guesses the format from a file extension, defaulting to csv
func FormatFromPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return "tsv"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	default:
		return "csv"
	}
}

// ReadCSV parses delimited text whose first record is the header
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read CSV: no header")
	}
	return NewTable(records[0], records[1:])
}

// ReadJSON parses an array of flat objects. Columns are the union of keys, sorted;
// absent keys and nulls become empty (missing) cells.
func ReadJSON(r io.Reader) (*Table, error) {
	var items []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	seen := make(map[string]bool)
	var columns []string
	for _, item := range items {
		for k := range item {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, len(items))
	for i, item := range items {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = jsonCell(item[c])
		}
		rows[i] = row
	}
	return NewTable(columns, rows)
}

func jsonCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// ReadHTML parses the first <table> of an HTML document. The header comes from the
// first row containing <th> cells, or the first row if none does.
func ReadHTML(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("failed to read HTML: no <table> element")
	}

	var header []string
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if header == nil && tr.Find("th").Length() > 0 {
			tr.Find("th").Each(func(_ int, th *goquery.Selection) {
				header = append(header, strings.TrimSpace(th.Text()))
			})
			return
		}
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	if header == nil {
		if len(rows) == 0 {
			return nil, fmt.Errorf("failed to read HTML: empty table")
		}
		header, rows = rows[0], rows[1:]
	}
	return NewTable(header, rows)
}
