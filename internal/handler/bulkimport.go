package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bookhaven/bookstore-api/internal/repository"
)

// ImportHandler implements the admin bulk import: a multipart CSV upload
// or an inline JSON array, for books or categories. Rows are inserted
// independently so one bad row never sinks the batch.
type ImportHandler struct {
	Books      *repository.BookRepo
	Categories *repository.CategoryRepo
}

func NewImportHandler(books *repository.BookRepo, categories *repository.CategoryRepo) *ImportHandler {
	if books == nil || categories == nil {
		panic("nil repository passed to NewImportHandler")
	}
	return &ImportHandler{Books: books, Categories: categories}
}

// bookImportRow is one parsed book row, from either CSV or JSON.
type bookImportRow struct {
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Description  string   `json:"description"`
	PriceCents   int64    `json:"price_cents"`
	Stock        int64    `json:"stock"`
	Currency     string   `json:"currency"`
	Availability string   `json:"availability"`
	ISBN         string   `json:"isbn"`
	Language     string   `json:"language"`
	Format       string   `json:"format"`
	Pages        int      `json:"pages"`
	Publisher    string   `json:"publisher"`
	Categories   []string `json:"categories"`

	// parseErr carries a CSV cell problem (bad number) to the per-row
	// error report without aborting the batch.
	parseErr string
}

// complete reports whether the row carries every required field. Rows
// failing this gate are dropped before the attempt set.
func (r bookImportRow) complete() bool {
	return strings.TrimSpace(r.Title) != "" &&
		len(r.Authors) > 0 &&
		strings.TrimSpace(r.Description) != ""
}

type categoryImportRow struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r categoryImportRow) complete() bool { return strings.TrimSpace(r.Name) != "" }

type importError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type importResult struct {
	JobID    string        `json:"job_id"`
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Errors   []importError `json:"errors"`
}

const importErrorCap = 10

// BulkImport handles POST /v1/admin/bulk-import/:type where :type is
// "books" or "categories". The payload is either a multipart upload with
// a `file` CSV field (header row required) or an inline JSON array.
func (h *ImportHandler) BulkImport(c echo.Context) error {
	kind := c.Param("type")
	if kind != "books" && kind != "categories" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown import type"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	reader, cleanup, isCSV, err := importPayload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	defer cleanup()

	result := importResult{JobID: uuid.NewString(), Errors: []importError{}}

	switch kind {
	case "books":
		rows, err := readBookRows(reader, isCSV)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.importBooks(ctx, rows, &result)
	case "categories":
		rows, err := readCategoryRows(reader, isCSV)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.importCategories(ctx, rows, &result)
	}

	if len(result.Errors) > importErrorCap {
		result.Errors = result.Errors[:importErrorCap]
	}
	return c.JSON(http.StatusOK, result)
}

// Template handles GET /v1/admin/template/:type and returns a canonical
// example CSV for the import format.
func (h *ImportHandler) Template(c echo.Context) error {
	kind := c.Param("type")
	var body, name string
	switch kind {
	case "books":
		name = "books_template.csv"
		body = strings.Join(bookCSVHeader, ",") + "\n" +
			`The Go Programming Language,"Alan Donovan; Brian Kernighan",The authoritative resource for Go,359900,25,INR,IN_STOCK,9780134190440,English,Paperback,380,Addison-Wesley,"Programming; Computers"` + "\n"
	case "categories":
		name = "categories_template.csv"
		body = strings.Join(categoryCSVHeader, ",") + "\n" +
			"Programming,Books about software development\n"
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown template type"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(body))
}

// importPayload picks the input source: the multipart `file` field when
// present (CSV), otherwise the raw request body (JSON array). The CSV
// upload is spooled through a temp file that is always removed; a removal
// failure is only logged.
func importPayload(c echo.Context) (io.Reader, func(), bool, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		// No upload; fall back to inline JSON.
		return c.Request().Body, func() {}, false, nil
	}
	src, err := fh.Open()
	if err != nil {
		return nil, func() {}, false, errors.New("cannot open uploaded file")
	}
	tmp, err := spoolUpload(src)
	_ = src.Close()
	if err != nil {
		return nil, func() {}, false, errors.New("cannot read uploaded file")
	}
	cleanup := func() {
		name := tmp.Name()
		_ = tmp.Close()
		if err := os.Remove(name); err != nil {
			log.Printf("bulk-import: remove temp file %s: %v", name, err)
		}
	}
	return tmp, cleanup, true, nil
}

func spoolUpload(src multipart.File) (*os.File, error) {
	tmp, err := os.CreateTemp("", "bulk-import-*.csv")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

var bookCSVHeader = []string{
	"title", "authors", "description", "price_cents", "stock", "currency",
	"availability", "isbn", "language", "format", "pages", "publisher", "categories",
}

var categoryCSVHeader = []string{"name", "description"}

// readBookRows parses the input into rows, dropping rows that fail the
// required-field gate. CSV columns are located by header name so column
// order does not matter.
func readBookRows(r io.Reader, isCSV bool) ([]bookImportRow, error) {
	var rows []bookImportRow
	if isCSV {
		records, err := readCSV(r)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errors.New("csv missing header row")
		}
		cols := headerIndex(records[0])
		for _, rec := range records[1:] {
			rows = append(rows, bookRowFromRecord(cols, rec))
		}
	} else {
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, errors.New("invalid json array")
		}
	}
	kept := rows[:0]
	for _, row := range rows {
		if row.complete() {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func readCategoryRows(r io.Reader, isCSV bool) ([]categoryImportRow, error) {
	var rows []categoryImportRow
	if isCSV {
		records, err := readCSV(r)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errors.New("csv missing header row")
		}
		cols := headerIndex(records[0])
		for _, rec := range records[1:] {
			rows = append(rows, categoryImportRow{
				Name:        field(cols, rec, "name"),
				Description: field(cols, rec, "description"),
			})
		}
	} else {
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, errors.New("invalid json array")
		}
	}
	kept := rows[:0]
	for _, row := range rows {
		if row.complete() {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows may omit trailing columns
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.New("malformed csv")
	}
	return records, nil
}

// headerIndex maps lowercase header names to column positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(cols map[string]int, rec []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// bookRowFromRecord builds a row from one CSV record. An empty numeric
// cell is a zero; a non-numeric one is recorded as the row's parse error.
func bookRowFromRecord(cols map[string]int, rec []string) bookImportRow {
	row := bookImportRow{
		Title:        field(cols, rec, "title"),
		Authors:      splitMulti(field(cols, rec, "authors")),
		Description:  field(cols, rec, "description"),
		Currency:     field(cols, rec, "currency"),
		Availability: field(cols, rec, "availability"),
		ISBN:         field(cols, rec, "isbn"),
		Language:     field(cols, rec, "language"),
		Format:       field(cols, rec, "format"),
		Publisher:    field(cols, rec, "publisher"),
		Categories:   splitMulti(field(cols, rec, "categories")),
	}
	row.PriceCents = parseIntCell(field(cols, rec, "price_cents"), "price_cents", &row.parseErr)
	row.Stock = parseIntCell(field(cols, rec, "stock"), "stock", &row.parseErr)
	row.Pages = int(parseIntCell(field(cols, rec, "pages"), "pages", &row.parseErr))
	return row
}

func parseIntCell(s, name string, parseErr *string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil && *parseErr == "" {
		*parseErr = "invalid number in column " + name
	}
	return n
}

// splitMulti splits a multi-valued CSV cell on semicolons, the separator
// the templates use so author and category lists survive inside one cell.
func splitMulti(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// importBooks attempts every gated row independently. Category names are
// resolved to ids, creating categories that do not exist yet.
func (h *ImportHandler) importBooks(ctx context.Context, rows []bookImportRow, result *importResult) {
	result.Total = len(rows)
	for i, row := range rows {
		if row.parseErr != "" {
			result.Errors = append(result.Errors, importError{Row: i, Error: row.parseErr})
			continue
		}
		req := bookReq{
			Title: row.Title, Authors: row.Authors, Description: row.Description,
			PriceCents: row.PriceCents, Stock: row.Stock, Currency: row.Currency,
			Availability: row.Availability, ISBN: row.ISBN, Language: row.Language,
			Format: row.Format, Pages: row.Pages, Publisher: row.Publisher,
		}
		if msg := req.validate(); msg != "" {
			result.Errors = append(result.Errors, importError{Row: i, Error: msg})
			continue
		}
		catIDs, err := h.resolveCategories(ctx, row.Categories)
		if err != nil {
			result.Errors = append(result.Errors, importError{Row: i, Error: "resolve categories failed"})
			continue
		}
		b := req.toModel()
		if err := h.Books.Create(ctx, &b, catIDs); err != nil {
			// The report never carries driver error text.
			msg := "insert failed"
			if errors.Is(err, repository.ErrBookExists) {
				msg = "book already exists: " + row.Title
			}
			result.Errors = append(result.Errors, importError{Row: i, Error: msg})
			continue
		}
		result.Imported++
	}
}

func (h *ImportHandler) importCategories(ctx context.Context, rows []categoryImportRow, result *importResult) {
	result.Total = len(rows)
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		if _, err := h.Categories.Create(ctx, name, strings.TrimSpace(row.Description)); err != nil {
			msg := "insert failed"
			if errors.Is(err, repository.ErrCategoryExists) {
				msg = "category already exists: " + name
			}
			result.Errors = append(result.Errors, importError{Row: i, Error: msg})
			continue
		}
		result.Imported++
	}
}

// resolveCategories maps category names to ids, creating any that are
// missing so an imported book never silently loses its categories.
func (h *ImportHandler) resolveCategories(ctx context.Context, names []string) ([]uint64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	existing, err := h.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint64, len(existing))
	for _, cat := range existing {
		byName[strings.ToLower(cat.Name)] = cat.ID
	}
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
			continue
		}
		id, err := h.Categories.Create(ctx, name, "")
		if err != nil {
			if errors.Is(err, repository.ErrCategoryExists) {
				// Raced with a concurrent import; re-read and retry the lookup.
				refreshed, lerr := h.Categories.List(ctx)
				if lerr != nil {
					return nil, lerr
				}
				found := false
				for _, rc := range refreshed {
					if strings.EqualFold(rc.Name, name) {
						ids = append(ids, rc.ID)
						byName[strings.ToLower(rc.Name)] = rc.ID
						found = true
						break
					}
				}
				if found {
					continue
				}
			}
			return nil, err
		}
		byName[strings.ToLower(name)] = id
		ids = append(ids, id)
	}
	return ids, nil
}
