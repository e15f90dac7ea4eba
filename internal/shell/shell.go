// Package shell implements the interactive client behind `archivist-cli shell`.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"archivist/internal/api"
	"archivist/internal/library"
)

// Request is one parsed shell line: either a library search or a single
// archive lookup.
type Request struct {
	Archive int64
	Params  url.Values
}

var directives = map[string]bool{"page": true, "sort": true, "order": true}

// Parse turns a shell line into a request. "archive N" fetches one archive;
// anything else is a search where page:, sort: and order: directives become
// query parameters and the remaining words form q.
func Parse(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) > 0 && strings.EqualFold(fields[0], "archive") {
		if len(fields) != 2 {
			return Request{}, errors.New("usage: archive <id>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id < 1 {
			return Request{}, fmt.Errorf("invalid archive id '%s'", fields[1])
		}
		return Request{Archive: id}, nil
	}

	params := url.Values{}
	var words []string
	for _, f := range splitFields(line) {
		if strings.ContainsRune(f, '"') {
			words = append(words, f)
			continue
		}
		key, value, ok := strings.Cut(f, ":")
		if ok && directives[strings.ToLower(key)] && value != "" {
			params.Set(strings.ToLower(key), value)
			continue
		}
		words = append(words, f)
	}
	if len(words) > 0 {
		params.Set("q", strings.Join(words, " "))
	}
	return Request{Params: params}, nil
}

// splitFields splits line on whitespace outside double quotes, so a quoted
// phrase stays one field with its quotes. An unterminated quote runs to the
// end of the line.
func splitFields(line string) []string {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return fields
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, params url.Values) (*library.LibraryPage, error) {
	var page library.LibraryPage
	if err := c.get(ctx, "/library?"+params.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Archive(ctx context.Context, id int64) (*library.ArchiveData, error) {
	var data library.ArchiveData
	if err := c.get(ctx, fmt.Sprintf("/archive/%d", id), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var env api.ErrorEnvelope
		if json.Unmarshal(body, &env) == nil && env.Error.Code != "" {
			return fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// Execute runs one shell line against c and prints the result to w.
func Execute(ctx context.Context, c *Client, w io.Writer, line string) error {
	req, err := Parse(line)
	if err != nil {
		return err
	}

	start := time.Now()
	if req.Archive != 0 {
		data, err := c.Archive(ctx, req.Archive)
		if err != nil {
			return err
		}
		PrintArchive(w, data)
	} else {
		page, err := c.Search(ctx, req.Params)
		if err != nil {
			return err
		}
		PrintPage(w, page)
	}
	fmt.Fprintf(w, "\n(%v)\n\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func PrintPage(w io.Writer, page *library.LibraryPage) {
	if len(page.Archives) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	pages := (page.Total + page.Limit - 1) / max(page.Limit, 1)
	fmt.Fprintf(w, "Page %d of %d, %d archives\n", page.Page, pages, page.Total)
	fmt.Fprintf(w, "%-6s | %-40s | %-5s | %s\n", "ID", "Title", "Pages", "Artists")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, a := range page.Archives {
		fmt.Fprintf(w, "%-6d | %-40s | %-5d | %s\n", a.ID, truncate(a.Title, 40), a.Pages, strings.Join(a.Artists, ", "))
	}
}

func PrintArchive(w io.Writer, a *library.ArchiveData) {
	fmt.Fprintf(w, "#%d %s\n", a.ID, a.Title)
	row := func(label string, values []string) {
		if len(values) > 0 {
			fmt.Fprintf(w, "  %-10s %s\n", label+":", strings.Join(values, ", "))
		}
	}
	row("Artists", a.Artists)
	row("Circles", a.Circles)
	row("Magazines", a.Magazines)
	row("Parodies", a.Parodies)

	tags := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		tags[i] = t.Namespace + ":" + t.Name
	}
	row("Tags", tags)

	fmt.Fprintf(w, "  %-10s %d\n", "Pages:", a.Pages)
	if a.ReleasedAt != nil {
		fmt.Fprintf(w, "  %-10s %s\n", "Released:", a.ReleasedAt.Format("2006-01-02"))
	}
	for _, s := range a.Sources {
		fmt.Fprintf(w, "  %-10s %s\n", s.Name+":", s.URL)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
