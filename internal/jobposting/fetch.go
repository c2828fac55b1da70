// Package jobposting downloads a job posting page and reduces it to readable
// text the assistant can analyse.
package jobposting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	fetchTimeout = 30 * time.Second
	maxBodyBytes = 5 << 20
	// MaxChars caps the text handed to the model.
	MaxChars = 12000
)

var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrUnsupportedContent = errors.New("unsupported content-type")
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Fetcher retrieves job posting pages.
type Fetcher struct {
	client httpDoer
}

// NewFetcher returns a Fetcher using client, or a default client with a 30s
// timeout when client is nil.
func NewFetcher(client httpDoer) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{client: client}
}

// Read returns the labelled page text of rawURL, or a failure message.
func (f *Fetcher) Read(ctx context.Context, rawURL string) string {
	text, err := f.Text(ctx, rawURL)
	if err != nil {
		return fmt.Sprintf("岗位页面读取失败: %v", err)
	}
	if text == "" {
		return fmt.Sprintf("未能从 '%s' 提取到岗位描述内容，请直接粘贴JD文本。", rawURL)
	}
	return "岗位描述内容：\n\n" + text
}

// Text downloads rawURL and returns its visible text, one block per line.
func (f *Fetcher) Text(ctx context.Context, rawURL string) (string, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; jobmatch-assistant/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	ctype := resp.Header.Get("Content-Type")
	if ctype != "" &&
		!strings.Contains(ctype, "text/html") &&
		!strings.Contains(ctype, "application/xhtml+xml") &&
		!strings.Contains(ctype, "text/plain") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, ctype)
	}

	var r io.Reader = io.LimitReader(resp.Body, maxBodyBytes)
	if decoded, err := charset.NewReader(r, ctype); err == nil {
		r = decoded
	}

	text, err := visibleText(r)
	if err != nil {
		return "", err
	}
	return truncate(text, MaxChars), nil
}

var (
	skipTags = map[string]bool{
		"script": true, "style": true, "noscript": true, "head": true,
		"iframe": true, "svg": true, "canvas": true, "template": true,
	}
	blockTags = map[string]bool{
		"p": true, "div": true, "li": true, "section": true, "article": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"header": true, "footer": true, "br": true, "ul": true, "ol": true,
		"tr": true, "dd": true, "dt": true,
	}
)

func visibleText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	skipDepth := 0
	var text strings.Builder

	newline := func() {
		s := text.String()
		if len(s) > 0 && s[len(s)-1] != '\n' {
			text.WriteByte('\n')
		}
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return strings.TrimSpace(text.String()), nil
			}
			return "", fmt.Errorf("tokenizer error: %w", tokenizer.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := strings.ToLower(string(name))
			if skipTags[tag] && tt == html.StartTagToken {
				skipDepth++
			}
			if blockTags[tag] {
				newline()
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := strings.ToLower(string(name))
			if skipTags[tag] && skipDepth > 0 {
				skipDepth--
			}
			if blockTags[tag] {
				newline()
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			fields := bytes.Fields(tokenizer.Text())
			if len(fields) == 0 {
				continue
			}
			s := text.String()
			if len(s) > 0 && s[len(s)-1] != '\n' {
				text.WriteByte(' ')
			}
			text.Write(bytes.Join(fields, []byte(" ")))
		}
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "\n…"
}
