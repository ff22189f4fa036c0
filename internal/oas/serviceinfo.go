package oas

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descRe  = regexp.MustCompile(`(?is)<meta\s+name=["']description["']\s+content=["']([^"']*)["']`)
)

// maxScrapeBytes bounds how much of a landing page is read for metadata.
const maxScrapeBytes = 256 << 10

// FetchServiceInfo scrapes the service landing page for a human title and
// description. Enrichment is best-effort: an unreachable host, a timeout, or
// an unparsable page all degrade to a zero ServiceInfo and never fail a
// document build.
func FetchServiceInfo(ctx context.Context, baseURL string, client *http.Client, log zerolog.Logger) ServiceInfo {
	if strings.TrimSpace(baseURL) == "" {
		return ServiceInfo{}
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return ServiceInfo{}
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", baseURL).Msg("service info scrape failed")
		return ServiceInfo{}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ServiceInfo{}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return ServiceInfo{}
	}

	var info ServiceInfo
	if m := titleRe.FindSubmatch(body); len(m) == 2 {
		info.Title = collapseSpace(string(m[1]))
	}
	if m := descRe.FindSubmatch(body); len(m) == 2 {
		info.Description = collapseSpace(string(m[1]))
	}
	return info
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
