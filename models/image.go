package models

import (
	"encoding/json"
	"strings"
)

type ImageQuality string

const (
	QualityLow    ImageQuality = "low"
	QualityMedium ImageQuality = "medium"
	QualityHigh   ImageQuality = "high"
)

// ParseImageQuality maps a query value to a tier; anything unknown is high.
func ParseImageQuality(s string) ImageQuality {
	switch ImageQuality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityLow:
		return QualityLow
	case QualityMedium:
		return QualityMedium
	default:
		return QualityHigh
	}
}

// ResolveImageURL picks one URL out of an image descriptor for the requested
// tier. The descriptor may be absent, a plain URL string, a single {url}
// object, or a list of {quality, url} tiers ordered low to high. An empty
// result means no URL exists; when a list holds any URL one is always returned.
func ResolveImageURL(image any, quality ImageQuality) string {
	switch v := image.(type) {
	case nil:
		return ""
	case string:
		return v
	case []QualityURL:
		urls := make([]string, len(v))
		for i, t := range v {
			urls[i] = t.URL
		}
		return pickTier(urls, quality)
	case QualityURL:
		return v.URL
	case *QualityURL:
		if v == nil {
			return ""
		}
		return v.URL
	case []any:
		urls := make([]string, len(v))
		for i, item := range v {
			urls[i] = urlField(item)
		}
		return pickTier(urls, quality)
	case map[string]any:
		return urlField(v)
	case json.RawMessage:
		if len(v) == 0 {
			return ""
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return ""
		}
		return ResolveImageURL(decoded, quality)
	}

	return ""
}

func urlField(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	url, _ := m["url"].(string)
	return url
}

// pickTier walks the fallback order for the tier and returns the first
// non-empty URL.
func pickTier(urls []string, quality ImageQuality) string {
	n := len(urls)
	if n == 0 {
		return ""
	}

	var order []int
	switch quality {
	case QualityLow:
		order = []int{0, 1, n - 1}
	case QualityMedium:
		order = []int{1, 0, n - 1}
	default:
		order = []int{n - 1, 2, 1, 0}
	}

	for _, idx := range order {
		if idx >= 0 && idx < n && urls[idx] != "" {
			return urls[idx]
		}
	}

	// Every preferred index was empty; fall back to any URL present.
	for _, u := range urls {
		if u != "" {
			return u
		}
	}

	return ""
}
