package cache

import "time"

const (
	// ImageKeyPrefix namespaces generated images keyed by their exact prompt text.
	ImageKeyPrefix = "img_cache:"
	// DefaultQuotaKeyPrefix namespaces the per-day generation counters.
	DefaultQuotaKeyPrefix = "gemini_daily_count:"

	quotaDateLayout = "2006-01-02"
)

// ImageKey returns the cache key for a prompt. The prompt is not trimmed or folded.
func ImageKey(prompt string) string {
	return ImageKeyPrefix + prompt
}

// QuotaKey returns the counter key for the UTC calendar day containing now.
func QuotaKey(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultQuotaKeyPrefix
	}
	return prefix + now.UTC().Format(quotaDateLayout)
}
