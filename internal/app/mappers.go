package app

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"opinion_mining/internal/domain"
)

/********** alias registry (single source of truth) **********/

// exportAliases maps review fields to the column names used by the iOS and
// Android store exports and by already-normalized files.
var exportAliases = map[string][]string{
	"business_id":   {"business_id", "App ID", "Publisher ID", "app_id"},
	"business_name": {"business_name", "App Name", "app_name"},
	"user_name":     {"user_name", "User", "Author", "author"},
	"version":       {"version", "Version", "App Version"},
	"rating":        {"review_stars", "Rating", "rating", "Stars"},
	"text":          {"text", "Review", "review", "Body"},
	"date":          {"date", "Date"},
	"language":      {"Language", "language", "lang"},
	"platform":      {"Platform", "platform"},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"Jan 2, 2006",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	if v, ok := m[path]; ok {
		return v
	}
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) string {
	for _, p := range exportAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// hasAlias reports whether any column of the alias set is present, even empty.
func hasAlias(m map[string]any, key string) bool {
	for _, p := range exportAliases[key] {
		if _, ok := m[p]; ok {
			return true
		}
	}
	return false
}

// getFloatFlexible: number from several paths (float64/int/string like "4,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

/********** export mapper **********/

// exportMeta describes the layout of one uploaded export.
type exportMeta struct {
	HasVersion bool // iOS exports carry a Version column, Android ones do not
}

// mapExport converts export rows to reviews. Rows of the Android layout whose
// Language column is set to something other than English are dropped. A
// rating that is missing or not a whole number maps to 0, which the
// summarizer later excludes.
func mapExport(rows []map[string]any) ([]domain.Review, exportMeta) {
	var meta exportMeta
	out := make([]domain.Review, 0, len(rows))
	for _, r := range rows {
		if hasAlias(r, "version") {
			meta.HasVersion = true
		}
		if lang := firstNonEmptyAlias(r, "language"); lang != "" && !strings.EqualFold(lang, "English") && !strings.EqualFold(lang, "en") {
			continue
		}

		rv := domain.Review{
			BusinessID: firstNonEmptyAlias(r, "business_id"),
			Version:    firstNonEmptyAlias(r, "version"),
			UserName:   firstNonEmptyAlias(r, "user_name"),
			Text:       firstNonEmptyAlias(r, "text"),
			Date:       parseDate(firstNonEmptyAlias(r, "date")),
		}
		if f := getFloatFlexible(r, exportAliases["rating"]...); f != nil && *f == math.Trunc(*f) {
			rv.Rating = int(*f)
		}
		rv.SourceID = sourceID(rv)
		rv.Lang = strings.ToLower(firstNonEmptyAlias(r, "language"))

		out = append(out, rv)
	}
	return out, meta
}

// businessName is read separately: it is business metadata, not review data.
func businessName(rows []map[string]any) string {
	for _, r := range rows {
		if n := firstNonEmptyAlias(r, "business_name"); n != "" {
			return n
		}
	}
	return ""
}

// sourceID synthesizes a stable id so re-uploading an export upserts.
func sourceID(rv domain.Review) string {
	d := ""
	if rv.Date != nil {
		d = rv.Date.Format(time.RFC3339)
	}
	sig := strings.Join([]string{rv.BusinessID, rv.Version, rv.UserName, d, fmt.Sprint(rv.Rating), rv.Text}, "|")
	sum := sha1.Sum([]byte(sig))
	return hex.EncodeToString(sum[:])
}

/********** selection **********/

// FilterVersion keeps the reviews of one app version.
func FilterVersion(rs []domain.Review, version string) []domain.Review {
	out := rs[:0:0]
	for _, r := range rs {
		if r.Version == version {
			out = append(out, r)
		}
	}
	return out
}

// FilterDate keeps reviews dated in (start, end]. A nil bound is open;
// undated reviews are dropped when any bound is set.
func FilterDate(rs []domain.Review, start, end *time.Time) []domain.Review {
	if start == nil && end == nil {
		return rs
	}
	out := rs[:0:0]
	for _, r := range rs {
		if r.Date == nil {
			continue
		}
		if start != nil && !r.Date.After(*start) {
			continue
		}
		if end != nil && r.Date.After(*end) {
			continue
		}
		out = append(out, r)
	}
	return out
}
