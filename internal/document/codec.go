package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Decoding is deliberately lenient: numeric fields accept integer, float,
// string or boxed-number forms, date fields accept RFC3339 strings, epoch
// numbers or {seconds,nanos} maps, and malformed optional fields are dropped
// instead of failing the whole document. Only a missing kind is fatal for a
// record.

// DecodeRecord rebuilds a record DTO from a raw document body.
func DecodeRecord(m map[string]any) (Record, error) {
	kind := str(m, "kind")
	if kind == "" {
		return Record{}, fmt.Errorf("record document without kind")
	}
	rec := Record{
		V:     asInt(m, "v"),
		Owner: str(m, "owner"),
		Kind:  kind,
	}
	if t, ok := asTime(m, "date"); ok {
		rec.Date = t
	}
	if tm := sub(m, "training"); tm != nil {
		rec.Training = decodeTraining(tm)
	}
	if rm := sub(m, "run"); rm != nil {
		rec.Run = decodeRun(rm)
	}
	if bm := sub(m, "benchmark"); bm != nil {
		rec.Benchmark = &Benchmark{Name: str(bm, "name"), Target: str(bm, "target")}
	}
	if wm := sub(m, "weight"); wm != nil {
		kg, _ := asFloat(wm, "kg")
		rec.Weight = &Weight{Kg: kg}
	}
	for _, v := range list(m, "media") {
		mm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		md := Media{
			ID:        str(mm, "id"),
			Kind:      str(mm, "kind"),
			Inline:    str(mm, "inline"),
			URL:       str(mm, "url"),
			Path:      str(mm, "path"),
			ThumbURL:  str(mm, "thumb_url"),
			ThumbPath: str(mm, "thumb_path"),
		}
		if md.ID == "" {
			continue
		}
		rec.Media = append(rec.Media, md)
	}
	return rec, nil
}

func decodeTraining(m map[string]any) *Training {
	t := &Training{Title: str(m, "title"), Notes: str(m, "notes")}
	t.DurationSec, _ = asFloat(m, "duration_sec")
	for _, v := range list(m, "exercises") {
		em, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ex := Exercise{Name: str(em, "name")}
		for _, sv := range list(em, "sets") {
			sm, ok := sv.(map[string]any)
			if !ok {
				continue
			}
			w, _ := asFloat(sm, "weight_kg")
			ex.Sets = append(ex.Sets, Set{Reps: asInt(sm, "reps"), WeightKg: w})
		}
		t.Exercises = append(t.Exercises, ex)
	}
	return t
}

func decodeRun(m map[string]any) *Run {
	r := &Run{Notes: str(m, "notes")}
	r.DistanceM, _ = asFloat(m, "distance_m")
	r.DurationSec, _ = asFloat(m, "duration_sec")
	for _, v := range list(m, "splits") {
		if f, ok := toFloat(v); ok {
			r.Splits = append(r.Splits, f)
		}
	}
	return r
}

// DecodeActivity rebuilds a feed item from a raw document body.
func DecodeActivity(m map[string]any) Activity {
	a := Activity{
		V:         asInt(m, "v"),
		Owner:     str(m, "owner"),
		Kind:      str(m, "kind"),
		Summary:   str(m, "summary"),
		LikeCount: asInt(m, "like_count"),
		Payload:   sub(m, "payload"),
	}
	if t, ok := asTime(m, "created_at"); ok {
		a.CreatedAt = t
	}
	for _, v := range list(m, "liker_ids") {
		if s, ok := v.(string); ok {
			a.LikerIDs = append(a.LikerIDs, s)
		}
	}
	if pm := sub(m, "profile"); pm != nil {
		a.Profile = &ProfileSnapshot{
			Username:    str(pm, "username"),
			DisplayName: str(pm, "display_name"),
			Avatar:      str(pm, "avatar"),
		}
	}
	return a
}

// DecodeFollow rebuilds a follow edge from a raw document body.
func DecodeFollow(m map[string]any) Follow {
	return Follow{
		V:        asInt(m, "v"),
		Follower: str(m, "follower"),
		Followee: str(m, "followee"),
		Active:   asBool(m, "active"),
	}
}

// DecodeLike rebuilds a like edge from a raw document body.
func DecodeLike(m map[string]any) Like {
	l := Like{
		V:          asInt(m, "v"),
		ActivityID: str(m, "activity_id"),
		UserID:     str(m, "user_id"),
	}
	if t, ok := asTime(m, "created_at"); ok {
		l.CreatedAt = t
	}
	return l
}

// DecodeProfile rebuilds a profile document from a raw document body.
func DecodeProfile(m map[string]any) Profile {
	return Profile{
		V:             asInt(m, "v"),
		UserID:        str(m, "user_id"),
		Username:      str(m, "username"),
		DisplayName:   str(m, "display_name"),
		UsernameLC:    str(m, "username_lc"),
		DisplayNameLC: str(m, "display_name_lc"),
		Avatar:        str(m, "avatar"),
	}
}

// ---- coercion helpers ----

func str(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func sub(m map[string]any, key string) map[string]any {
	if s, ok := m[key].(map[string]any); ok {
		return s
	}
	return nil
}

func list(m map[string]any, key string) []any {
	if l, ok := m[key].([]any); ok {
		return l
	}
	return nil
}

func asFloat(m map[string]any, key string) (float64, bool) {
	return toFloat(m[key])
}

func asInt(m map[string]any, key string) int {
	f, _ := toFloat(m[key])
	return int(f)
}

func asBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// toFloat accepts float, integer, json.Number, numeric string and
// boxed-number ({"value": n}) representations.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case map[string]any:
		if inner, ok := n["value"]; ok {
			return toFloat(inner)
		}
	}
	return 0, false
}

// asTime accepts RFC3339 strings, epoch-second numbers and structured
// {seconds,nanos} timestamps.
func asTime(m map[string]any, key string) (time.Time, bool) {
	switch v := m[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), true
	case map[string]any:
		if s, ok := toFloat(v["seconds"]); ok {
			n, _ := toFloat(v["nanos"])
			return time.Unix(int64(s), int64(n)).UTC(), true
		}
	}
	return time.Time{}, false
}
