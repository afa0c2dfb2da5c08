package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reviewdeck/internal/domain"
)

/********** wire payloads **********/

// FlexID accepts either a JSON string or a JSON number; historical feeds
// sent businessProfileId both ways.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

type IncomingReply struct {
	Comment     string `json:"comment"`
	UpdateTime  string `json:"updateTime"`
	AIGenerated bool   `json:"aiGenerated"`
}

type IncomingReview struct {
	ReviewID   string          `json:"reviewId"`
	Reviewer   domain.Reviewer `json:"reviewer"`
	StarRating string          `json:"starRating"`
	Comment    string          `json:"comment"`
	CreateTime string          `json:"createTime"`
	UpdateTime string          `json:"updateTime"`
	Reply      *IncomingReply  `json:"reviewReply"`
	Name       string          `json:"name"`
}

// SingleReviewPayload is the non-batch POST body variant: one review
// carrying its own businessProfileId.
type SingleReviewPayload struct {
	IncomingReview
	BusinessProfileID FlexID `json:"businessProfileId"`
}

// BatchPayload is the bulk ingestion body on POST /api/reviews.
type BatchPayload struct {
	BusinessProfileID   FlexID           `json:"businessProfileId"`
	BusinessProfileName string           `json:"businessProfileName"`
	ExecutionTimestamp  string           `json:"executionTimestamp"`
	Reviews             []IncomingReview `json:"reviews"`
}

/********** normalization **********/

var locationIDPattern = regexp.MustCompile(`locations/(\d+)`)

// ExtractProfileID pulls the embedded location id out of a resource name
// like "accounts/1/locations/11832958934823586542/reviews/abc".
func ExtractProfileID(resourceName string) string {
	if m := locationIDPattern.FindStringSubmatch(resourceName); m != nil {
		return m[1]
	}
	return "unknown"
}

// normalizeReview validates an inbound review and converts it to the stored
// shape. Rejections are per record so one bad review never sinks a batch.
func normalizeReview(profileID, profileName string, in IncomingReview) (domain.ReviewRecord, error) {
	if strings.TrimSpace(in.ReviewID) == "" {
		return domain.ReviewRecord{}, fmt.Errorf("%w: missing reviewId", domain.ErrMalformedInput)
	}
	rating, ok := domain.ParseStarRating(strings.TrimSpace(in.StarRating))
	if !ok {
		return domain.ReviewRecord{}, fmt.Errorf("%w: unknown starRating %q", domain.ErrMalformedInput, in.StarRating)
	}

	rec := domain.ReviewRecord{
		ReviewID:     strings.TrimSpace(in.ReviewID),
		ProfileID:    profileID,
		ProfileName:  profileName,
		Reviewer:     in.Reviewer,
		StarRating:   rating,
		Comment:      in.Comment,
		CreateTime:   parseWireTime(in.CreateTime, "createTime", in.ReviewID),
		UpdateTime:   parseWireTime(in.UpdateTime, "updateTime", in.ReviewID),
		ResourceName: in.Name,
	}
	if in.Reply != nil {
		rec.Reply = &domain.ReviewReply{
			Comment:     in.Reply.Comment,
			UpdateTime:  parseWireTime(in.Reply.UpdateTime, "reviewReply.updateTime", in.ReviewID),
			AIGenerated: in.Reply.AIGenerated,
		}
	}
	rec.Status = rec.ReplyStatus()
	if raw, err := json.Marshal(in); err == nil {
		rec.RawJSON = raw
	}
	return rec, nil
}

// parseWireTime returns the zero time for absent or unparseable timestamps.
// Aggregation reports zero CreateTimes as degraded instead of inventing
// "now" the way the previous pipeline did.
func parseWireTime(s, field, reviewID string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	log.Warn().Str("review", reviewID).Str("field", field).Str("value", s).Msg("unparseable timestamp dropped")
	return time.Time{}
}

/********** vendor payload mapping (pull path) **********/

// The reviews source is not strict about field names across API versions;
// resolve each logical field through an alias list, first non-empty wins.
var vendorAliases = map[string][]string{
	"review_id":   {"reviewId", "review_id", "id"},
	"author":      {"reviewer.displayName", "reviewer.name", "author", "name"},
	"photo":       {"reviewer.profilePhotoUrl", "reviewer.photoUrl", "profilePhotoUrl"},
	"rating":      {"starRating", "star_rating", "rating"},
	"comment":     {"comment", "text", "review_text", "body"},
	"create_time": {"createTime", "create_time", "createdAt"},
	"update_time": {"updateTime", "update_time", "updatedAt"},
	"resource":    {"name", "resourceName"},
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
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

func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

func firstAlias(m map[string]any, key string) string {
	for _, p := range vendorAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// mapVendorReviews converts raw vendor payloads into the ingestion wire
// shape; invalid records are dropped with a warn log and counted by the
// caller via the length difference.
func mapVendorReviews(in []map[string]any) []IncomingReview {
	out := make([]IncomingReview, 0, len(in))
	for _, m := range in {
		rv := IncomingReview{
			ReviewID: firstAlias(m, "review_id"),
			Reviewer: domain.Reviewer{
				DisplayName:     firstAlias(m, "author"),
				ProfilePhotoURL: firstAlias(m, "photo"),
			},
			StarRating: firstAlias(m, "rating"),
			Comment:    firstAlias(m, "comment"),
			CreateTime: firstAlias(m, "create_time"),
			UpdateTime: firstAlias(m, "update_time"),
			Name:       firstAlias(m, "resource"),
		}
		if reply, ok := lookupAny(m, "reviewReply").(map[string]any); ok {
			rv.Reply = &IncomingReply{
				Comment:    lookupStr(reply, "comment"),
				UpdateTime: lookupStr(reply, "updateTime"),
			}
			if ai, ok := reply["aiGenerated"].(bool); ok {
				rv.Reply.AIGenerated = ai
			}
		}
		if rv.ReviewID == "" {
			log.Warn().Interface("payload", m).Msg("vendor review without id dropped")
			continue
		}
		out = append(out, rv)
	}
	return out
}

// locationName resolves a display name for a location payload, falling back
// to the configured mapping and finally a synthetic "Profile <id>".
func locationName(loc map[string]any, id string, known map[string]string) string {
	for _, p := range []string{"locationName", "title", "name"} {
		if s := lookupStr(loc, p); s != "" && !strings.Contains(s, "locations/") {
			return s
		}
	}
	if n, ok := known[id]; ok {
		return n
	}
	return "Profile " + id
}
