package audit

import (
	"net/url"
	"time"

	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "audit_logs", "a").
	Project("id", "ID").
	Project("case_id", "CaseID").
	Project("asset_id", "AssetID").
	Project("extraction_id", "ExtractionID").
	Project("verdict_id", "VerdictID").
	Project("event_type", "EventType").
	Project("actor_type", "ActorType").
	Project("subtype", "Subtype").
	Project("payload", "Payload").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows audit listings. Nil fields are ignored.
type Filters struct {
	EventType *string    `json:"event_type,omitempty"`
	Subtype   *string    `json:"subtype,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("EventType", f.EventType).
		WhereEquals("Subtype", f.Subtype).
		WhereSince("CreatedAt", f.Since)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// An unparseable since value is ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if et := values.Get("event_type"); et != "" {
		f.EventType = &et
	}

	if st := values.Get("subtype"); st != "" {
		f.Subtype = &st
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	return f
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var (
		e       Entry
		payload []byte
	)
	err := s.Scan(
		&e.ID,
		&e.CaseID,
		&e.AssetID,
		&e.ExtractionID,
		&e.VerdictID,
		&e.EventType,
		&e.ActorType,
		&e.Subtype,
		&payload,
		&e.CreatedAt,
	)
	e.Payload = payload
	return e, err
}
