package search

import "time"

// ContentType describes which logical content family a record belongs to.
type ContentType string

const (
	TypeConversation ContentType = "conversation"
	TypePattern      ContentType = "pattern"
	TypeDocument     ContentType = "document"
)

// Family identifies one of the two remote endpoint families.
type Family string

const (
	// FamilyDocument searches ingested long-form content.
	FamilyDocument Family = "document"
	// FamilyMemory searches short structured records.
	FamilyMemory Family = "memory"
)

// ServesType reports whether a family can return records of the given type.
// The document family owns long-form documents; everything else lives in the
// memory family.
func (f Family) ServesType(t ContentType) bool {
	if f == FamilyDocument {
		return t == TypeDocument
	}
	return t == TypeConversation || t == TypePattern
}

// Fields carries the scorable metadata of a record.
type Fields struct {
	Title             string    `json:"title"`
	Summary           string    `json:"summary"`
	Tags              []string  `json:"tags,omitempty"`
	Category          string    `json:"category,omitempty"`
	Timestamp         time.Time `json:"timestamp,omitzero"`
	Outcome           string    `json:"outcome,omitempty"`
	SatisfactionScore *float64  `json:"satisfaction_score,omitempty"` // 0..5, conversation records only
}

// MemoryItem is a candidate result: a read-only projection of remote state,
// fetched fresh (or from the short-TTL cache) per query.
type MemoryItem struct {
	ID           string      `json:"id"`
	OwnerID      string      `json:"owner_id"`
	Type         ContentType `json:"type"`
	Fields       Fields      `json:"fields"`
	ContainerTag string      `json:"container_tag,omitempty"`
	// VectorScore is the opaque similarity score the backend returned for the
	// current query only. Not persisted, not comparable across queries.
	VectorScore float64 `json:"-"`
}

// Query is a normalized, validated search request ready for the pipeline.
type Query struct {
	RawText      string
	Tokens       []string // ordered, unique
	TypeFilter   []ContentType
	TagFilter    []string
	DateFrom     *time.Time
	DateTo       *time.Time
	ContainerTag string
	CallerID     string
	Limit        int
	Offset       int
}

// WantsType reports whether the query's type filter admits t.
// An empty filter admits every type.
func (q *Query) WantsType(t ContentType) bool {
	if len(q.TypeFilter) == 0 {
		return true
	}
	for _, ft := range q.TypeFilter {
		if ft == t {
			return true
		}
	}
	return false
}

// WantsFamily reports whether any type admitted by the query is served by the
// given family. Families that cannot contribute are skipped entirely.
func (q *Query) WantsFamily(f Family) bool {
	if len(q.TypeFilter) == 0 {
		return true
	}
	for _, t := range q.TypeFilter {
		if f.ServesType(t) {
			return true
		}
	}
	return false
}

// ScoreBreakdown holds the per-component scores, all in [0,1].
type ScoreBreakdown struct {
	Vector       float64 `json:"vector"`
	Keyword      float64 `json:"keyword"`
	Recency      float64 `json:"recency"`
	Satisfaction float64 `json:"satisfaction"`
	Final        float64 `json:"final"`
}

// ScoredResult is a MemoryItem plus its score breakdown.
type ScoredResult struct {
	Item  MemoryItem     `json:"item"`
	Score ScoreBreakdown `json:"score"`
}

// Page is one slice of the globally sorted, filtered, scored result set.
type Page struct {
	Items      []ScoredResult `json:"items"`
	HasMore    bool           `json:"has_more"`
	NextOffset int            `json:"next_offset"`
	Degraded   bool           `json:"degraded"`
}

// Request is the caller-facing search request.
type Request struct {
	Query        string        `json:"query"`
	Types        []ContentType `json:"types,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	DateFrom     *time.Time    `json:"date_from,omitempty"`
	DateTo       *time.Time    `json:"date_to,omitempty"`
	ContainerTag string        `json:"container_tag,omitempty"`
	Limit        int           `json:"limit,omitempty"`  // default 20, max 100
	Offset       int           `json:"offset,omitempty"` // default 0
	CallerID     string        `json:"caller_id"`
}
