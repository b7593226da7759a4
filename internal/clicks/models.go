// Package clicks provides the click event model and its MongoDB store.
package clicks

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClickEvent is one recorded visit through a tracked link. The subscription
// flag starts false and is flipped once, when the visitor is confirmed joined;
// it is never reset. The timestamp is set at click time and never changes.
type ClickEvent struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LinkID       uuid.UUID          `bson:"linkId" json:"linkId"`
	ProjectID    uuid.UUID          `bson:"projectId" json:"projectId"`
	IPAddress    string             `bson:"ipAddress" json:"ipAddress"`
	UserAgent    string             `bson:"userAgent" json:"userAgent"`
	SessionToken string             `bson:"sessionToken" json:"sessionToken"`
	UserID       int64              `bson:"userId" json:"userId"`
	UTMSource    string             `bson:"utmSource" json:"utmSource"`
	UTMCampaign  string             `bson:"utmCampaign" json:"utmCampaign"`
	UTMContent   string             `bson:"utmContent" json:"utmContent"`
	IsSubscribed bool               `bson:"isSubscribed" json:"isSubscribed"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}

// Filter selects click events for aggregation. Start and End are UTC day
// boundaries; the store widens the queried window by one day on each side to
// absorb timezone skew at the edges (inclusive lower, exclusive upper bound).
type Filter struct {
	ProjectID uuid.UUID
	Start     *time.Time
	End       *time.Time
	Sources   []string
	Campaigns []string
	Contents  []string
}

// Window returns the timestamp bounds to query: the requested range widened
// by one day on each side, inclusive lower and exclusive upper bound. Unset
// bounds stay unset.
func (f Filter) Window() (start, end *time.Time) {
	if f.Start != nil {
		s := f.Start.AddDate(0, 0, -1)
		start = &s
	}
	if f.End != nil {
		e := f.End.AddDate(0, 0, 1)
		end = &e
	}
	return start, end
}
