package otx

import (
	"encoding/json"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
)

// subscribedPage is the wire format of one page of the subscribed
// pulses endpoint.
type subscribedPage struct {
	Count   int         `json:"count"`
	Next    string      `json:"next"`
	Results []wirePulse `json:"results"`
}

// wirePulse mirrors the feed's pulse JSON.
type wirePulse struct {
	ID          json.Number     `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	AuthorName  string          `json:"author_name"`
	Created     string          `json:"created"`
	Modified    string          `json:"modified"`
	Tags        []string        `json:"tags"`
	TLP         string          `json:"tlp"`
	References  []string        `json:"references"`
	Indicators  []wireIndicator `json:"indicators"`
}

type wireIndicator struct {
	ID          json.Number `json:"id"`
	Indicator   string      `json:"indicator"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Created     string      `json:"created"`
}

// feedTimeLayouts are the timestamp shapes the feed emits: zone-less
// ISO-8601 with or without fractional seconds, plus RFC 3339.
var feedTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseFeedTime(s string) time.Time {
	for _, layout := range feedTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// toDomain converts a wire pulse to the immutable source record.
func (p wirePulse) toDomain() domain.Pulse {
	out := domain.Pulse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Author:      p.AuthorName,
		Tags:        p.Tags,
		TLP:         p.TLP,
		References:  p.References,
		Created:     parseFeedTime(p.Created),
		Modified:    parseFeedTime(p.Modified),
	}
	for _, ind := range p.Indicators {
		out.Indicators = append(out.Indicators, domain.PulseIndicator{
			ID:          ind.ID.String(),
			Type:        ind.Type,
			Value:       ind.Indicator,
			Title:       ind.Title,
			Description: ind.Description,
			Created:     parseFeedTime(ind.Created),
		})
	}
	return out
}
