package otx

import (
	"context"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
	"github.com/seclane/pulsefeed/internal/logger"
)

// Ensure pager implements the port.
var _ driven.PulseIterator = (*pager)(nil)

// pager walks the feed's paginated results lazily, following the
// "next" links the API returns. It stops when the feed is exhausted
// or the client's page maximum is reached.
type pager struct {
	client *Client
	next   string
	pages  int
	done   bool
}

// Next fetches the next page of pulses.
func (p *pager) Next(ctx context.Context) ([]domain.Pulse, error) {
	if p.done {
		return nil, domain.ErrIteratorDone
	}
	if p.client.maxPages > 0 && p.pages >= p.client.maxPages {
		logger.Debug("otx: page maximum %d reached, stopping fetch", p.client.maxPages)
		p.done = true
		return nil, domain.ErrIteratorDone
	}

	var page subscribedPage
	if err := p.client.getJSON(ctx, p.next, &page); err != nil {
		return nil, err
	}
	p.pages++

	if page.Next == "" {
		p.done = true
	} else {
		p.next = page.Next
	}

	pulses := make([]domain.Pulse, 0, len(page.Results))
	for _, wp := range page.Results {
		pulses = append(pulses, wp.toDomain())
	}
	logger.Debug("otx: fetched page %d with %d pulse(s)", p.pages, len(pulses))
	return pulses, nil
}
