package marketdata

import (
	"context"

	"github.com/triggerstix/GANNTRADINGAPP/internal/metrics"
	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

// Instrumented counts every upstream call by provider, operation and result.
type Instrumented struct {
	Provider
}

func Instrument(p Provider) *Instrumented {
	return &Instrumented{Provider: p}
}

func (i *Instrumented) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	q, err := i.Provider.Quote(ctx, symbol)
	metrics.ObserveUpstream(i.Name(), "quote", err)
	return q, err
}

func (i *Instrumented) History(ctx context.Context, req HistoryRequest) ([]models.Bar, error) {
	bars, err := i.Provider.History(ctx, req)
	metrics.ObserveUpstream(i.Name(), "history", err)
	return bars, err
}

func (i *Instrumented) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	res, err := i.Provider.Search(ctx, query)
	metrics.ObserveUpstream(i.Name(), "search", err)
	return res, err
}
