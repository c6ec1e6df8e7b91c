package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

const (
	minSaneETH = 100
	maxSaneETH = 100_000
)

// ETHPricer returns the current ETH price in USD.
type ETHPricer interface {
	ETHPrice(ctx context.Context) (float64, error)
}

// ChainProvider answers ETH-USD quotes from an on-chain price source and
// delegates everything else to the wrapped provider. The on-chain price is
// laid over the wrapped provider's quote, so change is measured against its
// previous close; without that baseline change stays 0 and the optional
// fields are omitted.
type ChainProvider struct {
	inner  Provider
	pricer ETHPricer
	log    zerolog.Logger
	now    func() time.Time
}

func NewChainProvider(inner Provider, pricer ETHPricer, log zerolog.Logger) *ChainProvider {
	return &ChainProvider{inner: inner, pricer: pricer, log: log, now: time.Now}
}

func (c *ChainProvider) Name() string { return c.inner.Name() + "+chain" }

func (c *ChainProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if NormalizeSymbol(symbol) != "ETH-USD" {
		return c.inner.Quote(ctx, symbol)
	}

	price, err := c.pricer.ETHPrice(ctx)
	if err == nil && (price < minSaneETH || price > maxSaneETH) {
		err = fmt.Errorf("ETH price %.2f failed sanity check", price)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("on-chain price unavailable, falling back")
		return c.inner.Quote(ctx, symbol)
	}

	q := &models.Quote{Symbol: symbol}
	if base, err := c.inner.Quote(ctx, symbol); err == nil {
		q = base
	} else {
		c.log.Debug().Err(err).Str("symbol", symbol).Msg("no baseline quote, change fields left empty")
	}
	q.Symbol = symbol
	q.Price = price
	q.Timestamp = c.now().UTC().Format(time.RFC3339)
	q.Change, q.ChangePercent = 0, 0
	if q.PreviousClose != nil && *q.PreviousClose != 0 {
		q.Change = price - *q.PreviousClose
		q.ChangePercent = q.Change / *q.PreviousClose * 100
	}
	if q.High != nil && price > *q.High {
		q.High = &price
	}
	if q.Low != nil && price < *q.Low {
		q.Low = &price
	}
	return q, nil
}

func (c *ChainProvider) History(ctx context.Context, req HistoryRequest) ([]models.Bar, error) {
	return c.inner.History(ctx, req)
}

func (c *ChainProvider) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	return c.inner.Search(ctx, query)
}
