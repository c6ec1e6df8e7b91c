package api

import (
	"context"
	"fmt"

	"github.com/triggerstix/GANNTRADINGAPP/internal/astro"
	"github.com/triggerstix/GANNTRADINGAPP/internal/gann"
	"github.com/triggerstix/GANNTRADINGAPP/internal/marketdata"
	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
	"github.com/triggerstix/GANNTRADINGAPP/internal/rpc"
)

const legacyHistoryDays = 90

func (s *Server) registerProcedures() {
	s.rpc.Register(
		rpc.Query("market.getMarketData", s.getMarketData),
		rpc.Query("market.getHistoricalData", s.getHistoricalData),
		rpc.Query("market.searchSymbols", s.searchSymbols),

		rpc.Query("gann.calculateGannAngles", s.calculateGannAngles),
		rpc.Query("gann.calculateSquareOfNine", s.calculateSquareOfNine),
		rpc.Query("gann.calculateTimeCycles", s.calculateTimeCycles),
		rpc.Query("gann.getAstrologicalData", s.getAstrologicalData),
		rpc.Query("gann.getMarketData", s.getMarketData),
		rpc.Query("gann.getHistoricalData", s.getRecentHistory),

		rpc.Query("auth.me", s.me),
		rpc.Mutation("auth.logout", s.logout),
	)
}

// --- market ---

type symbolInput struct {
	Symbol string `json:"symbol" validate:"required"`
}

func (s *Server) getMarketData(ctx context.Context, in symbolInput) (*models.Quote, error) {
	q, err := s.provider.Quote(ctx, in.Symbol)
	if err != nil {
		return nil, rpc.Wrap(rpc.InternalServerError, err, fmt.Sprintf("Failed to fetch market data for %s", in.Symbol))
	}
	return q, nil
}

type historyInput struct {
	Symbol   string `json:"symbol" validate:"required"`
	Period1  string `json:"period1" validate:"required,isodate"`
	Period2  string `json:"period2" validate:"omitempty,isodate"`
	Interval string `json:"interval" validate:"oneof=1d 1wk 1mo"`
}

func (in *historyInput) SetDefaults() {
	if in.Interval == "" {
		in.Interval = string(marketdata.Daily)
	}
}

func (s *Server) getHistoricalData(ctx context.Context, in historyInput) ([]models.Bar, error) {
	period1, err := gann.ParseDate(in.Period1)
	if err != nil {
		return nil, rpc.Errorf(rpc.BadRequest, "period1: %v", err)
	}
	period2 := s.now()
	if in.Period2 != "" {
		if period2, err = gann.ParseDate(in.Period2); err != nil {
			return nil, rpc.Errorf(rpc.BadRequest, "period2: %v", err)
		}
	}
	if period1.After(period2) {
		return nil, rpc.Errorf(rpc.BadRequest, "period1 must not be after period2")
	}
	interval, err := marketdata.ParseInterval(in.Interval)
	if err != nil {
		return nil, rpc.Errorf(rpc.BadRequest, "interval: %v", err)
	}

	return s.history(ctx, marketdata.HistoryRequest{
		Symbol:   in.Symbol,
		Period1:  period1,
		Period2:  period2,
		Interval: interval,
	})
}

type recentHistoryInput struct {
	Symbol string `json:"symbol" validate:"required"`
	Days   *int   `json:"days" validate:"required,gte=1,lte=3650"`
}

func (in *recentHistoryInput) SetDefaults() {
	if in.Days == nil {
		d := legacyHistoryDays
		in.Days = &d
	}
}

func (s *Server) getRecentHistory(ctx context.Context, in recentHistoryInput) ([]models.Bar, error) {
	return s.history(ctx, marketdata.LastDays(in.Symbol, *in.Days, s.now()))
}

func (s *Server) history(ctx context.Context, req marketdata.HistoryRequest) ([]models.Bar, error) {
	bars, err := s.provider.History(ctx, req)
	if err != nil {
		return nil, rpc.Wrap(rpc.InternalServerError, err, fmt.Sprintf("Failed to fetch historical data for %s", req.Symbol))
	}
	if bars == nil {
		bars = []models.Bar{}
	}
	return bars, nil
}

type searchInput struct {
	Query string `json:"query"`
}

// searchSymbols never fails: upstream errors are logged and yield no matches.
func (s *Server) searchSymbols(ctx context.Context, in searchInput) ([]models.SymbolMatch, error) {
	matches, err := s.provider.Search(ctx, in.Query)
	if err != nil {
		s.log.Warn().Err(err).Str("query", in.Query).Msg("symbol search failed")
		return []models.SymbolMatch{}, nil
	}
	if matches == nil {
		matches = []models.SymbolMatch{}
	}
	return matches, nil
}

// --- gann ---

type anglesInput struct {
	PivotPrice *float64 `json:"pivotPrice" validate:"required"`
	PivotDate  string   `json:"pivotDate" validate:"required,isodate"`
	TargetDate string   `json:"targetDate" validate:"required,isodate"`
}

func (s *Server) calculateGannAngles(_ context.Context, in anglesInput) (models.GannAngles, error) {
	pivot, err := gann.ParseDate(in.PivotDate)
	if err != nil {
		return models.GannAngles{}, rpc.Errorf(rpc.BadRequest, "pivotDate: %v", err)
	}
	target, err := gann.ParseDate(in.TargetDate)
	if err != nil {
		return models.GannAngles{}, rpc.Errorf(rpc.BadRequest, "targetDate: %v", err)
	}
	return gann.CalculateAngles(*in.PivotPrice, pivot, target), nil
}

type squareInput struct {
	CenterValue *float64 `json:"centerValue" validate:"required"`
	GridSize    int      `json:"gridSize" validate:"required,min=7,max=21,odd"`
}

func (s *Server) calculateSquareOfNine(_ context.Context, in squareInput) (models.SquareOfNine, error) {
	sq, err := gann.SquareOfNine(*in.CenterValue, in.GridSize)
	if err != nil {
		return models.SquareOfNine{}, rpc.Wrap(rpc.BadRequest, err, err.Error())
	}
	return sq, nil
}

type cyclesInput struct {
	StartDate  string    `json:"startDate" validate:"required,isodate"`
	CustomDays []float64 `json:"customDays" validate:"omitempty,max=20,dive,gte=0,lte=36500"`
}

func (s *Server) calculateTimeCycles(_ context.Context, in cyclesInput) (models.TimeCycles, error) {
	start, err := gann.ParseDate(in.StartDate)
	if err != nil {
		return models.TimeCycles{}, rpc.Errorf(rpc.BadRequest, "startDate: %v", err)
	}
	return gann.TimeCycles(start, s.now(), in.CustomDays), nil
}

type astroInput struct {
	Date string `json:"date" validate:"required,isodate"`
}

func (s *Server) getAstrologicalData(_ context.Context, in astroInput) (models.AstrologicalData, error) {
	t, err := gann.ParseDate(in.Date)
	if err != nil {
		return models.AstrologicalData{}, rpc.Errorf(rpc.BadRequest, "date: %v", err)
	}
	return astro.Data(t), nil
}

// --- auth ---

func (s *Server) me(context.Context, rpc.NoInput) (*models.User, error) {
	return nil, nil
}

func (s *Server) logout(context.Context, rpc.NoInput) (models.LogoutResult, error) {
	return models.LogoutResult{Success: true}, nil
}
