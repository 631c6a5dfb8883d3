package thesis

import (
	"context"
	"fmt"
	"math"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/pkg/marketdata"
)

// ProjectionYears 图表的预测年份。
var ProjectionYears = []string{"2027e", "2028e", "2029e", "2030e", "2031e"}

// growthRate 内在价值的年增长率。
const growthRate = 0.15

// Chart is an intrinsic value projection against the current price.
type Chart struct {
	Title           string    `json:"title"`
	Years           []string  `json:"years"`
	IntrinsicValues []float64 `json:"intrinsic_values"`
	CurrentPrice    []float64 `json:"current_price"`
}

// Chart projects intrinsic value with an EV/FCF multiple.
//
// 内在价值 = 每股 FCF × 倍数（负数取 0），按 15% 增长取第 2 到第 6 年；
// 无代码映射或数据缺失时返回全零序列。
func (e *Extractor) Chart(ctx context.Context, company string) *Chart {
	fallback := zeroChart(fmt.Sprintf("Intrinsic Value Projection - %s", company))

	ticker, ok := e.Ticker(company)
	if !ok || e.market == nil {
		logger.Infow("No ticker for company", "company", company)
		return fallback
	}

	q, err := e.market.Fetch(ctx, ticker)
	if err != nil {
		logger.Warnw("Chart market data unavailable", "company", company, "ticker", ticker, "error", err.Error())
		return fallback
	}

	price, okPrice := q.Price()
	fcf, okFCF := q.FreeCashFlow()
	if !okPrice || !okFCF || q.SharesOutstanding == nil || *q.SharesOutstanding == 0 {
		logger.Warnw("Missing financial data for chart", "ticker", ticker)
		return fallback
	}

	multiple, ok := e.opts.Multiples[ticker]
	if !ok {
		multiple = e.opts.DefaultMultiple
	}

	return &Chart{
		Title:           fmt.Sprintf("Intrinsic Value Projection - %s (%s)", company, ticker),
		Years:           append([]string(nil), ProjectionYears...),
		IntrinsicValues: Project(fcf / *q.SharesOutstanding * multiple),
		CurrentPrice:    flat(marketdata.Round2(price)),
	}
}

// Project grows a base intrinsic value at 15% per year for years 2 to 6.
func Project(intrinsic float64) []float64 {
	if intrinsic < 0 {
		intrinsic = 0
	}
	out := make([]float64, 0, len(ProjectionYears))
	for i := 2; i < 2+len(ProjectionYears); i++ {
		out = append(out, marketdata.Round2(intrinsic*math.Pow(1+growthRate, float64(i))))
	}
	return out
}

func flat(v float64) []float64 {
	out := make([]float64, len(ProjectionYears))
	for i := range out {
		out[i] = v
	}
	return out
}

func zeroChart(title string) *Chart {
	return &Chart{
		Title:           title,
		Years:           append([]string(nil), ProjectionYears...),
		IntrinsicValues: flat(0),
		CurrentPrice:    flat(0),
	}
}
