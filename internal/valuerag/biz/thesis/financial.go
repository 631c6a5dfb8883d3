package thesis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/pkg/marketdata"
	"github.com/kart-io/valuerag/pkg/utils/errors"
	"github.com/kart-io/valuerag/pkg/utils/json"
)

// Valuation holds point-in-time valuation metrics. 缺失为 nil。
type Valuation struct {
	PERatio   *float64 `json:"pe_ratio"`
	PSRatio   *float64 `json:"ps_ratio"`
	FCFYield  *float64 `json:"fcf_yield"`
	MarketCap *string  `json:"market_cap"`
}

// FinancialRecord is the structured financial data of a thesis.
type FinancialRecord struct {
	Revenue   marketdata.Series `json:"revenue"`
	NetIncome marketdata.Series `json:"net_income"`
	Valuation Valuation         `json:"valuation"`
}

// EmptyFinancialRecord returns a record with empty series, never nil slices.
func EmptyFinancialRecord() *FinancialRecord {
	return &FinancialRecord{
		Revenue:   marketdata.Series{Years: []string{}, Values: []float64{}},
		NetIncome: marketdata.Series{Years: []string{}, Values: []float64{}},
	}
}

// ParseFinancialJSON parses the extraction model's answer.
//
// 去掉 markdown 代码块后按 schema 校验：序列长度一致、数值为数字。
func ParseFinancialJSON(raw string) (*FinancialRecord, error) {
	text := textutil.StripCodeFence(raw)
	obj, ok := textutil.ExtractJSONObject(text)
	if !ok {
		return nil, errors.ErrExtractionMalformed.WithMessage("extraction output contains no JSON object")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return nil, errors.ErrExtractionMalformed.WithCause(err)
	}
	return financialFromMap(doc)
}

func financialFromMap(doc map[string]any) (*FinancialRecord, error) {
	rec := EmptyFinancialRecord()
	var err error

	if rec.Revenue, err = parseSeries(doc["revenue"], "revenue"); err != nil {
		return nil, err
	}
	if rec.NetIncome, err = parseSeries(doc["net_income"], "net_income"); err != nil {
		return nil, err
	}

	switch v := doc["valuation"].(type) {
	case nil:
	case map[string]any:
		if rec.Valuation.PERatio, err = optionalNumber(v["pe_ratio"], "valuation.pe_ratio"); err != nil {
			return nil, err
		}
		if rec.Valuation.PSRatio, err = optionalNumber(v["ps_ratio"], "valuation.ps_ratio"); err != nil {
			return nil, err
		}
		if rec.Valuation.FCFYield, err = optionalNumber(v["fcf_yield"], "valuation.fcf_yield"); err != nil {
			return nil, err
		}
		rec.Valuation.MarketCap = optionalText(v["market_cap"])
	default:
		return nil, malformed("valuation must be an object")
	}
	return rec, nil
}

func parseSeries(v any, field string) (marketdata.Series, error) {
	s := marketdata.Series{Years: []string{}, Values: []float64{}}
	if v == nil {
		return s, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return s, malformed("%s must be an object", field)
	}

	years, err := asList(m["years"], field+".years")
	if err != nil {
		return s, err
	}
	values, err := asList(m["values"], field+".values")
	if err != nil {
		return s, err
	}
	if len(years) != len(values) {
		return s, malformed("%s has %d years but %d values", field, len(years), len(values))
	}

	for i := range years {
		year, ok := yearString(years[i])
		if !ok {
			return s, malformed("%s.years[%d] is not a year", field, i)
		}
		num, ok := values[i].(float64)
		if !ok || math.IsNaN(num) || math.IsInf(num, 0) {
			return s, malformed("%s.values[%d] is not numeric", field, i)
		}
		s.Years = append(s.Years, year)
		s.Values = append(s.Values, num)
	}
	return s, nil
}

func asList(v any, field string) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	default:
		return nil, malformed("%s must be a list", field)
	}
}

func yearString(v any) (string, bool) {
	switch y := v.(type) {
	case string:
		y = strings.TrimSpace(y)
		return y, y != ""
	case float64:
		if y != math.Trunc(y) {
			return "", false
		}
		return strconv.FormatInt(int64(y), 10), true
	}
	return "", false
}

func optionalNumber(v any, field string) (*float64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &n, nil
	case string:
		// 模型偶尔把数字放进字符串，"25.5x" 之类视为格式错误。
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, malformed("%s is not numeric", field)
		}
		return &f, nil
	}
	return nil, malformed("%s is not numeric", field)
}

func optionalText(v any) *string {
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return &t
		}
	case float64:
		s := marketdata.FormatMarketCap(t)
		return &s
	}
	return nil
}

func malformed(format string, args ...any) error {
	return errors.ErrExtractionMalformed.WithCause(fmt.Errorf(format, args...))
}

// MergeMarketData fills only the fields the document left empty.
func MergeMarketData(rec *FinancialRecord, q *marketdata.Quote) {
	if rec == nil || q == nil {
		return
	}
	if rec.Revenue.Empty() && !q.Revenue.Empty() {
		rec.Revenue = q.Revenue
	}
	if rec.NetIncome.Empty() && !q.NetIncome.Empty() {
		rec.NetIncome = q.NetIncome
	}
	if rec.Valuation.PERatio == nil {
		rec.Valuation.PERatio = q.TrailingPE
	}
	if rec.Valuation.PSRatio == nil {
		rec.Valuation.PSRatio = q.PriceToSales
	}
	if rec.Valuation.MarketCap == nil && q.MarketCap != nil {
		s := marketdata.FormatMarketCap(*q.MarketCap)
		rec.Valuation.MarketCap = &s
	}
}
