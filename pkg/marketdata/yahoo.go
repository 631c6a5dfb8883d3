package marketdata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/pkg/utils/httpclient"
)

const quoteSummaryModules = "price,summaryDetail,defaultKeyStatistics,financialData,incomeStatementHistory,cashflowStatementHistory"

// yahooValue is Yahoo's {"raw": 1.0, "fmt": "1.00"} wrapper.
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type yahooStatement struct {
	EndDate             yahooValue `json:"endDate"`
	TotalRevenue        yahooValue `json:"totalRevenue"`
	NetIncome           yahooValue `json:"netIncome"`
	CapitalExpenditures yahooValue `json:"capitalExpenditures"`
}

type yahooResult struct {
	Price struct {
		RegularMarketPrice         yahooValue `json:"regularMarketPrice"`
		RegularMarketPreviousClose yahooValue `json:"regularMarketPreviousClose"`
		MarketCap                  yahooValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail struct {
		PreviousClose                yahooValue `json:"previousClose"`
		TrailingPE                   yahooValue `json:"trailingPE"`
		PriceToSalesTrailing12Months yahooValue `json:"priceToSalesTrailing12Months"`
		MarketCap                    yahooValue `json:"marketCap"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		SharesOutstanding yahooValue `json:"sharesOutstanding"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		CurrentPrice      yahooValue `json:"currentPrice"`
		FreeCashflow      yahooValue `json:"freeCashflow"`
		OperatingCashflow yahooValue `json:"operatingCashflow"`
	} `json:"financialData"`
	IncomeStatementHistory struct {
		Statements []yahooStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	CashflowStatementHistory struct {
		Statements []yahooStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []yahooResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

const crumbPath = "/v1/test/getcrumb"

// fetchQuoteSummary 在 crumb 失效（401）时重新握手并重试一次。
func (c *Client) fetchQuoteSummary(ctx context.Context, ticker string) (*Quote, error) {
	q, err := c.quoteSummary(ctx, ticker)
	var se *httpclient.StatusError
	if stderrors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		logger.Infow("Yahoo crumb rejected, refreshing session", "ticker", ticker)
		c.resetCrumb()
		q, err = c.quoteSummary(ctx, ticker)
	}
	return q, err
}

func (c *Client) quoteSummary(ctx context.Context, ticker string) (*Quote, error) {
	crumb, err := c.sessionCrumb(ctx)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s&crumb=%s",
		strings.TrimRight(c.opts.BaseURL, "/"), url.PathEscape(ticker),
		url.QueryEscape(quoteSummaryModules), url.QueryEscape(crumb))

	var resp quoteSummaryResponse
	if err := c.http.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("quoteSummary %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quoteSummary returned no result for %s", ticker)
	}
	return toQuote(ticker, &resp.QuoteSummary.Result[0]), nil
}

// sessionCrumb returns the cached crumb, performing the cookie and crumb
// handshake on first use.
func (c *Client) sessionCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	if c.opts.CookieURL != "" {
		// 该地址通常返回 404，只需要它下发的 cookie。
		if _, _, err := c.getText(ctx, c.opts.CookieURL); err != nil {
			logger.Debugw("Yahoo cookie request failed", "url", c.opts.CookieURL, "error", err.Error())
		}
	}

	body, status, err := c.getText(ctx, strings.TrimRight(c.opts.BaseURL, "/")+crumbPath)
	if err != nil {
		return "", fmt.Errorf("fetch crumb: %w", err)
	}
	crumb := strings.TrimSpace(body)
	if status != http.StatusOK || crumb == "" || strings.HasPrefix(crumb, "{") {
		return "", fmt.Errorf("fetch crumb: status %d", status)
	}
	c.crumb = crumb
	logger.Debugw("Yahoo crumb acquired")
	return crumb, nil
}

func (c *Client) resetCrumb() {
	c.crumbMu.Lock()
	c.crumb = ""
	c.crumbMu.Unlock()
}

func (c *Client) getText(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := c.http.DoRequest(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(b), resp.StatusCode, nil
}

func toQuote(ticker string, r *yahooResult) *Quote {
	q := &Quote{
		Symbol:             ticker,
		CurrentPrice:       r.FinancialData.CurrentPrice.Raw,
		RegularMarketPrice: r.Price.RegularMarketPrice.Raw,
		PreviousClose:      first(r.SummaryDetail.PreviousClose.Raw, r.Price.RegularMarketPreviousClose.Raw),
		TrailingPE:         r.SummaryDetail.TrailingPE.Raw,
		PriceToSales:       r.SummaryDetail.PriceToSalesTrailing12Months.Raw,
		MarketCap:          first(r.Price.MarketCap.Raw, r.SummaryDetail.MarketCap.Raw),
		FreeCashflow:       r.FinancialData.FreeCashflow.Raw,
		OperatingCashflow:  r.FinancialData.OperatingCashflow.Raw,
		SharesOutstanding:  r.DefaultKeyStatistics.SharesOutstanding.Raw,
	}

	income := sortedByDate(r.IncomeStatementHistory.Statements)
	q.Revenue = lastYears(income, 3, func(s yahooStatement) *float64 { return s.TotalRevenue.Raw })
	q.NetIncome = lastYears(income, 3, func(s yahooStatement) *float64 { return s.NetIncome.Raw })

	if cash := sortedByDate(r.CashflowStatementHistory.Statements); len(cash) > 0 {
		q.CapitalExpenditures = cash[len(cash)-1].CapitalExpenditures.Raw
	}
	return q
}

func first(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// sortedByDate 按 endDate 升序，缺失日期的报表被丢弃。
func sortedByDate(in []yahooStatement) []yahooStatement {
	out := make([]yahooStatement, 0, len(in))
	for _, s := range in {
		if s.EndDate.Raw != nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].EndDate.Raw < *out[j].EndDate.Raw })
	return out
}

func lastYears(statements []yahooStatement, n int, field func(yahooStatement) *float64) Series {
	var s Series
	for _, st := range statements {
		v := field(st)
		if v == nil {
			continue
		}
		year := time.Unix(int64(*st.EndDate.Raw), 0).UTC().Format("2006")
		s.Years = append(s.Years, year)
		s.Values = append(s.Values, *v)
	}
	if len(s.Years) > n {
		s.Years = s.Years[len(s.Years)-n:]
		s.Values = s.Values[len(s.Values)-n:]
	}
	return s
}
