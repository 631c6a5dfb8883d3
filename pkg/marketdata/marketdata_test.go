package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketopts "github.com/kart-io/valuerag/pkg/options/market"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

const nvdaSummary = `{"quoteSummary": {"result": [{
	"price": {"regularMarketPrice": {"raw": 181.5}, "regularMarketPreviousClose": {"raw": 178.0}, "marketCap": {"raw": 4420000000000}},
	"summaryDetail": {"previousClose": {"raw": 180.0}, "trailingPE": {"raw": 52.3}, "priceToSalesTrailing12Months": {"raw": 28.1}},
	"defaultKeyStatistics": {"sharesOutstanding": {"raw": 24300000000}},
	"financialData": {"currentPrice": {"raw": 182.0}, "operatingCashflow": {"raw": 91000000000}},
	"incomeStatementHistory": {"incomeStatementHistory": [
		{"endDate": {"raw": 1737849600}, "totalRevenue": {"raw": 130497000000}, "netIncome": {"raw": 72880000000}},
		{"endDate": {"raw": 1706400000}, "totalRevenue": {"raw": 60922000000}, "netIncome": {"raw": 29760000000}},
		{"endDate": {"raw": 1674864000}, "totalRevenue": {"raw": 26974000000}, "netIncome": {"raw": 4368000000}},
		{"endDate": {"raw": 1643328000}, "totalRevenue": {"raw": 26914000000}, "netIncome": {"raw": 9752000000}}
	]},
	"cashflowStatementHistory": {"cashflowStatements": [
		{"endDate": {"raw": 1706400000}, "capitalExpenditures": {"raw": -1069000000}},
		{"endDate": {"raw": 1737849600}, "capitalExpenditures": {"raw": -3236000000}}
	]}
}], "error": null}}`

// yahooStub 模拟 Yahoo 的 cookie + crumb 握手：quoteSummary 需要有效 cookie 和当前 crumb。
type yahooStub struct {
	quotes  int32
	crumbs  int32
	current atomic.Value
}

func (y *yahooStub) rotate(crumb string) { y.current.Store(crumb) }

func newYahooStub(t *testing.T) (*yahooStub, *httptest.Server) {
	t.Helper()
	y := &yahooStub{}
	y.rotate("crumb-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/consent", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc(crumbPath, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(&y.crumbs, 1)
		_, _ = w.Write([]byte(y.current.Load().(string)))
	})
	mux.HandleFunc("/v10/finance/quoteSummary/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&y.quotes, 1)
		assert.Contains(t, r.URL.RawQuery, "modules=")
		w.Header().Set("Content-Type", "application/json")
		if _, err := r.Cookie("A3"); err != nil || r.URL.Query().Get("crumb") != y.current.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"finance": {"result": null, "error": {"code": "Unauthorized", "description": "Invalid Crumb"}}}`))
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/NVDA"):
			_, _ = w.Write([]byte(nvdaSummary))
		case strings.HasSuffix(r.URL.Path, "/BRK-B"):
			_, _ = w.Write([]byte(`{"quoteSummary": {"result": [{"price": {"regularMarketPrice": {"raw": 490}}, "summaryDetail": {"previousClose": {"raw": 500}}}], "error": null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"quoteSummary": {"result": null, "error": {"code": "Not Found", "description": "Quote not found"}}}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return y, srv
}

func testOptions(baseURL string) *marketopts.Options {
	opts := marketopts.NewOptions()
	opts.BaseURL = baseURL
	opts.CookieURL = baseURL + "/consent"
	opts.MaxRetries = 0
	opts.RequestsPerSecond = 0
	return opts
}

func TestFetchParsesQuoteSummary(t *testing.T) {
	_, srv := newYahooStub(t)
	c := New(testOptions(srv.URL), nil)

	q, err := c.Fetch(context.Background(), "nvda")
	require.NoError(t, err)

	price, ok := q.Price()
	require.True(t, ok)
	assert.Equal(t, 182.0, price)
	assert.Equal(t, 180.0, *q.PreviousClose)
	assert.Equal(t, 52.3, *q.TrailingPE)
	assert.Equal(t, 28.1, *q.PriceToSales)
	assert.Equal(t, "4.42T", FormatMarketCap(*q.MarketCap))

	fcf, ok := q.FreeCashFlow()
	require.True(t, ok)
	assert.Equal(t, 91000000000.0-3236000000.0, fcf)

	assert.Equal(t, []string{"2023", "2024", "2025"}, q.Revenue.Years)
	assert.Equal(t, []float64{26974000000, 60922000000, 130497000000}, q.Revenue.Values)
	assert.Len(t, q.NetIncome.Values, 3)
}

func TestFetchErrors(t *testing.T) {
	_, srv := newYahooStub(t)
	c := New(testOptions(srv.URL), nil)

	_, err := c.Fetch(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, errors.ErrMarketData)

	_, err = c.Fetch(context.Background(), " ")
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)

	opts := testOptions(srv.URL)
	opts.Enabled = false
	_, err = New(opts, nil).Fetch(context.Background(), "NVDA")
	assert.ErrorIs(t, err, errors.ErrMarketData)
}

func TestFetchPerformsCrumbHandshake(t *testing.T) {
	stub, srv := newYahooStub(t)
	c := New(testOptions(srv.URL), nil)
	ctx := context.Background()

	_, err := c.Fetch(ctx, "NVDA")
	require.NoError(t, err)
	_, err = c.Fetch(ctx, "BRK-B")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.crumbs), "crumb is cached")

	// 服务端轮换 crumb 后，客户端在 401 时重新握手一次。
	stub.rotate("crumb-2")
	q, err := c.Fetch(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", q.Symbol)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.crumbs))
	assert.Equal(t, int32(4), atomic.LoadInt32(&stub.quotes))
}

func TestFetchFailsWithoutSessionCookie(t *testing.T) {
	stub, srv := newYahooStub(t)
	opts := testOptions(srv.URL)
	opts.CookieURL = ""

	_, err := New(opts, nil).Fetch(context.Background(), "NVDA")
	assert.ErrorIs(t, err, errors.ErrMarketData)
	assert.Zero(t, atomic.LoadInt32(&stub.quotes))
}

func TestQuoteFallbacks(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	q := &Quote{RegularMarketPrice: f(10), OperatingCashflow: f(100), CapitalExpenditures: f(-30)}
	price, ok := q.Price()
	assert.True(t, ok)
	assert.Equal(t, 10.0, price)
	fcf, ok := q.FreeCashFlow()
	assert.True(t, ok)
	assert.Equal(t, 70.0, fcf)

	empty := &Quote{}
	_, ok = empty.Price()
	assert.False(t, ok)
	_, ok = empty.FreeCashFlow()
	assert.False(t, ok)
}

type stubProvider map[string]*Quote

func (s stubProvider) Fetch(_ context.Context, ticker string) (*Quote, error) {
	if q, ok := s[ticker]; ok {
		return q, nil
	}
	return nil, errors.ErrMarketData
}

func TestTape(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	p := stubProvider{
		"AAPL":  {CurrentPrice: f(230.5), PreviousClose: f(225)},
		"BRK-B": {RegularMarketPrice: f(490), PreviousClose: f(500)},
		"V":     {PreviousClose: f(300)},
		"JPM":   {CurrentPrice: f(200)},
	}

	items := Tape(context.Background(), p, []string{"AAPL", "BRK-B", "MSFT", "V", "JPM"})
	require.Len(t, items, 3)
	assert.Equal(t, TickerItem{Symbol: "AAPL", Price: "230.50", Change: "+2.44%", Up: true}, items[0])
	assert.Equal(t, TickerItem{Symbol: "BRK.B", Price: "490.00", Change: "-2.00%", Up: false}, items[1])
	assert.Equal(t, TickerItem{Symbol: "V", Price: "300.00", Change: "+0.00%", Up: true}, items[2])
}

func TestFetchUsesRedisCache(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("redis not available")
	}
	defer rdb.Close()
	rdb.Del(ctx, "valuerag:quote:NVDA")

	stub, srv := newYahooStub(t)
	opts := testOptions(srv.URL)
	opts.CacheTTL = time.Minute
	c := New(opts, rdb)

	_, err := c.Fetch(ctx, "NVDA")
	require.NoError(t, err)
	q, err := c.Fetch(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.quotes))
	assert.Equal(t, []string{"2023", "2024", "2025"}, q.Revenue.Years)

	rdb.Del(ctx, "valuerag:quote:NVDA")
}
