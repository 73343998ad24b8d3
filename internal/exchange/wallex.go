package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/strategy-lab/internal/db"
	"github.com/amirphl/strategy-lab/internal/tfutils"
	"github.com/amirphl/strategy-lab/internal/utils"
	wallex "github.com/wallexchange/wallex-go"
)

// MaxBarsPerRequest caps the window of a single candles request.
const MaxBarsPerRequest = 1000

// candleClient is the part of the wallex client used here.
type candleClient interface {
	Candles(symbol, resolution string, from, to time.Time) ([]*wallex.Candle, error)
}

type WallexExchange struct {
	client candleClient
	retry  RetryPolicy
}

func NewWallexExchange(apiKey string) *WallexExchange {
	return &WallexExchange{
		client: wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		retry:  DefaultRetryPolicy(),
	}
}

func (w *WallexExchange) Name() string {
	return "wallex"
}

// NormalizeSymbol turns "BTC-USDT" into the exchange form "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
}

// Resolution maps a timeframe to the wallex resolution: minutes below a day,
// "1D" for daily bars.
func Resolution(timeframe string) (string, error) {
	if timeframe == "1d" {
		return "1D", nil
	}
	minutes := tfutils.TimeframeMinutes(timeframe)
	if minutes == 0 {
		return "", fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return strconv.Itoa(minutes), nil
}

// FetchCandles downloads [start, end) in windows of at most
// MaxBarsPerRequest bars. Invalid bars are skipped; duplicates across
// windows are dropped.
func (w *WallexExchange) FetchCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]db.Candle, error) {
	resolution, err := Resolution(timeframe)
	if err != nil {
		return nil, err
	}
	step := tfutils.GetTimeframeDuration(timeframe) * MaxBarsPerRequest
	market := NormalizeSymbol(symbol)

	out := make([]db.Candle, 0, tfutils.BarsBetween(timeframe, start, end))
	seen := make(map[int64]bool)
	for from := start; from.Before(end); from = from.Add(step) {
		to := from.Add(step)
		if to.After(end) {
			to = end
		}

		var raw []*wallex.Candle
		err := retry(ctx, w.retry, w.Name(), func() error {
			var err error
			raw, err = w.client.Candles(market, resolution, from, to)
			if err != nil {
				return fmt.Errorf("fetching candles: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("FetchCandles | %s %s: %w", symbol, timeframe, err)
		}

		for _, wc := range raw {
			c, err := convertCandle(wc, symbol, timeframe, w.Name())
			if err != nil {
				utils.GetLogger().Printf("FetchCandles | skipping bar: %v", err)
				continue
			}
			if c.Timestamp.Before(start) || !c.Timestamp.Before(end) || seen[c.Timestamp.Unix()] {
				continue
			}
			seen[c.Timestamp.Unix()] = true
			out = append(out, c)
		}
	}

	sortByTime(out)
	return out, nil
}

func convertCandle(wc *wallex.Candle, symbol, timeframe, source string) (db.Candle, error) {
	if wc == nil {
		return db.Candle{}, fmt.Errorf("nil candle")
	}
	var values [5]float64
	for i, n := range []wallex.Number{wc.Open, wc.High, wc.Low, wc.Close, wc.Volume} {
		v, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return db.Candle{}, fmt.Errorf("parse %q: %w", n, err)
		}
		values[i] = v
	}
	c := db.Candle{
		Timestamp: wc.Timestamp.UTC().Truncate(time.Minute),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Symbol:    symbol,
		Timeframe: timeframe,
		Source:    source,
	}
	if err := c.Validate(); err != nil {
		return db.Candle{}, fmt.Errorf("%s at %s: %w", symbol, c.Timestamp, err)
	}
	return c, nil
}

func sortByTime(candles []db.Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
}
