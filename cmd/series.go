package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
	"github.com/amirphl/strategy-lab/internal/config"
	"github.com/amirphl/strategy-lab/internal/db"
	"github.com/amirphl/strategy-lab/internal/db/conf"
	"github.com/amirphl/strategy-lab/internal/exchange"
)

// loadSeries builds the price series the run evolves against.
func loadSeries(ctx context.Context, cfg config.Config) (candle.Series, error) {
	switch cfg.Source {
	case config.SourceSample:
		return sampleSeries(cfg)
	case config.SourcePostgres:
		store, err := openStorage(ctx, cfg)
		if err != nil {
			return candle.Series{}, err
		}
		defer store.GetDB().Close()
		from, to, err := cfg.Range()
		if err != nil {
			return candle.Series{}, err
		}
		return db.LoadSeries(ctx, store, cfg.Symbol, cfg.Timeframe, "", from, to)
	case config.SourceWallex:
		var store db.CandleStorage
		if cfg.SaveFetched {
			s, err := openStorage(ctx, cfg)
			if err != nil {
				return candle.Series{}, err
			}
			defer s.GetDB().Close()
			store = s
		}
		return fetchSeries(ctx, exchange.NewWallexExchange(cfg.WallexAPIKey), store, cfg)
	default:
		return candle.Series{}, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func sampleSeries(cfg config.Config) (candle.Series, error) {
	p, err := candle.SamplePreset(cfg.Symbol)
	if err != nil {
		return candle.Series{}, err
	}
	if cfg.SampleBars > 0 {
		p.Bars = cfg.SampleBars
	}
	if cfg.SampleStartPrice > 0 {
		p.StartPrice = cfg.SampleStartPrice
	}
	if cfg.SampleVolatility > 0 {
		p.Volatility = cfg.SampleVolatility
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return candle.GenerateSample(p, rand.New(rand.NewSource(seed))), nil
}

// fetchSeries downloads the configured range and, when store is set,
// saves the candles before building the series.
func fetchSeries(ctx context.Context, src exchange.CandleSource, store db.CandleStorage, cfg config.Config) (candle.Series, error) {
	from, to, err := cfg.Range()
	if err != nil {
		return candle.Series{}, err
	}
	rows, err := src.FetchCandles(ctx, cfg.Symbol, cfg.Timeframe, from, to)
	if err != nil {
		return candle.Series{}, err
	}
	if len(rows) == 0 {
		return candle.Series{}, fmt.Errorf("fetchSeries | %s returned no candles for %s %s", src.Name(), cfg.Symbol, cfg.Timeframe)
	}
	log.Printf("fetchSeries | Downloaded %d candles from %s", len(rows), src.Name())

	if store != nil {
		if err := store.SaveCandles(ctx, rows); err != nil {
			return candle.Series{}, fmt.Errorf("fetchSeries | save: %w", err)
		}
	}

	bars := make([]candle.Candle, len(rows))
	for i, r := range rows {
		bars[i] = r.ToCandle()
	}
	return candle.NewSeries(cfg.Symbol, cfg.Timeframe, bars), nil
}

func openStorage(ctx context.Context, cfg config.Config) (db.Storage, error) {
	if err := conf.Migrate(ctx, cfg.DBConnStr); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbConfig, err := conf.NewConfig(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		return nil, err
	}
	store, err := db.New(*dbConfig)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to Postgres/TimescaleDB")
	return store, nil
}
