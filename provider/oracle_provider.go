package provider

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/httpclient"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
)

// HTTPOracle implements providers.PriceOracle against a Hermes-style price
// feed API.
type HTTPOracle struct {
	client *httpclient.Client
	logger zerolog.Logger
}

// NewHTTPOracle creates a new HTTP-backed price oracle
func NewHTTPOracle(client *httpclient.Client, logger zerolog.Logger) *HTTPOracle {
	return &HTTPOracle{
		client: client,
		logger: logger.With().Str("component", "oracle_provider").Logger(),
	}
}

type hermesPrice struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime uint64 `json:"publish_time"`
}

type hermesFeed struct {
	ID    string      `json:"id"`
	Price hermesPrice `json:"price"`
}

type hermesResponse struct {
	Parsed []hermesFeed `json:"parsed"`
}

// GetPriceUnsafe fetches the latest price for a feed without any staleness
// check. The value is consumed as entropy, not as a trade price.
func (o *HTTPOracle) GetPriceUnsafe(ctx context.Context, feedID string) (providers.PriceQuote, error) {
	path := fmt.Sprintf("/v2/updates/price/latest?ids[]=%s&parsed=true", feedID)

	var resp hermesResponse
	if err := o.client.GetJSON(ctx, path, nil, &resp); err != nil {
		o.logger.Error().Err(err).Str("feed_id", feedID).Msg("Price fetch failed")
		return providers.PriceQuote{}, errors.Wrap(err, errors.ErrOracleError, "price fetch failed")
	}
	if len(resp.Parsed) == 0 {
		return providers.PriceQuote{}, errors.Newf(errors.ErrOracleError, "no price for feed %s", feedID)
	}

	raw := resp.Parsed[0].Price
	price, err := strconv.ParseInt(raw.Price, 10, 64)
	if err != nil {
		return providers.PriceQuote{}, errors.Wrap(err, errors.ErrOracleError, "malformed price")
	}
	conf, err := strconv.ParseUint(raw.Conf, 10, 64)
	if err != nil {
		return providers.PriceQuote{}, errors.Wrap(err, errors.ErrOracleError, "malformed conf")
	}

	return providers.PriceQuote{
		Price:       price,
		Conf:        conf,
		Expo:        raw.Expo,
		PublishTime: raw.PublishTime,
	}, nil
}

// StaticOracle is a providers.PriceOracle for development and tests. Each
// read bumps the publish time so successive randomness refreshes differ.
type StaticOracle struct {
	Quote providers.PriceQuote
	reads atomic.Uint64
}

// NewStaticOracle creates a static oracle seeded with a fixed quote
func NewStaticOracle(quote providers.PriceQuote) *StaticOracle {
	return &StaticOracle{Quote: quote}
}

func (o *StaticOracle) GetPriceUnsafe(ctx context.Context, feedID string) (providers.PriceQuote, error) {
	n := o.reads.Add(1)
	q := o.Quote
	q.PublishTime += n
	return q, nil
}
