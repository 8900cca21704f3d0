package cryptogauge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const defaultGaugeBaseURL = "https://chart.riskprotocol.io/v1/gauge"

type gaugeMetric struct {
	Last          float64 `json:"YTD_last"`
	Percentile0   float64 `json:"YTD_0_percentile"`
	Percentile100 float64 `json:"YTD_100_percentile"`
}

// parseGaugeMetric reads the first entry of df_crypto, the rest is ignored.
func parseGaugeMetric(body []byte) (*gaugeMetric, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", errParseFailure)
	}

	first := gjson.GetBytes(body, "df_crypto.0")
	if !first.IsObject() {
		return nil, fmt.Errorf("%w: df_crypto is missing or empty", errParseFailure)
	}

	metric := &gaugeMetric{}

	fields := []struct {
		key    string
		target *float64
	}{
		{"YTD_last", &metric.Last},
		{"YTD_0_percentile", &metric.Percentile0},
		{"YTD_100_percentile", &metric.Percentile100},
	}

	for _, field := range fields {
		value := first.Get(field.key)
		if value.Type != gjson.Number {
			return nil, fmt.Errorf("%w: %s is missing or not a number", errParseFailure, field.key)
		}

		*field.target = value.Float()
	}

	return metric, nil
}

type gaugeUpstream struct {
	baseURL    string
	credential string
	client     requestDoer
	inflight   singleflight.Group
}

func newGaugeUpstream(config *upstreamConfig) *gaugeUpstream {
	client := defaultHTTPClient
	if config.Timeout > 0 || config.AllowInsecure {
		client = newHTTPClient(time.Duration(config.Timeout), config.AllowInsecure)
	}

	return &gaugeUpstream{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		credential: config.BearerToken,
		client:     client,
	}
}

func (u *gaugeUpstream) gaugeURL(token, period string) string {
	return u.baseURL + "/" + token + "/" + period
}

// fetch collapses concurrent requests for the same token and period into a
// single upstream call. Nothing is kept once the call returns. The shared call
// outlives any one caller, each caller only stops waiting on its own ctx.
func (u *gaugeUpstream) fetch(ctx context.Context, token, period string) (*gaugeMetric, error) {
	start := time.Now()
	shared := context.WithoutCancel(ctx)

	resultChan := u.inflight.DoChan(token+"/"+period, func() (any, error) {
		return u.fetchUncollapsed(shared, token, period)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", errNoContent, ctx.Err())
	case result := <-resultChan:
		if !result.Shared {
			gaugeFetchDuration.Observe(time.Since(start).Seconds())
		}

		if result.Err != nil {
			return nil, result.Err
		}

		return result.Val.(*gaugeMetric), nil
	}
}

func (u *gaugeUpstream) fetchUncollapsed(ctx context.Context, token, period string) (*gaugeMetric, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u.gaugeURL(token, period), nil)
	if err != nil {
		gaugeFetchTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("%w: %v", errNoContent, err)
	}

	setUserAgentHeader(request)
	if u.credential != "" {
		request.Header.Set("Authorization", "Bearer "+u.credential)
	}

	body, err := readBodyFromRequest(u.client, request)
	if err != nil {
		gaugeFetchTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("%w: %v", errNoContent, err)
	}

	metric, err := parseGaugeMetric(body)
	if err != nil {
		gaugeFetchTotal.WithLabelValues("parse_error").Inc()
		return nil, err
	}

	gaugeFetchTotal.WithLabelValues("success").Inc()
	slog.Debug("Fetched gauge data", "token", token, "period", period, "value", metric.Last)

	return metric, nil
}
