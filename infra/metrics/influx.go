package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/helperlink/dispatch/core/metrics"
	"github.com/helperlink/dispatch/infra/logger"
)

// InfluxSink writes broadcast rounds to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails, so a down metrics store never blocks dispatch.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.BroadcastSink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordBroadcast writes the round as a line-protocol point.
func (s *InfluxSink) RecordBroadcast(rec coremetrics.BroadcastRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("broadcast_round").
		AddTag("request_id", rec.RequestID).
		AddTag("category_id", rec.CategoryID).
		AddTag("urgency", rec.Urgency).
		AddTag("fallback", strconv.FormatBool(rec.Fallback)).
		AddField("round_id", rec.RoundID).
		AddField("candidates", rec.Candidates).
		AddField("notified", rec.Notified).
		AddField("score_mean", round3(rec.Scores.Mean)).
		AddField("score_stddev", round3(rec.Scores.StdDev)).
		AddField("score_max", round3(rec.Scores.Max)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
