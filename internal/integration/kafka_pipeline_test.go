//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/flood-frequency/internal/adapter/kafka"
	"github.com/couchcryptid/flood-frequency/internal/config"
	"github.com/couchcryptid/flood-frequency/internal/domain"
	"github.com/couchcryptid/flood-frequency/internal/observability"
	"github.com/couchcryptid/flood-frequency/internal/pipeline"
	"github.com/couchcryptid/flood-frequency/internal/station"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-raw-gauge-peaks"
	testSinkTopic   = "test-fitted-curves"
)

// gaugePeaks is a small annual-maximum record for one station, in m³/s.
var gaugePeaks = []float64{1540, 980, 1230, 1100, 870, 1370, 1180, 1050, 1310, 920}

func makeGaugeMessages(t *testing.T, stationID string) []kafkago.Message {
	t.Helper()
	msgs := make([]kafkago.Message, 0, len(gaugePeaks))
	for i, flow := range gaugePeaks {
		payload, err := json.Marshal(domain.RawGaugeRecord{
			StationID: stationID,
			WaterYear: strconv.Itoa(1990 + i),
			PeakFlow:  strconv.FormatFloat(flow, 'f', -1, 64),
			Unit:      "m3/s",
		})
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(stationID),
			Value: payload,
		})
	}
	return msgs
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// round-trips a raw gauge record, and kafka.Writer publishes a fitted curve
// that a sink consumer can read back.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Publish a raw gauge record to the source topic.
	msg := makeGaugeMessages(t, "05NB001")[0]

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msg))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("05NB001"), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	// Parse the record.
	parser := pipeline.NewParser(discardLogger())
	obs, err := parser.Parse(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "05NB001", obs.StationID)
	assert.Equal(t, 1990, obs.WaterYear)
	assert.Equal(t, 1540.0, obs.Flow)

	// Publish a fitted curve via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	event := domain.FittedCurveEvent{
		StationID:    "05NB001",
		SampleSize:   10,
		PeriodLength: 10,
		Moments:      domain.CurveParams{Mean: 1155, CV: 0.18, CS: 0.4},
		Fitted:       domain.CurveParams{Mean: 1160, CV: 0.17, CS: 0.38},
		FittedAt:     time.Now().UTC(),
	}
	require.NoError(t, writer.Publish(ctx, event))

	// Read from the sink topic and verify key, headers, and payload.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	sinkMsg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	assert.Equal(t, []byte("05NB001"), sinkMsg.Key)

	headers := make(map[string]string, len(sinkMsg.Headers))
	for _, h := range sinkMsg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "05NB001", headers["station_id"])
	_, err = time.Parse(time.RFC3339, headers["fitted_at"])
	assert.NoError(t, err, "fitted_at should be valid RFC3339")

	var roundtrip domain.FittedCurveEvent
	require.NoError(t, json.Unmarshal(sinkMsg.Value, &roundtrip))
	assert.Equal(t, event.Fitted, roundtrip.Fitted)
	assert.Equal(t, event.SampleSize, roundtrip.SampleSize)
}

// TestIngestPipelineEndToEnd wires the full ingest path (Reader → Parser →
// StoreLoader) with real Kafka and verifies the station store ends up with an
// analyzable record.
func TestIngestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Publish two stations' records, plus one bad row the pipeline must skip.
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := makeGaugeMessages(t, "05NB001")
	msgs = append(msgs, makeGaugeMessages(t, "06090800")...)
	badRow, err := json.Marshal(domain.RawGaugeRecord{
		StationID: "05NB001",
		WaterYear: "2005",
		PeakFlow:  "UNK",
	})
	require.NoError(t, err)
	msgs = append(msgs, kafkago.Message{Key: []byte("05NB001"), Value: badRow})
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the ingest pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	store := station.NewStore()
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewParser(discardLogger()), pipeline.NewStoreLoader(store), discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Poll the store until both stations carry the full record.
	deadline := time.After(90 * time.Second)
	for {
		s1, err1 := store.Snapshot("05NB001")
		s2, err2 := store.Snapshot("06090800")
		if err1 == nil && err2 == nil && s1.PeakCount == len(gaugePeaks) && s2.PeakCount == len(gaugePeaks) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for pipeline to store observations")
		case <-time.After(200 * time.Millisecond):
		}
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.NoError(t, p.CheckReadiness(context.Background()))

	// The bad row was skipped, not stored.
	sum, err := store.Snapshot("05NB001")
	require.NoError(t, err)
	assert.Equal(t, len(gaugePeaks), sum.PeakCount)

	// The stored record supports the analysis chain.
	m, err := store.Moments("05NB001")
	require.NoError(t, err)
	assert.InDelta(t, 1155, m.Mean, 1)
	assert.Greater(t, m.CV, 0.0)

	curve, err := store.Curve("05NB001")
	require.NoError(t, err)
	assert.Greater(t, curve.ValueFromProb(0.01), curve.ValueFromProb(0.99))
}
