package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestKafkaRunSink_PublishKeyedByRunID(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewKafkaRunSink(pub, "market.runs")

	require.NoError(t, sink.Publish(context.Background(), sampleRun("r-1")))
	assert.Equal(t, "market.runs", pub.topic)
	assert.Equal(t, []byte("r-1"), pub.key)

	msg, ok := pub.value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, msg["ok_count"])
	assert.Equal(t, "2024-03-01 09:00:00", msg["timestamp_local"])

	require.NoError(t, sink.Close())
	assert.True(t, pub.closed)
}

func TestKafkaRunSink_WrapsError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	err := NewKafkaRunSink(pub, "t").Publish(context.Background(), sampleRun("r-2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r-2")
}

func TestClickHouseRunSink_InsertStatement(t *testing.T) {
	sink := &ClickHouseRunSink{table: DefaultRunTable}
	q, args := sink.insertStatement(sampleRun("r-3"))

	assert.True(t, strings.HasPrefix(q, "INSERT INTO market_runs (run_id, ts, asset"))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 20)
	// rows are ordered by asset name
	assert.Equal(t, "BTC", args[2])
	assert.Equal(t, uint8(0), args[4])
	assert.Equal(t, "USDJPY", args[12])
	assert.Equal(t, 150.25, args[13])
	assert.Equal(t, uint8(1), args[14])
}

func TestClickHouseRunSink_EmptyRecordIsNoop(t *testing.T) {
	sink := NewClickHouseRunSink(nil, "")
	assert.NoError(t, sink.Publish(context.Background(), nil))
	assert.Equal(t, "clickhouse", sink.Name())
}

func TestRunTableDDL(t *testing.T) {
	ddl := RunTableDDL("runs")
	require.Len(t, ddl, 1)
	assert.Contains(t, ddl[0], "CREATE TABLE IF NOT EXISTS runs")
}
