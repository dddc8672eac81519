package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dira-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeCounter struct {
	counts  map[string]int64
	deleted []string
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

type flakyProcessor struct {
	failures int
	calls    int
}

func (p *flakyProcessor) Process(ctx context.Context, task tasks.ReportTask) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("transient")
	}
	return nil
}

func message(t *testing.T, offset int64, reportID string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(tasks.ReportTask{ReportID: reportID})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func newTestConsumer(src *fakeSource, counter *fakeCounter, p tasks.Processor) *Consumer {
	c := newConsumer(src, counter, p, 3)
	c.retryDelay = time.Millisecond
	return c
}

func TestConsumerCommitsAfterSuccess(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{message(t, 7, "r1")}}
	counter := &fakeCounter{counts: map[string]int64{}}
	p := &flakyProcessor{}

	require.NoError(t, newTestConsumer(src, counter, p).Run(context.Background()))
	assert.Equal(t, []int64{7}, src.committed)
	assert.Equal(t, []string{"kafka:attempts:r1"}, counter.deleted)
	assert.True(t, src.closed)
}

func TestConsumerRetriesTransientFailures(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{message(t, 1, "r1")}}
	counter := &fakeCounter{counts: map[string]int64{}}
	p := &flakyProcessor{failures: 2}

	require.NoError(t, newTestConsumer(src, counter, p).Run(context.Background()))
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []int64{1}, src.committed)
}

func TestConsumerGivesUpAfterMaxAttempts(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{message(t, 4, "r1"), message(t, 5, "r2")}}
	counter := &fakeCounter{counts: map[string]int64{}}
	p := &flakyProcessor{failures: 3}

	require.NoError(t, newTestConsumer(src, counter, p).Run(context.Background()))
	assert.Equal(t, int64(3), counter.counts["kafka:attempts:r1"])
	assert.Equal(t, []int64{4, 5}, src.committed)
	assert.Equal(t, 4, p.calls)
}

func TestConsumerSkipsMalformedMessages(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{{Offset: 9, Value: []byte("{not json")}}}
	counter := &fakeCounter{counts: map[string]int64{}}
	p := &flakyProcessor{}

	require.NoError(t, newTestConsumer(src, counter, p).Run(context.Background()))
	assert.Equal(t, []int64{9}, src.committed)
	assert.Equal(t, 0, p.calls)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(" a:9092, ,b:9092"))
}
