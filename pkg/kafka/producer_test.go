package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_NoBrokers(t *testing.T) {
	assert.Nil(t, NewProducer(nil))
	assert.Nil(t, NewProducer([]string{}))
}

func TestProducer_WriterPerTopic(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"})
	require.NotNil(t, p)

	w1 := p.writerForTopic("maintenance.audit")
	w2 := p.writerForTopic("maintenance.audit")
	w3 := p.writerForTopic("maintenance.other")

	assert.Same(t, w1, w2, "同一 topic 应复用 Writer")
	assert.NotSame(t, w1, w3)
	assert.Equal(t, "maintenance.audit", w1.Topic)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}
