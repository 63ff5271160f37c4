package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_PublishKeysByCapacity(t *testing.T) {
	capacityID := uuid.New()
	holdID := uuid.New()
	event := NewEvent(EventHoldAcquired, uuid.New(), capacityID, 3, time.Now().UTC()).WithHold(holdID, 2)

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != capacityID.String() {
			return errors.New("unexpected partition key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded Event
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		if decoded.Seats != 2 || decoded.HoldID == nil || *decoded.HoldID != holdID {
			return errors.New("payload does not carry the hold")
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "inventory-events")
	require.NoError(t, pub.Publish(context.Background(), event))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "inventory-events")
	err := pub.Publish(context.Background(), NewEvent(EventHoldReleased, uuid.New(), uuid.New(), 1, time.Now()))

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestRecorder_OfType(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	_ = rec.Publish(ctx, NewEvent(EventHoldAcquired, uuid.Nil, uuid.Nil, 1, time.Now()))
	_ = rec.Publish(ctx, NewEvent(EventHoldReleased, uuid.Nil, uuid.Nil, 2, time.Now()))
	_ = rec.Publish(ctx, NewEvent(EventHoldAcquired, uuid.Nil, uuid.Nil, 3, time.Now()))

	assert.Len(t, rec.Events(), 3)
	assert.Len(t, rec.OfType(EventHoldAcquired), 2)
	assert.Empty(t, rec.OfType(EventStatusChanged))
}
