// Package stream decodes DynamoDB Streams records into mapped Go types.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nisimpson/dynacodec"
)

// Event names carried by stream records.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// ToAttributeValue converts a stream attribute value to the SDK attribute model.
func ToAttributeValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return dynacodec.Null, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, len(list))
		for i, elem := range list {
			av, err := ToAttributeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := ToItem(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported stream attribute type %v", v.DataType())
}

// ToItem converts a stream image to an item. A nil image yields a nil item.
func ToItem(image map[string]events.DynamoDBAttributeValue) (dynacodec.Item, error) {
	if image == nil {
		return nil, nil
	}
	item := make(dynacodec.Item, len(image))
	for name, v := range image {
		av, err := ToAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

// Change is a decoded stream record. Old and New are nil when the stream view
// does not include the corresponding image.
type Change[T any] struct {
	EventID        string
	EventName      string
	SequenceNumber string
	Keys           dynacodec.Item
	Old            *T
	New            *T
}

// Handler decodes stream records into changes of T and passes them to a callback.
type Handler[T any] struct {
	store  *dynacodec.Store
	logger *slog.Logger
	fn     func(context.Context, Change[T]) error
}

// NewHandler creates a new stream handler. A nil store uses the default store and
// a nil logger uses slog.Default().
func NewHandler[T any](s *dynacodec.Store, logger *slog.Logger, fn func(context.Context, Change[T]) error) *Handler[T] {
	if s == nil {
		s = dynacodec.DefaultStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[T]{
		store:  s,
		logger: logger,
		fn:     fn,
	}
}

// Decode converts a single record into a change.
func (h *Handler[T]) Decode(record events.DynamoDBEventRecord) (Change[T], error) {
	change := Change[T]{
		EventID:        record.EventID,
		EventName:      record.EventName,
		SequenceNumber: record.Change.SequenceNumber,
	}

	keys, err := ToItem(record.Change.Keys)
	if err != nil {
		return change, fmt.Errorf("keys: %w", err)
	}
	change.Keys = keys

	if change.Old, err = h.image(record.Change.OldImage); err != nil {
		return change, fmt.Errorf("old image: %w", err)
	}
	if change.New, err = h.image(record.Change.NewImage); err != nil {
		return change, fmt.Errorf("new image: %w", err)
	}
	return change, nil
}

func (h *Handler[T]) image(image map[string]events.DynamoDBAttributeValue) (*T, error) {
	if len(image) == 0 {
		return nil, nil
	}
	item, err := ToItem(image)
	if err != nil {
		return nil, err
	}
	var v T
	if err := h.store.UnmarshalItem(item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Handle processes the records of event in order and stops at the first failure,
// so the batch is retried from that record. It is designed to be used as an AWS
// Lambda handler.
func (h *Handler[T]) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.process(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// HandleBatch processes the records of event and reports the first failed record
// as a partial batch failure. Processing stops there; the stream retries from the
// lowest reported sequence number.
func (h *Handler[T]) HandleBatch(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse
	for _, record := range event.Records {
		if err := h.process(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"error", err,
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: record.Change.SequenceNumber,
			})
			break
		}
	}
	return resp, nil
}

func (h *Handler[T]) process(ctx context.Context, record events.DynamoDBEventRecord) error {
	change, err := h.Decode(record)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	h.logger.Debug("processing record",
		"eventID", change.EventID,
		"eventName", change.EventName,
	)
	return h.fn(ctx, change)
}
