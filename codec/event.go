// Package codec encodes and decodes events and merged-log records.
//
// Every record is msgpack. An event is an envelope of metadata plus opaque
// payload bytes; the payload is decompressed per the metadata encoding and
// then decoded into the variant named by the payload type.
package codec

import (
	"fmt"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/joinery/types"
)

type metadataWire struct {
	ID              string  `msgpack:"id"`
	ClientTimeUTC   *int64  `msgpack:"client_time_utc,omitempty"`
	PayloadType     uint8   `msgpack:"payload_type"`
	Encoding        uint8   `msgpack:"encoding"`
	PassProbability float32 `msgpack:"pass_probability"`
	AppID           string  `msgpack:"app_id,omitempty"`
}

type eventWire struct {
	Meta    metadataWire `msgpack:"meta"`
	Payload []byte       `msgpack:"payload"`
}

// metadataProbe decodes only the envelope metadata.
type metadataProbe struct {
	Meta metadataWire `msgpack:"meta"`
}

// Wire times are Unix nanoseconds; an absent value is the zero time.
var (
	minWireTime = time.Unix(0, math.MinInt64)
	maxWireTime = time.Unix(0, math.MaxInt64)
)

func toWireTime(t time.Time) (*int64, error) {
	if t.IsZero() {
		return nil, nil
	}
	if t.Before(minWireTime) || t.After(maxWireTime) {
		return nil, fmt.Errorf("time %s outside the representable range", t.Format(time.RFC3339))
	}
	n := t.UnixNano()
	return &n, nil
}

func fromWireTime(n *int64) time.Time {
	if n == nil {
		return time.Time{}
	}
	return time.Unix(0, *n).UTC()
}

func (m metadataWire) toMetadata() types.Metadata {
	return types.Metadata{
		ID:              m.ID,
		ClientTimeUTC:   fromWireTime(m.ClientTimeUTC),
		PayloadType:     types.PayloadType(m.PayloadType),
		Encoding:        types.Encoding(m.Encoding),
		PassProbability: m.PassProbability,
		AppID:           m.AppID,
	}
}

// EncodeEvent encodes an event, compressing its payload when the metadata
// encoding is Zstd. The metadata payload type is taken from the payload.
func EncodeEvent(ev *types.Event) ([]byte, error) {
	if ev.Payload == nil {
		return nil, fmt.Errorf("event %q has no payload", ev.Meta.ID)
	}
	body, err := msgpack.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", ev.Payload.PayloadType(), err)
	}

	switch ev.Meta.Encoding {
	case types.EncodingIdentity:
	case types.EncodingZstd:
		if body, err = compress(body); err != nil {
			return nil, fmt.Errorf("failed to compress payload: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %s", ev.Meta.Encoding)
	}

	clientTime, err := toWireTime(ev.Meta.ClientTimeUTC)
	if err != nil {
		return nil, fmt.Errorf("event %q client time: %w", ev.Meta.ID, err)
	}
	wire := eventWire{
		Meta: metadataWire{
			ID:              ev.Meta.ID,
			ClientTimeUTC:   clientTime,
			PayloadType:     uint8(ev.Payload.PayloadType()),
			Encoding:        uint8(ev.Meta.Encoding),
			PassProbability: ev.Meta.PassProbability,
			AppID:           ev.Meta.AppID,
		},
		Payload: body,
	}
	return msgpack.Marshal(&wire)
}

// PeekMetadata decodes only the metadata of an encoded event. The payload
// is neither decompressed nor interpreted.
func PeekMetadata(raw []byte) (*types.Metadata, error) {
	var probe metadataProbe
	if err := msgpack.Unmarshal(raw, &probe); err != nil {
		return nil, &DecodeError{What: "event metadata", Err: err}
	}
	meta := probe.Meta.toMetadata()
	return &meta, nil
}

// DecodeEvent decodes an event and its payload variant.
//
// Errors:
//   - *UnknownPayloadTypeError: payload tag outside the closed set
//   - *DecodeError: malformed envelope, unknown encoding, bad compression,
//     or a payload that does not decode as its tagged variant
func DecodeEvent(raw []byte) (*types.Event, error) {
	var wire eventWire
	if err := msgpack.Unmarshal(raw, &wire); err != nil {
		return nil, &DecodeError{What: "event", Err: err}
	}
	meta := wire.Meta.toMetadata()

	body := wire.Payload
	switch meta.Encoding {
	case types.EncodingIdentity:
	case types.EncodingZstd:
		var err error
		if body, err = decompress(body); err != nil {
			return nil, &DecodeError{What: "zstd payload of event " + meta.ID, Err: err}
		}
	default:
		return nil, &DecodeError{What: "event " + meta.ID, Err: fmt.Errorf("unknown encoding %d", uint8(meta.Encoding))}
	}

	payload, err := decodePayload(meta, body)
	if err != nil {
		return nil, err
	}
	return &types.Event{Meta: meta, Payload: payload}, nil
}

func decodePayload(meta types.Metadata, body []byte) (types.Payload, error) {
	var payload types.Payload
	switch meta.PayloadType {
	case types.PayloadTypeCb:
		payload = &types.CbPayload{}
	case types.PayloadTypeMultiStep:
		payload = &types.MultiStepPayload{}
	case types.PayloadTypeOutcome:
		payload = &types.OutcomePayload{}
	case types.PayloadTypeDedupInfo:
		payload = &types.DedupInfoPayload{}
	case types.PayloadTypeCa:
		payload = &types.CaPayload{}
	case types.PayloadTypeMultiSlot:
		payload = &types.MultiSlotPayload{}
	default:
		return nil, &UnknownPayloadTypeError{PayloadType: meta.PayloadType, ID: meta.ID}
	}
	if err := msgpack.Unmarshal(body, payload); err != nil {
		return nil, &DecodeError{What: meta.PayloadType.String() + " payload of event " + meta.ID, Err: err}
	}
	return payload, nil
}
