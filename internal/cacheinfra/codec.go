package cacheinfra

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns a value into the opaque bytes a persistent store keeps.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes values with encoding/json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}

// MsgpackCodec encodes values with msgpack.
type MsgpackCodec[T any] struct{}

func (MsgpackCodec[T]) Encode(value T) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (MsgpackCodec[T]) Decode(data []byte) (T, error) {
	var value T
	err := msgpack.Unmarshal(data, &value)
	return value, err
}

// NewCodec resolves a codec by name.
func NewCodec[T any](name string) (Codec[T], error) {
	switch name {
	case CodecJSON:
		return JSONCodec[T]{}, nil
	case CodecMsgpack:
		return MsgpackCodec[T]{}, nil
	default:
		return nil, &ConfigError{Field: "Codec", Message: fmt.Sprintf("unknown codec %q", name)}
	}
}
