package decode

import (
	"encoding/json"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"ChatSync/tools/errs"
)

// Options tunes Decode behavior.
type Options struct {
	// WeaklyTypedInput (default true) lets "123" -> int, 1.0 -> int64 etc.,
	// which is what loosely typed browser clients send.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// Map decodes a map[string]any (a parsed frame's data field) into the
// typed payload T. Struct fields bind via `json` tags.
func Map[T any](m map[string]any, opts ...Options) (*T, error) {
	if m == nil {
		return nil, errs.ErrPayloadInvalid.WithDetail("payload is nil")
	}

	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			jsonRawStringToMapHook(),
		),
	}

	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, errs.ErrPayloadInvalid.WrapMsg(err.Error())
	}
	if err := dec.Decode(m); err != nil {
		return nil, errs.ErrPayloadInvalid.WrapMsg(err.Error())
	}
	return &out, nil
}

// floatToIntHook converts float64 (every JSON number) to int kinds.
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}

// jsonRawStringToMapHook turns an embedded JSON string into a map, for
// clients that double-encode nested payloads.
func jsonRawStringToMapHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.Map {
			return data, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(data.(string)), &m); err == nil {
			return m, nil
		}
		return data, nil
	}
}
