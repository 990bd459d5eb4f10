package servekit

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// Validate checks the options and reports problems as a validation error
// whose params map every offending field to the failed rule.
func (o FileServeOptions) Validate() error {
	fields := Params{}

	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return New(KindValidation, "file serve options are invalid", WithCause(err))
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}

	if strings.ContainsRune(o.Path, 0) {
		fields["Path"] = "null byte in path"
	}

	if o.Start != nil && o.End != nil && *o.End < *o.Start {
		fields["End"] = "gtefield=Start"
	}

	if len(fields) > 0 {
		return New(KindValidation, "file serve options are invalid", WithParams(Params{"fields": fields}))
	}

	return nil
}

// DecodeFileServeOptions builds options from a loosely typed map such as a
// decoded JSON object. Unset keys keep their defaults. "maxage" accepts a
// duration string ("1h", "30m") or a number of milliseconds; "path" is
// percent-decoded.
func DecodeFileServeOptions(raw map[string]any) (FileServeOptions, error) {
	opts := DefaultFileServeOptions()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result: &opts,
	})
	if err != nil {
		return FileServeOptions{}, New(KindGeneral, "create options decoder", WithCause(err))
	}

	if err := decoder.Decode(raw); err != nil {
		return FileServeOptions{}, New(KindValidation, "decode file serve options", WithCause(err))
	}

	decoded, err := url.PathUnescape(opts.Path)
	if err != nil {
		return FileServeOptions{}, New(KindValidation, "decode file serve options",
			WithCause(err), WithParams(Params{"fields": Params{"Path": "invalid escape"}}))
	}
	opts.Path = decoded

	if err := opts.Validate(); err != nil {
		return FileServeOptions{}, err
	}

	return opts, nil
}

func millisecondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	durationType := reflect.TypeOf(time.Duration(0))
	if to != durationType || from == durationType {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	default:
		return data, nil
	}
}
