// Package codec decodes loosely typed document values into Go structs.
package codec

import (
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// timeLayouts are tried in order when a string is decoded into a metav1.Time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Decode copies a document subtree into output, matching fields by their
// json tags. Scalars are converted weakly, so a version typed as 1.0 still
// decodes into a string field.
func Decode(input, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			StringSliceHookFunc(","),
			MetaTimeHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// StringSliceHookFunc splits strings destined for a []string on sep. Parts
// are trimmed and empty parts dropped, so "Database, Big Data" becomes
// ["Database", "Big Data"].
func StringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return SplitList(data.(string), sep), nil
	}
}

// SplitList splits s on sep, trimming parts and dropping empty ones.
func SplitList(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MetaTimeHookFunc converts timestamps into metav1.Time. Strings may use any
// of timeLayouts; numbers are milliseconds since the epoch.
func MetaTimeHookFunc() mapstructure.DecodeHookFunc {
	return metaTimeHookFunc
}

func metaTimeHookFunc(f, t reflect.Type, data interface{}) (interface{}, error) {
	if t != reflect.TypeOf(metav1.Time{}) {
		return data, nil
	}

	switch f.Kind() {
	case reflect.String:
		tm, err := parseTime(data.(string))
		if err != nil {
			return nil, err
		}
		return metav1.NewTime(tm), nil
	case reflect.Float64:
		return metav1.NewTime(time.UnixMilli(int64(data.(float64))).UTC()), nil
	case reflect.Int64:
		return metav1.NewTime(time.UnixMilli(data.(int64)).UTC()), nil
	}
	return data, nil
}

func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var tm time.Time
		if tm, err = time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}
