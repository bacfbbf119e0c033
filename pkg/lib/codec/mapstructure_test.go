package codec

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestMetaTimeHookFunc(t *testing.T) {
	type args struct {
		fromType, toType reflect.Type
		data             interface{}
	}
	type expected struct {
		converted interface{}
		err       bool
	}
	tests := []struct {
		description string
		args        args
		expected    expected
	}{
		{
			description: "StringToUnsupported/Passthrough",
			args: args{
				fromType: reflect.TypeOf(""),
				toType:   reflect.TypeOf(0),
				data:     "2019-02-13T18:00:00Z",
			},
			expected: expected{converted: "2019-02-13T18:00:00Z"},
		},
		{
			description: "BoolToTime/Passthrough",
			args: args{
				fromType: reflect.TypeOf(true),
				toType:   reflect.TypeOf(metav1.Time{}),
				data:     true,
			},
			expected: expected{converted: true},
		},
		{
			description: "RFC3339ToTime/Converts",
			args: args{
				fromType: reflect.TypeOf(""),
				toType:   reflect.TypeOf(metav1.Time{}),
				data:     "2019-02-13T18:00:00Z",
			},
			expected: expected{converted: metav1.NewTime(time.Date(2019, 2, 13, 18, 0, 0, 0, time.UTC))},
		},
		{
			description: "DateToTime/Converts",
			args: args{
				fromType: reflect.TypeOf(""),
				toType:   reflect.TypeOf(metav1.Time{}),
				data:     "2019-02-13",
			},
			expected: expected{converted: metav1.NewTime(time.Date(2019, 2, 13, 0, 0, 0, 0, time.UTC))},
		},
		{
			description: "MillisToTime/Converts",
			args: args{
				fromType: reflect.TypeOf(float64(0)),
				toType:   reflect.TypeOf(metav1.Time{}),
				data:     float64(1000),
			},
			expected: expected{converted: metav1.NewTime(time.Unix(1, 0).UTC())},
		},
		{
			description: "InvalidStringToTime/Errors",
			args: args{
				fromType: reflect.TypeOf(""),
				toType:   reflect.TypeOf(metav1.Time{}),
				data:     "last tuesday",
			},
			expected: expected{err: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			converted, err := metaTimeHookFunc(tt.args.fromType, tt.args.toType, tt.args.data)
			if tt.expected.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected.converted, converted)
		})
	}
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"Database", "Big Data"}, SplitList("Database, Big Data,", ","))
	require.Equal(t, []string{}, SplitList("  ", ","))
}

func TestDecode(t *testing.T) {
	type annotations struct {
		Categories []string     `json:"categories"`
		CreatedAt  *metav1.Time `json:"createdAt,omitempty"`
		Certified  string       `json:"certified"`
	}

	var out annotations
	err := Decode(map[string]interface{}{
		"categories": "Database, Big Data",
		"createdAt":  "2019-02-13 18:00:00",
		"certified":  "false",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, []string{"Database", "Big Data"}, out.Categories)
	require.NotNil(t, out.CreatedAt)
	require.Equal(t, 18, out.CreatedAt.UTC().Hour())
	require.Equal(t, "false", out.Certified)

	var native annotations
	require.NoError(t, Decode(map[string]interface{}{
		"categories": []interface{}{"Storage"},
	}, &native))
	require.Equal(t, []string{"Storage"}, native.Categories)

	require.Error(t, Decode(map[string]interface{}{"createdAt": "soon"}, &annotations{}))
}
