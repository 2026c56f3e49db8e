package counter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartsAtZero(t *testing.T) {
	c := New("foo")
	assert.Equal(t, "foo", c.Name)
	assert.Equal(t, int64(0), c.Value)
}

func TestMarshalJSON_SelfKeyed(t *testing.T) {
	tests := []struct {
		name string
		c    Counter
		want string
	}{
		{name: "zero", c: Counter{Name: "foo", Value: 0}, want: `{"foo":0}`},
		{name: "incremented", c: Counter{Name: "fiz", Value: 1}, want: `{"fiz":1}`},
		{name: "quoted name", c: Counter{Name: `a"b`, Value: 7}, want: `{"a\"b":7}`},
		{name: "slash in name", c: Counter{Name: "a/b", Value: 3}, want: `{"a/b":3}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.c)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestBody_SingleEntry(t *testing.T) {
	b := Counter{Name: "raz", Value: 2}.Body()
	require.Len(t, b, 1)
	assert.Equal(t, int64(2), b["raz"])
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "foo"},
		{name: "mixed case", input: "Foo"},
		{name: "inner space", input: "a b"},
		{name: "unicode", input: "café"},
		{name: "empty", input: "", wantErr: true},
		{name: "spaces", input: "   ", wantErr: true},
		{name: "tab and newline", input: "\t\n", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			assert.NoError(t, err)
		})
	}
}
