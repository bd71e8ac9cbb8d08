package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"No active account found with the given credentials"}`, "No active account found with the given credentials"},
		{"field lists", `{"username":["A user with that username already exists."],"email":["Enter a valid email address."]}`, "Enter a valid email address. A user with that username already exists."},
		{"non field errors", `{"non_field_errors":["Debes ingresar el precio en USD o el precio final en CLP."]}`, "Debes ingresar el precio en USD o el precio final en CLP."},
		{"nested", `{"detalles":[{"cantidad":["Ensure this value is greater than or equal to 1."]}]}`, "Ensure this value is greater than or equal to 1."},
		{"bare list", `["Something went wrong."]`, "Something went wrong."},
		{"bare string", `"oops"`, "oops"},
		{"numbers", `{"code":42}`, "42"},
		{"empty", ``, ""},
		{"html", `<h1>Bad Gateway</h1>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := errorMessage([]byte(tt.body))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmount(t *testing.T) {
	var v struct {
		A Amount  `json:"a"`
		B Amount  `json:"b"`
		C *Amount `json:"c"`
		D Amount  `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.50","b":3,"c":null,"d":""}`), &v))
	assert.Equal(t, Amount(12.5), v.A)
	assert.Equal(t, Amount(3), v.B)
	assert.Nil(t, v.C)
	assert.Equal(t, Amount(0), v.D)

	out, err := json.Marshal(Amount(7.1))
	require.NoError(t, err)
	assert.Equal(t, `"7.10"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"abc"}`), &v))
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("19.99")
	require.NoError(t, err)
	assert.Equal(t, Amount(19.99), a)

	_, err = ParseAmount("nineteen")
	assert.Error(t, err)
}
