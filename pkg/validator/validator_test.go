package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createEventRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body" validate:"max=5000"`
	Tone  string   `json:"tone" validate:"omitempty,oneof=happy neutral sad"`
	Links []string `json:"links" validate:"dive,url"`
}

func TestValidate_Valid(t *testing.T) {
	req := createEventRequest{Title: "first bike ride", Tone: "happy"}
	assert.NoError(t, Validate(req))
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(createEventRequest{})
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Title")
	assert.Equal(t, "is required", fields["Title"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(createEventRequest{Title: "x", Tone: "angry"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestDecodeAndValidate_Valid(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"picnic"}`))
	var dst createEventRequest
	require.NoError(t, DecodeAndValidate(r, &dst))
	assert.Equal(t, "picnic", dst.Title)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":`))
	var dst createEventRequest
	err := DecodeAndValidate(r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_FailsValidation(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"body":"no title"}`))
	var dst createEventRequest
	err := DecodeAndValidate(r, &dst)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}
