package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewBody struct {
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"notblank,max=5000"`
	UserEmail string `json:"user_email" validate:"omitempty,email"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(reviewBody{Rating: 4, Comment: "solid service"}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{Rating: 9, Comment: "ok"}))
	assert.Equal(t, "must be at most 5", fields["rating"])
}

func TestValidate_NotBlank(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{Rating: 3, Comment: "   "}))
	assert.Equal(t, "is required", fields["comment"])
}

func TestValidate_Email(t *testing.T) {
	fields := fieldsOf(t, Validate(reviewBody{Rating: 3, Comment: "fine", UserEmail: "nope"}))
	assert.Equal(t, "must be a valid email address", fields["user_email"])
}

func TestValidate_MultipleErrors(t *testing.T) {
	err := Validate(reviewBody{})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "rating")
	assert.Contains(t, fields, "comment")
	assert.Contains(t, err.Error(), "field 'rating'")
}

type stringBounds struct {
	Title string `json:"title" validate:"min=3,max=5"`
}

func TestValidate_StringBounds(t *testing.T) {
	assert.Contains(t, fieldsOf(t, Validate(stringBounds{Title: "ab"}))["title"], "at least 3 characters")
	assert.Contains(t, fieldsOf(t, Validate(stringBounds{Title: "abcdefg"}))["title"], "at most 5 characters")
}

type decisionBody struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

func TestValidate_OneOf(t *testing.T) {
	assert.Equal(t, "must be one of: approve reject", fieldsOf(t, Validate(decisionBody{Decision: "maybe"}))["decision"])
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"decision":"approve"}`))
	var body decisionBody
	require.NoError(t, DecodeAndValidate(req, &body))
	assert.Equal(t, "approve", body.Decision)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{broken"))
	err := DecodeAndValidate(req, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"decision":"later"}`))
	var invalid decisionBody
	var valErr *ValidationError
	assert.ErrorAs(t, DecodeAndValidate(req, &invalid), &valErr)
}
