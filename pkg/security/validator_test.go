package security

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	FullName string `validate:"required,min=3"`
	USN      string `validate:"required,usn"`
	IDCard   string `validate:"required,imageref"`
}

func TestRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerOn(v, "4vm"))

	t.Run("valid form", func(t *testing.T) {
		err := v.Struct(signupForm{FullName: "Jane Doe", USN: " 4vm21cs001 ", IDCard: "https://cdn.example.com/id.png"})
		assert.NoError(t, err)
	})

	t.Run("data uri accepted", func(t *testing.T) {
		err := v.Struct(signupForm{FullName: "Jane Doe", USN: "4VM21CS001", IDCard: "data:image/png;base64,iVBORw0KGgo="})
		assert.NoError(t, err)
	})

	t.Run("field messages", func(t *testing.T) {
		err := v.Struct(signupForm{FullName: "Jo", USN: "1AB21CS001", IDCard: "not a url"})
		require.Error(t, err)
		msg := Describe(err)
		assert.Contains(t, msg, "FullName must be at least 3 characters")
		assert.Contains(t, msg, "USN must start with the campus prefix")
		assert.Contains(t, msg, "IDCard must be an image URL or data URI")
	})
}

func TestValidUSN(t *testing.T) {
	assert.True(t, ValidUSN("4VM21CS001", "4VM"))
	assert.False(t, ValidUSN("4VM", "4VM"))
	assert.False(t, ValidUSN("", "4VM"))
}

func TestValidImageRef(t *testing.T) {
	assert.True(t, ValidImageRef("http://a.b/c.jpg"))
	assert.False(t, ValidImageRef("ftp://a.b/c.jpg"))
	assert.False(t, ValidImageRef("data:text/plain;base64,AAAA"))
	assert.False(t, ValidImageRef("   "))
}
