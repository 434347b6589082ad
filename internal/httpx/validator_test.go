package httpx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testInput struct {
	Title   string `json:"title" validate:"required,notblank,max=10"`
	Comment string `json:"comment,omitempty" validate:"omitempty,max=5"`
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.Nil(t, ValidateStruct(testInput{Title: "Dune"}))
	assert.Nil(t, ValidateStruct(&testInput{Title: "Dune", Comment: "ok"}))
}

func TestValidateStruct_Required(t *testing.T) {
	details := ValidateStruct(testInput{})
	require.Len(t, details, 1)
	assert.Equal(t, "title", details[0].Field)
	assert.Contains(t, details[0].Message, "required")
}

func TestValidateStruct_NotBlank(t *testing.T) {
	details := ValidateStruct(testInput{Title: " \t "})
	require.Len(t, details, 1)
	assert.Equal(t, "title must not be blank", details[0].Message)
}

func TestValidateStruct_Max(t *testing.T) {
	details := ValidateStruct(testInput{Title: strings.Repeat("x", 11), Comment: "too long"})
	require.Len(t, details, 2)
	assert.Equal(t, "title", details[0].Field)
	assert.Contains(t, details[0].Message, "at most 10")
	assert.Equal(t, "comment", details[1].Field)
}
