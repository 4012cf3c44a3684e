package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func TestNewAbsoluteView(t *testing.T) {
	view, err := NewAbsoluteView([]string{" voo ", "gld"}, 0.12, 0.7)
	require.NoError(t, err)

	assert.Equal(t, ViewAbsolute, view.Kind)
	assert.Equal(t, []string{"VOO", "GLD"}, view.Assets, "symbols are trimmed and uppercased")
	assert.Equal(t, 0.12, view.Value)
	assert.Equal(t, 0.7, view.Confidence)
}

func TestNewAbsoluteView_DefaultConfidence(t *testing.T) {
	view, err := NewAbsoluteView([]string{"VOO"}, 0.10, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultViewConfidence, view.Confidence)
}

func TestNewAbsoluteView_Validation(t *testing.T) {
	var validationErr *domain.ValidationError

	_, err := NewAbsoluteView(nil, 0.10, 0.5)
	require.ErrorAs(t, err, &validationErr, "an asset is required")

	_, err = NewAbsoluteView([]string{"VOO", "  "}, 0.10, 0.5)
	require.ErrorAs(t, err, &validationErr, "blank symbols are rejected")

	_, err = NewAbsoluteView([]string{"VOO", "voo"}, 0.10, 0.5)
	require.ErrorAs(t, err, &validationErr, "duplicates are rejected after normalization")

	_, err = NewAbsoluteView([]string{"VOO"}, 0.10, 1.5)
	require.ErrorAs(t, err, &validationErr, "confidence above 1 is rejected")

	_, err = NewAbsoluteView([]string{"VOO"}, 0.10, -0.1)
	require.ErrorAs(t, err, &validationErr, "negative confidence is rejected")
}

func TestNewRelativeView(t *testing.T) {
	view, err := NewRelativeView("voo", " gld ", 0.05, 1.0)
	require.NoError(t, err)

	assert.Equal(t, ViewRelative, view.Kind)
	assert.Equal(t, "VOO", view.AssetA)
	assert.Equal(t, "GLD", view.AssetB)
	assert.Equal(t, 0.05, view.Value)
	assert.Equal(t, 1.0, view.Confidence)
}

func TestNewRelativeView_Validation(t *testing.T) {
	var validationErr *domain.ValidationError

	_, err := NewRelativeView("", "GLD", 0.05, 0.5)
	require.ErrorAs(t, err, &validationErr)

	_, err = NewRelativeView("VOO", "voo", 0.05, 0.5)
	require.ErrorAs(t, err, &validationErr, "a view against itself is meaningless")
}

func TestViewMembers(t *testing.T) {
	absolute, err := NewAbsoluteView([]string{"VOO", "QQQ"}, 0.10, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"VOO", "QQQ"}, absolute.members())

	relative, err := NewRelativeView("VOO", "GLD", 0.05, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"VOO", "GLD"}, relative.members())
}
