package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/optimization"
)

func TestMinExposureDecoding(t *testing.T) {
	var req OptimizeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"tickers":["AAA"],"min_exposure":0.05}`), &req))
	require.NotNil(t, req.MinExposure)
	require.NotNil(t, req.MinExposure.Scalar)
	assert.InDelta(t, 0.05, *req.MinExposure.Scalar, 1e-12)
	assert.Nil(t, req.MinExposure.PerAsset)

	req = OptimizeRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"min_exposure":[0.1,0.2]}`), &req))
	require.NotNil(t, req.MinExposure)
	assert.Nil(t, req.MinExposure.Scalar)
	assert.Equal(t, []float64{0.1, 0.2}, req.MinExposure.PerAsset)

	req = OptimizeRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"min_exposure":null}`), &req))
	assert.Nil(t, req.MinExposure)

	req = OptimizeRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.Nil(t, req.MinExposure)

	err := json.Unmarshal([]byte(`{"min_exposure":"lots"}`), &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_exposure must be a number")
}

func TestViewRequestToView(t *testing.T) {
	view, err := ViewRequest{Assets: []string{"aapl", "msft"}, Value: 0.08, Type: "absolute"}.toView()
	require.NoError(t, err)
	assert.Equal(t, optimization.ViewAbsolute, view.Kind)
	assert.Equal(t, []string{"AAPL", "MSFT"}, view.Assets)
	assert.InDelta(t, optimization.DefaultViewConfidence, view.Confidence, 1e-12)

	view, err = ViewRequest{Assets: []string{"AAPL"}, Value: 0.08, Type: "absolute", Confidence: 0.8}.toView()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, view.Confidence, 1e-12)

	view, err = ViewRequest{Assets: []string{"AAPL", "MSFT"}, Value: 0.02, Type: "relative"}.toView()
	require.NoError(t, err)
	assert.Equal(t, optimization.ViewRelative, view.Kind)
	assert.Equal(t, "AAPL", view.AssetA)
	assert.Equal(t, "MSFT", view.AssetB)

	var validationErr *domain.ValidationError

	_, err = ViewRequest{Assets: []string{"AAPL"}, Value: 0.02, Type: "relative"}.toView()
	assert.ErrorAs(t, err, &validationErr)

	_, err = ViewRequest{Assets: []string{"AAPL", "MSFT", "GOOG"}, Value: 0.02, Type: "relative"}.toView()
	assert.ErrorAs(t, err, &validationErr)

	_, err = ViewRequest{Assets: []string{"AAPL"}, Value: 0.02, Type: "momentum"}.toView()
	assert.ErrorAs(t, err, &validationErr)

	_, err = ViewRequest{Value: 0.02, Type: "absolute"}.toView()
	assert.ErrorAs(t, err, &validationErr)
}
