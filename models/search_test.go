package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFeatureKeys = []string{
	FeaturePriceHistory,
	FeaturePricePrediction,
	FeatureReviewQuality,
	FeatureLoyaltyScan,
	FeatureSellerRiskFilter,
	FeatureStockAlerts,
	FeatureImageBarcodeMode,
	FeaturePriceMatch,
}

func TestDefaultFeatures(t *testing.T) {
	f := DefaultFeatures()

	assert.True(t, f.PriceHistory)
	assert.True(t, f.ReviewQuality)
	assert.True(t, f.SellerRiskFilter)

	assert.False(t, f.PricePrediction)
	assert.False(t, f.LoyaltyScan)
	assert.False(t, f.StockAlerts)
	assert.False(t, f.ImageBarcodeMode)
	assert.False(t, f.PriceMatch)

	assert.Len(t, f.Enabled(), 3)
}

func TestToggleDoubleReturnsOriginal(t *testing.T) {
	for _, key := range allFeatureKeys {
		original := DefaultFeatures()
		f := original

		require.True(t, f.Toggle(key), key)
		assert.NotEqual(t, original, f, "single toggle of %s must change the mapping", key)

		require.True(t, f.Toggle(key), key)
		assert.Equal(t, original, f, "double toggle of %s must restore the mapping", key)
	}
}

func featureMap(f OptionalFeatures) map[string]bool {
	return map[string]bool{
		FeaturePriceHistory:     f.PriceHistory,
		FeaturePricePrediction:  f.PricePrediction,
		FeatureReviewQuality:    f.ReviewQuality,
		FeatureLoyaltyScan:      f.LoyaltyScan,
		FeatureSellerRiskFilter: f.SellerRiskFilter,
		FeatureStockAlerts:      f.StockAlerts,
		FeatureImageBarcodeMode: f.ImageBarcodeMode,
		FeaturePriceMatch:       f.PriceMatch,
	}
}

func TestToggleAffectsOnlyItsKey(t *testing.T) {
	before := featureMap(DefaultFeatures())

	for _, key := range allFeatureKeys {
		f := DefaultFeatures()
		require.True(t, f.Toggle(key))

		for k, v := range featureMap(f) {
			if k == key {
				assert.NotEqual(t, before[k], v, "toggle of %s must flip it", key)
			} else {
				assert.Equal(t, before[k], v, "toggle of %s leaked into %s", key, k)
			}
		}
	}
}

func TestToggleUnknownKey(t *testing.T) {
	f := DefaultFeatures()
	before := f

	assert.False(t, f.Toggle("warp_drive"))
	assert.Equal(t, before, f)
}

func TestEnabledListsKeysInToggleOrder(t *testing.T) {
	f := OptionalFeatures{PricePrediction: true, StockAlerts: true, PriceMatch: true}
	assert.Equal(t, []string{FeaturePricePrediction, FeatureStockAlerts, FeaturePriceMatch}, f.Enabled())

	assert.Nil(t, OptionalFeatures{}.Enabled())
}

func TestValidateRequiresDeliveryLocation(t *testing.T) {
	for _, loc := range []string{"", "   ", "\t", " \n "} {
		p := SearchParams{ProductQuery: "USB-C cable", DeliveryLocation: loc}
		err := p.Validate()
		require.Error(t, err, "location %q", loc)
		assert.True(t, errors.Is(err, ErrLocationRequired))
	}

	p := SearchParams{ProductQuery: "USB-C cable", DeliveryLocation: "Berlin"}
	assert.NoError(t, p.Validate())
}

func TestNormalizeClampsDistance(t *testing.T) {
	cases := map[int]int{
		0:    DefaultDistanceKM,
		2:    MinDistanceKM,
		5:    5,
		50:   50,
		500:  500,
		1200: MaxDistanceKMCap,
	}
	for in, want := range cases {
		p := SearchParams{MaxDistanceKM: in}.Normalize()
		assert.Equal(t, want, p.MaxDistanceKM, "input %d", in)
	}
}
