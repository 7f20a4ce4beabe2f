package models

// Feature toggle keys accepted by OptionalFeatures.Toggle.
const (
	FeaturePriceHistory     = "price_history"
	FeaturePricePrediction  = "price_prediction"
	FeatureReviewQuality    = "review_quality"
	FeatureLoyaltyScan      = "loyalty_scan"
	FeatureSellerRiskFilter = "seller_risk_filter"
	FeatureStockAlerts      = "stock_alerts"
	FeatureImageBarcodeMode = "image_barcode_mode"
	FeaturePriceMatch       = "price_match_support"
)

// OptionalFeatures is the fixed set of eight search feature toggles.
type OptionalFeatures struct {
	PriceHistory     bool `json:"price_history"`
	PricePrediction  bool `json:"price_prediction"`
	ReviewQuality    bool `json:"review_quality"`
	LoyaltyScan      bool `json:"loyalty_scan"`
	SellerRiskFilter bool `json:"seller_risk_filter"`
	StockAlerts      bool `json:"stock_alerts"`
	ImageBarcodeMode bool `json:"image_barcode_mode"`
	PriceMatch       bool `json:"price_match_support"`
}

// DefaultFeatures returns the toggle values every session starts with.
func DefaultFeatures() OptionalFeatures {
	return OptionalFeatures{
		PriceHistory:     true,
		ReviewQuality:    true,
		SellerRiskFilter: true,
	}
}

// Toggle flips exactly one feature by its JSON key. It reports whether
// the key was recognized; an unknown key leaves the mapping untouched.
func (f *OptionalFeatures) Toggle(key string) bool {
	switch key {
	case FeaturePriceHistory:
		f.PriceHistory = !f.PriceHistory
	case FeaturePricePrediction:
		f.PricePrediction = !f.PricePrediction
	case FeatureReviewQuality:
		f.ReviewQuality = !f.ReviewQuality
	case FeatureLoyaltyScan:
		f.LoyaltyScan = !f.LoyaltyScan
	case FeatureSellerRiskFilter:
		f.SellerRiskFilter = !f.SellerRiskFilter
	case FeatureStockAlerts:
		f.StockAlerts = !f.StockAlerts
	case FeatureImageBarcodeMode:
		f.ImageBarcodeMode = !f.ImageBarcodeMode
	case FeaturePriceMatch:
		f.PriceMatch = !f.PriceMatch
	default:
		return false
	}
	return true
}

// Enabled lists the keys of the currently enabled features, in the
// fixed toggle order.
func (f OptionalFeatures) Enabled() []string {
	var keys []string
	if f.PriceHistory {
		keys = append(keys, FeaturePriceHistory)
	}
	if f.PricePrediction {
		keys = append(keys, FeaturePricePrediction)
	}
	if f.ReviewQuality {
		keys = append(keys, FeatureReviewQuality)
	}
	if f.LoyaltyScan {
		keys = append(keys, FeatureLoyaltyScan)
	}
	if f.SellerRiskFilter {
		keys = append(keys, FeatureSellerRiskFilter)
	}
	if f.StockAlerts {
		keys = append(keys, FeatureStockAlerts)
	}
	if f.ImageBarcodeMode {
		keys = append(keys, FeatureImageBarcodeMode)
	}
	if f.PriceMatch {
		keys = append(keys, FeaturePriceMatch)
	}
	return keys
}

// SearchParams is the immutable snapshot of a single deal search,
// taken at submit time.
type SearchParams struct {
	ProductQuery     string           `json:"product_query"`
	DeliveryLocation string           `json:"delivery_location"`
	MaxDistanceKM    int              `json:"max_distance_km"`
	Currency         string           `json:"currency"`
	Condition        string           `json:"condition"`
	BudgetMin        *float64         `json:"budget_min"`
	BudgetMax        *float64         `json:"budget_max"`
	OptionalFeatures OptionalFeatures `json:"optional_features"`
}

const (
	MinDistanceKM     = 5
	MaxDistanceKMCap  = 500
	DefaultDistanceKM = 50
)

// Validate checks the required fields. Only the delivery location is
// mandatory; everything else has a usable zero value.
func (p SearchParams) Validate() error {
	if isBlank(p.DeliveryLocation) {
		return ErrLocationRequired
	}
	return nil
}

// Normalize returns a copy with the distance clamped to the supported
// 5–500 km range (zero means "not set" and takes the default).
func (p SearchParams) Normalize() SearchParams {
	switch {
	case p.MaxDistanceKM == 0:
		p.MaxDistanceKM = DefaultDistanceKM
	case p.MaxDistanceKM < MinDistanceKM:
		p.MaxDistanceKM = MinDistanceKM
	case p.MaxDistanceKM > MaxDistanceKMCap:
		p.MaxDistanceKM = MaxDistanceKMCap
	}
	return p
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
