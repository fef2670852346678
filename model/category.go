package model

// Category is the classification label written next to every row.
// The store keeps it as a free-form string.
type Category string

const (
	CategoryMarketData      Category = "market_data"
	CategoryIndicator       Category = "indicator"
	CategoryReferenceSymbol Category = "reference_symbol"
	CategorySubscription    Category = "subscription"
	CategorySentiment       Category = "sentiment"
)

func (c Category) String() string { return string(c) }

// Categories lists the labels producers are expected to use.
func Categories() []Category {
	return []Category{
		CategoryMarketData,
		CategoryIndicator,
		CategoryReferenceSymbol,
		CategorySubscription,
		CategorySentiment,
	}
}
