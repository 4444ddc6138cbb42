package risk

import "kite-riskdesk/internal/fields"

// Aliases lists the accepted spellings for every field the aggregator reads.
// Chains left empty in a config file keep their defaults.
type Aliases struct {
	Token        fields.Chain `mapstructure:"token"`
	Symbol       fields.Chain `mapstructure:"symbol"`
	Exchange     fields.Chain `mapstructure:"exchange"`
	Quantity     fields.Chain `mapstructure:"quantity"`
	AveragePrice fields.Chain `mapstructure:"average_price"`
	LastPrice    fields.Chain `mapstructure:"last_price"`
	PnL          fields.Chain `mapstructure:"pnl"`
	Multiplier   fields.Chain `mapstructure:"multiplier"`

	GroupID           fields.Chain `mapstructure:"group_id"`
	Status            fields.Chain `mapstructure:"status"`
	Condition         fields.Chain `mapstructure:"condition"`
	ConditionToken    fields.Chain `mapstructure:"condition_token"`
	ConditionSymbol   fields.Chain `mapstructure:"condition_symbol"`
	ConditionExchange fields.Chain `mapstructure:"condition_exchange"`
	Orders            fields.Chain `mapstructure:"orders"`
	OrderSide         fields.Chain `mapstructure:"order_side"`
	OrderQuantity     fields.Chain `mapstructure:"order_quantity"`
	OrderPrice        fields.Chain `mapstructure:"order_price"`
}

// DefaultAliases returns the spellings used by Kite Connect and the common
// camelCase variants produced by other clients.
func DefaultAliases() Aliases {
	return Aliases{
		Token:        fields.Chain{"instrument_token", "instrumentToken", "token"},
		Symbol:       fields.Chain{"tradingsymbol", "trading_symbol", "tradingSymbol", "symbol"},
		Exchange:     fields.Chain{"exchange", "exch"},
		Quantity:     fields.Chain{"quantity", "qty", "net_quantity", "netQuantity"},
		AveragePrice: fields.Chain{"average_price", "averagePrice", "avgPrice", "avg_price", "buy_price"},
		LastPrice:    fields.Chain{"last_price", "lastPrice", "ltp", "last_traded_price"},
		PnL:          fields.Chain{"pnl", "unrealised", "unrealized_pnl", "unrealizedPnl", "m2m"},
		Multiplier:   fields.Chain{"multiplier", "lot_multiplier", "lotMultiplier"},

		GroupID:           fields.Chain{"id", "trigger_id", "triggerId", "gtt_id"},
		Status:            fields.Chain{"status", "state"},
		Condition:         fields.Chain{"condition", "trigger", "conditions"},
		ConditionToken:    fields.Chain{"instrument_token", "instrumentToken", "token"},
		ConditionSymbol:   fields.Chain{"tradingsymbol", "trading_symbol", "tradingSymbol", "symbol"},
		ConditionExchange: fields.Chain{"exchange", "exch"},
		Orders:            fields.Chain{"orders", "legs"},
		OrderSide:         fields.Chain{"transaction_type", "transactionType", "side"},
		OrderQuantity:     fields.Chain{"quantity", "qty"},
		OrderPrice:        fields.Chain{"price", "limit_price", "limitPrice"},
	}
}

// WithDefaults fills every empty chain from DefaultAliases.
func (a Aliases) WithDefaults() Aliases {
	d := DefaultAliases()
	fill := func(dst *fields.Chain, def fields.Chain) {
		if len(*dst) == 0 {
			*dst = def
		}
	}
	fill(&a.Token, d.Token)
	fill(&a.Symbol, d.Symbol)
	fill(&a.Exchange, d.Exchange)
	fill(&a.Quantity, d.Quantity)
	fill(&a.AveragePrice, d.AveragePrice)
	fill(&a.LastPrice, d.LastPrice)
	fill(&a.PnL, d.PnL)
	fill(&a.Multiplier, d.Multiplier)
	fill(&a.GroupID, d.GroupID)
	fill(&a.Status, d.Status)
	fill(&a.Condition, d.Condition)
	fill(&a.ConditionToken, d.ConditionToken)
	fill(&a.ConditionSymbol, d.ConditionSymbol)
	fill(&a.ConditionExchange, d.ConditionExchange)
	fill(&a.Orders, d.Orders)
	fill(&a.OrderSide, d.OrderSide)
	fill(&a.OrderQuantity, d.OrderQuantity)
	fill(&a.OrderPrice, d.OrderPrice)
	return a
}
