package series

import (
	"flashbook-monitor/src/analysis/core"
	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// BufferedSeries bundles the trade ticker and the per-symbol price history.
// Both are fed by trade events only.
// -----------------------------------------------------------------------------

type BufferedSeries struct {
	Ticker  *TradeTicker
	History *PriceHistory
}

func NewBufferedSeries(tradeCapacity, historyCapacity int) *BufferedSeries {
	return &BufferedSeries{
		Ticker:  NewTradeTicker(tradeCapacity),
		History: NewPriceHistory(historyCapacity),
	}
}

// -----------------------------------------------------------------------------

// RecordTrade pushes a trade into the ticker and the symbol's price history.
func (bs *BufferedSeries) RecordTrade(trade models.MTrade) (models.MTradeEvent, models.MPricePoint) {
	event := models.MTradeEvent{
		Timestamp: trade.Timestamp,
		Symbol:    trade.Symbol,
		Price:     trade.Price.Float(),
		Quantity:  trade.Quantity,
		TradeID:   trade.TradeID,
	}
	bs.Ticker.Insert(event)
	point := bs.History.AddPoint(trade.Symbol, event.Price, trade.Timestamp)
	return event, point
}

// -----------------------------------------------------------------------------

// ResetHistory clears every price series. Called on each connection open.
func (bs *BufferedSeries) ResetHistory() {
	bs.History.ClearAll()
}

// -----------------------------------------------------------------------------

// Summary computes window statistics for a symbol's price history.
func (bs *BufferedSeries) Summary(symbol string) models.MSeriesSummary {
	prices := bs.History.Prices(symbol)
	summary := models.MSeriesSummary{Symbol: symbol, Points: len(prices)}
	if len(prices) == 0 {
		return summary
	}

	ohlc := core.ComputeOHLC(prices)
	moments := core.Moments(prices)

	summary.First = ohlc.Open
	summary.Last = ohlc.Close
	summary.High = ohlc.High
	summary.Low = ohlc.Low
	summary.Mean = moments.Mean
	summary.StdDev = moments.StdDev
	summary.ChangePercent = core.CalculateChangePercent(ohlc.Close, ohlc.Open) * 100
	summary.LastZScore = moments.ZScore(ohlc.Close)
	return summary
}
