package binance

import (
	"strconv"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

// wsCommand is the subscribe/unsubscribe frame for the Binance stream API.
type wsCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// tradeMessage is a raw trade event from the <symbol>@trade stream.
type tradeMessage struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// depthMessage is a partial book snapshot from the <symbol>@depth<N> stream.
// These frames carry no event-type marker; they are identified by the
// presence of lastUpdateId.
type depthMessage struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// TradeToDomain converts a raw trade message into the domain representation.
// The buyer being the maker means the aggressor sold.
func TradeToDomain(m *tradeMessage) domain.Trade {
	price, _ := strconv.ParseFloat(m.Price, 64)
	qty, _ := strconv.ParseFloat(m.Quantity, 64)
	return domain.Trade{
		TradeID:      m.TradeID,
		Timestamp:    time.UnixMilli(m.TradeTime).UTC(),
		Price:        price,
		Quantity:     qty,
		Value:        price * qty,
		IsBuy:        !m.IsBuyerMaker,
		IsBuyerMaker: m.IsBuyerMaker,
	}
}

// DepthToDomain converts a raw depth snapshot into the domain representation.
func DepthToDomain(m *depthMessage) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		LastUpdateID: m.LastUpdateID,
		Bids:         parseLevels(m.Bids),
		Asks:         parseLevels(m.Asks),
		Timestamp:    time.Now().UTC(),
	}
}

func parseLevels(raw [][]string) []domain.BookLevel {
	levels := make([]domain.BookLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			continue
		}
		price, _ := strconv.ParseFloat(l[0], 64)
		qty, _ := strconv.ParseFloat(l[1], 64)
		levels = append(levels, domain.BookLevel{Price: price, Quantity: qty})
	}
	return levels
}
