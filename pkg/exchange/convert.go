package exchange

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Parser converts the string fields of one response. It keeps the first
// malformed value so a converter can fill a whole struct and check Err once.
// Venues send "" for fields that do not apply, which parses as zero.
type Parser struct {
	exchange string
	op       string
	err      error
}

func NewParser(exchange, op string) *Parser {
	return &Parser{exchange: exchange, op: op}
}

// Dec parses a decimal string.
func (p *Parser) Dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.fail(fmt.Errorf("malformed decimal %q: %w", s, err))
		return decimal.Zero
	}
	return d
}

// Millis parses a Unix millisecond timestamp sent as a string.
func (p *Parser) Millis(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail(fmt.Errorf("malformed timestamp %q: %w", s, err))
		return time.Time{}
	}
	return Millis(ms)
}

// Levels converts [price, quantity, ...] rows. Rows with fewer than two
// fields are skipped.
func (p *Parser) Levels(rows [][]string) []PriceLevel {
	levels := make([]PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		levels = append(levels, PriceLevel{Price: p.Dec(row[0]), Quantity: p.Dec(row[1])})
	}
	return levels
}

func (p *Parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// Err reports the first malformed field as an exchange error.
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return &Error{
		Kind:     KindExchange,
		Exchange: p.exchange,
		Op:       p.op,
		Message:  "failed to parse response: " + p.err.Error(),
		Err:      p.err,
	}
}

// Millis converts a Unix millisecond timestamp. Zero stays the zero time.
func Millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// UnixMillis is the inverse of Millis; the zero time maps to 0.
func UnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ReverseCandles flips a newest-first series into chronological order in place.
func ReverseCandles(candles []Candle) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}

// Number decodes a JSON number or numeric string. "" and null decode to zero.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		n.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	n.Decimal = d
	return nil
}

// NumberLevels is Levels for venues that send numeric rows. A positive depth
// keeps only the best depth levels.
func NumberLevels(rows [][]Number, depth int) []PriceLevel {
	if depth > 0 && len(rows) > depth {
		rows = rows[:depth]
	}
	levels := make([]PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		levels = append(levels, PriceLevel{Price: row[0].Decimal, Quantity: row[1].Decimal})
	}
	return levels
}
