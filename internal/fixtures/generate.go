package fixtures

import (
	"fmt"
	"math"
)

// Random is the source used for synthetic data.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// CardTypes are the card networks transactions are drawn from.
var CardTypes = []string{"MasterCard", "Visa", "Visa Retired", "Discover Card", "JCB", "American Express"}

// Transaction is one synthetic card payment.
type Transaction struct {
	ID         string  `json:"id"`
	Amount     float64 `json:"amount"`
	CardType   string  `json:"cardType"`
	IsDomestic bool    `json:"isDomestic"`
}

// TransactionSummary aggregates transactions for the dashboard.
type TransactionSummary struct {
	TotalAmount        float64            `json:"totalAmount"`
	DomesticCount      int                `json:"domesticCount"`
	InternationalCount int                `json:"internationalCount"`
	AmountsByCardType  map[string]float64 `json:"amountsByCardType"`
}

// GenerateTransactions draws n transactions with amounts in [1, 500).
func GenerateTransactions(n int, rng Random) []Transaction {
	txs := make([]Transaction, n)
	for i := range txs {
		txs[i] = Transaction{
			ID:         fmt.Sprintf("txn-%05d", i+1),
			Amount:     round2(1 + rng.Float64()*499),
			CardType:   CardTypes[rng.IntN(len(CardTypes))],
			IsDomestic: rng.Float64() < 0.6,
		}
	}
	return txs
}

// Summarize folds transactions into totals per card type.
func Summarize(txs []Transaction) TransactionSummary {
	s := TransactionSummary{AmountsByCardType: make(map[string]float64)}
	for _, tx := range txs {
		s.TotalAmount += tx.Amount
		s.AmountsByCardType[tx.CardType] += tx.Amount
		if tx.IsDomestic {
			s.DomesticCount++
		} else {
			s.InternationalCount++
		}
	}

	s.TotalAmount = round2(s.TotalAmount)
	for k, v := range s.AmountsByCardType {
		s.AmountsByCardType[k] = round2(v)
	}
	return s
}

// DeviceBreakdown is the traffic share per device class in percent.
type DeviceBreakdown struct {
	Desktop int `json:"desktop"`
	Mobile  int `json:"mobile"`
	Tablet  int `json:"tablet"`
}

// Analytics is a traffic snapshot.
type Analytics struct {
	DailyVisitors      int             `json:"dailyVisitors"`
	ConversionRate     float64         `json:"conversionRate"`
	AverageSessionTime string          `json:"averageSessionTime"`
	BounceRate         float64         `json:"bounceRate"`
	DeviceBreakdown    DeviceBreakdown `json:"deviceBreakdown"`
	TopReferrers       []string        `json:"topReferrers"`
}

var referrers = []string{"google.com", "facebook.com", "twitter.com", "instagram.com", "linkedin.com", "reddit.com", "newsletter"}

// SampleAnalytics draws a plausible analytics snapshot.
func SampleAnalytics(rng Random) Analytics {
	desktop := 35 + rng.IntN(30)
	mobile := 20 + rng.IntN(100-desktop-20)
	seconds := 60 + rng.IntN(300)

	top := make([]string, len(referrers))
	copy(top, referrers)
	// partial Fisher-Yates for the top five
	for i := 0; i < 5; i++ {
		j := i + rng.IntN(len(top)-i)
		top[i], top[j] = top[j], top[i]
	}

	return Analytics{
		DailyVisitors:      1000 + rng.IntN(9000),
		ConversionRate:     round1(1 + rng.Float64()*5),
		AverageSessionTime: fmt.Sprintf("%dm %02ds", seconds/60, seconds%60),
		BounceRate:         round1(20 + rng.Float64()*40),
		DeviceBreakdown: DeviceBreakdown{
			Desktop: desktop,
			Mobile:  mobile,
			Tablet:  100 - desktop - mobile,
		},
		TopReferrers: top[:5],
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
