// Package costs tracks the running USD spend of a pipeline run across
// text, image and speech generation.
package costs

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"articlecast/config"
)

// Category names used in the ledger breakdown.
const (
	CategoryText   = "text"
	CategoryImage  = "image"
	CategorySpeech = "speech"
)

// Prices holds the unit prices the ledger charges with. A zero-value
// Prices is valid and charges nothing, which keeps tests deterministic.
type Prices struct {
	TextInputPer1K   float64
	TextOutputPer1K  float64
	ImageHD          float64
	ImageStandard    float64
	SpeechPer1KChars float64
}

// DefaultPrices returns the current published unit prices.
func DefaultPrices() Prices {
	return Prices{
		TextInputPer1K:   config.CostTextInputPer1K,
		TextOutputPer1K:  config.CostTextOutputPer1K,
		ImageHD:          config.CostImageHD,
		ImageStandard:    config.CostImageStandard,
		SpeechPer1KChars: config.CostSpeechPer1KChars,
	}
}

// Notify receives the new grand total after every charge. The callback
// runs synchronously under the ledger lock, so it must not call back
// into the ledger.
type Notify func(total float64)

// Ledger accumulates charges per category. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	prices  Prices
	hd      bool
	byCat   map[string]float64
	notify  Notify
	charges int
}

// NewLedger builds a ledger charging with the given prices. hd selects
// the image price tier.
func NewLedger(prices Prices, hd bool) *Ledger {
	return &Ledger{
		prices: prices,
		hd:     hd,
		byCat:  map[string]float64{},
	}
}

// SetNotify registers the single observer. Passing nil removes it.
func (l *Ledger) SetNotify(fn Notify) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
}

// AddText charges for a text generation call and returns the
// incremental cost.
func (l *Ledger) AddText(inputTokens, outputTokens int) float64 {
	cost := float64(inputTokens)/1000.0*l.prices.TextInputPer1K +
		float64(outputTokens)/1000.0*l.prices.TextOutputPer1K
	return l.add(CategoryText, cost)
}

// AddImages charges for n generated images and returns the incremental cost.
func (l *Ledger) AddImages(n int) float64 {
	unit := l.prices.ImageStandard
	if l.hd {
		unit = l.prices.ImageHD
	}
	return l.add(CategoryImage, float64(n)*unit)
}

// AddSpeech charges for synthesized speech by input length and returns
// the incremental cost.
func (l *Ledger) AddSpeech(chars int) float64 {
	return l.add(CategorySpeech, float64(chars)/1000.0*l.prices.SpeechPer1KChars)
}

func (l *Ledger) add(category string, cost float64) float64 {
	if cost < 0 {
		cost = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byCat[category] += cost
	l.charges++
	if l.notify != nil {
		l.notify(l.totalLocked())
	}
	return cost
}

// Total returns the grand total spent so far.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

func (l *Ledger) totalLocked() float64 {
	var sum float64
	for _, v := range l.byCat {
		sum += v
	}
	return sum
}

// Breakdown returns a copy of the per-category totals.
func (l *Ledger) Breakdown() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.byCat))
	for k, v := range l.byCat {
		out[k] = v
	}
	return out
}

// Summary renders a stable, human-readable spend report.
func (l *Ledger) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	cats := make([]string, 0, len(l.byCat))
	for k := range l.byCat {
		cats = append(cats, k)
	}
	sort.Strings(cats)

	var b strings.Builder
	b.WriteString("API cost summary\n")
	for _, k := range cats {
		fmt.Fprintf(&b, "  %-7s $%.4f\n", k, l.byCat[k])
	}
	fmt.Fprintf(&b, "  total   $%.4f (%d charges)", l.totalLocked(), l.charges)
	return b.String()
}
