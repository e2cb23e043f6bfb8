package costs

import (
	"math"
	"strings"
	"sync"
	"testing"
)

func testPrices() Prices {
	return Prices{
		TextInputPer1K:   0.005,
		TextOutputPer1K:  0.015,
		ImageHD:          0.080,
		ImageStandard:    0.040,
		SpeechPer1KChars: 0.015,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAddTextReturnsIncrementalCost(t *testing.T) {
	l := NewLedger(testPrices(), false)
	got := l.AddText(1000, 2000)
	want := 0.005 + 2*0.015
	if !approx(got, want) {
		t.Fatalf("AddText = %v; want %v", got, want)
	}
	if !approx(l.Total(), want) {
		t.Fatalf("Total = %v; want %v", l.Total(), want)
	}
}

func TestAddImagesPriceTier(t *testing.T) {
	standard := NewLedger(testPrices(), false)
	if got := standard.AddImages(3); !approx(got, 0.12) {
		t.Fatalf("standard AddImages(3) = %v; want 0.12", got)
	}
	hd := NewLedger(testPrices(), true)
	if got := hd.AddImages(3); !approx(got, 0.24) {
		t.Fatalf("hd AddImages(3) = %v; want 0.24", got)
	}
}

func TestAddSpeech(t *testing.T) {
	l := NewLedger(testPrices(), false)
	if got := l.AddSpeech(500); !approx(got, 0.0075) {
		t.Fatalf("AddSpeech(500) = %v; want 0.0075", got)
	}
}

func TestBreakdownByCategory(t *testing.T) {
	l := NewLedger(testPrices(), false)
	l.AddText(1000, 0)
	l.AddImages(1)
	l.AddSpeech(1000)

	b := l.Breakdown()
	if !approx(b[CategoryText], 0.005) {
		t.Fatalf("text = %v", b[CategoryText])
	}
	if !approx(b[CategoryImage], 0.040) {
		t.Fatalf("image = %v", b[CategoryImage])
	}
	if !approx(b[CategorySpeech], 0.015) {
		t.Fatalf("speech = %v", b[CategorySpeech])
	}
	if !approx(l.Total(), 0.060) {
		t.Fatalf("total = %v", l.Total())
	}
}

func TestNotifySeesRunningTotal(t *testing.T) {
	l := NewLedger(testPrices(), false)
	var totals []float64
	l.SetNotify(func(total float64) { totals = append(totals, total) })

	l.AddText(1000, 0) // 0.005
	l.AddText(1000, 0) // 0.010

	if len(totals) != 2 {
		t.Fatalf("notify called %d times; want 2", len(totals))
	}
	if !approx(totals[0], 0.005) || !approx(totals[1], 0.010) {
		t.Fatalf("notified totals = %v", totals)
	}
}

func TestZeroPricesChargeNothing(t *testing.T) {
	l := NewLedger(Prices{}, false)
	l.AddText(1000, 1000)
	l.AddImages(5)
	l.AddSpeech(9999)
	if l.Total() != 0 {
		t.Fatalf("zero-price ledger charged %v", l.Total())
	}
}

func TestConcurrentCharges(t *testing.T) {
	l := NewLedger(testPrices(), false)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AddSpeech(1000)
		}()
	}
	wg.Wait()
	if !approx(l.Total(), 50*0.015) {
		t.Fatalf("total after concurrent charges = %v; want %v", l.Total(), 50*0.015)
	}
}

func TestSummaryFormat(t *testing.T) {
	l := NewLedger(testPrices(), false)
	l.AddImages(1)
	l.AddText(1000, 0)

	s := l.Summary()
	if !strings.Contains(s, "image") || !strings.Contains(s, "text") {
		t.Fatalf("summary missing categories:\n%s", s)
	}
	if !strings.Contains(s, "total   $0.0450") {
		t.Fatalf("summary missing total:\n%s", s)
	}
	// Categories render alphabetically so the report is stable.
	if strings.Index(s, "image") > strings.Index(s, "text") {
		t.Fatalf("categories not sorted:\n%s", s)
	}
}
