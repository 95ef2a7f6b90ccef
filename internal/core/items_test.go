package core

import (
	"encoding/json"
	"testing"
)

func TestParseCost(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{`100`, 100},
		{`0`, 0},
		{`-5`, -5},
		{`12.9`, 12},
		{`-12.9`, -12},
		{`1e3`, 1000},
		{`"42"`, 42},
		{`" 7 "`, 7},
		{`"3.5"`, 3},
		{`"abc"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`true`, 0},
		{`{}`, 0},
		{`[]`, 0},
		{``, 0},
		{`"1e400"`, 0},
		{`9007199254740991`, MaxCost},
		{`9223372036854775807`, MaxCost},
		{`9223372036854775808`, MaxCost},
		{`-9223372036854775808`, -MaxCost},
		{`"1e300"`, MaxCost},
		{`-1e300`, -MaxCost},
	}
	for _, tc := range cases {
		got := ParseCost(json.RawMessage(tc.in))
		if got != tc.out {
			t.Fatalf("ParseCost(%q) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestSanitizeItems(t *testing.T) {
	raw := []RawItem{
		{Name: "  Lunch ", Cost: json.RawMessage(`100`)},
		{Name: "   ", Cost: json.RawMessage(`999`)},
		{Name: "", Cost: json.RawMessage(`1`)},
		{Name: "Coffee", Cost: json.RawMessage(`"50"`)},
		{Name: "Mystery", Cost: json.RawMessage(`"n/a"`)},
		{Name: "Nothing"},
	}

	got := SanitizeItems(raw)
	want := []ExpenseItem{
		{Name: "Lunch", Cost: 100},
		{Name: "Coffee", Cost: 50},
		{Name: "Mystery", Cost: 0},
		{Name: "Nothing", Cost: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if total := ItemsTotal(got); total != 150 {
		t.Fatalf("ItemsTotal = %d, want 150", total)
	}
}

func TestSanitizeItemsEmpty(t *testing.T) {
	got := SanitizeItems(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if ItemsTotal(got) != 0 {
		t.Fatalf("expected zero total")
	}
}

func TestSanitizeItemsBoundsTotal(t *testing.T) {
	tests := []struct {
		name  string
		raw   []RawItem
		costs []int64
	}{
		{
			name:  "max int64 then one",
			raw:   []RawItem{NewRawItem("a", 9223372036854775807), NewRawItem("b", 1)},
			costs: []int64{MaxCost, 0},
		},
		{
			name:  "two halves overflow",
			raw:   []RawItem{NewRawItem("a", MaxCost-10), NewRawItem("b", 100), NewRawItem("c", -5)},
			costs: []int64{MaxCost - 10, 10, -5},
		},
		{
			name:  "negative side",
			raw:   []RawItem{NewRawItem("a", -MaxCost), NewRawItem("b", -1), NewRawItem("c", 3)},
			costs: []int64{-MaxCost, 0, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeItems(tt.raw)
			if len(got) != len(tt.costs) {
				t.Fatalf("expected %d items, got %+v", len(tt.costs), got)
			}
			var sum int64
			for i, it := range got {
				if it.Cost != tt.costs[i] {
					t.Errorf("item %d cost = %d, want %d", i, it.Cost, tt.costs[i])
				}
				sum += it.Cost
			}
			if total := ItemsTotal(got); total != sum {
				t.Errorf("ItemsTotal = %d, want item sum %d", total, sum)
			}
		})
	}
}

func TestItemsTotalSaturates(t *testing.T) {
	items := []ExpenseItem{{Name: "a", Cost: 1 << 62}, {Name: "b", Cost: 1 << 62}, {Name: "c", Cost: 1 << 62}}
	if total := ItemsTotal(items); total != MaxCost {
		t.Fatalf("ItemsTotal = %d, want %d", total, MaxCost)
	}
}

func TestEncodeDecodeItems(t *testing.T) {
	items := []ExpenseItem{{Name: "Lunch", Cost: 100}, {Name: "Coffee", Cost: 50}}
	enc, err := EncodeItems(items)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	res := DecodeItems(enc)
	if res.Recovered {
		t.Fatalf("unexpected recovery: %v", res.Err)
	}
	if len(res.Items) != 2 || res.Items[0] != items[0] || res.Items[1] != items[1] {
		t.Fatalf("decoded %+v, want %+v", res.Items, items)
	}

	enc, err = EncodeItems(nil)
	if err != nil || enc != "[]" {
		t.Fatalf("encode nil = %q, %v", enc, err)
	}
}

func TestDecodeItemsRecovery(t *testing.T) {
	for _, raw := range []string{"", "not json", "{\"name\":\"x\"}", "null", "[1,2]", "[{\"name\":"} {
		res := DecodeItems(raw)
		if !res.Recovered {
			t.Fatalf("%q: expected recovered result", raw)
		}
		if res.Items == nil || len(res.Items) != 0 {
			t.Fatalf("%q: expected empty items, got %#v", raw, res.Items)
		}
		if res.Err == nil {
			t.Fatalf("%q: expected decode error to be kept", raw)
		}
	}
}

func TestDecodeItemsCoercesLegacyCosts(t *testing.T) {
	res := DecodeItems(`[{"name":"Taxi","cost":"12"},{"name":"Tip","cost":2.5}]`)
	if res.Recovered {
		t.Fatalf("unexpected recovery: %v", res.Err)
	}
	if res.Items[0].Cost != 12 || res.Items[1].Cost != 2 {
		t.Fatalf("unexpected costs: %+v", res.Items)
	}
}

func TestExpenseInputValidate(t *testing.T) {
	if err := (ExpenseInput{}).Validate(); err != ErrEmptyDate {
		t.Fatalf("expected ErrEmptyDate, got %v", err)
	}
	if err := (ExpenseInput{Date: "2024-03-05"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRawItem(t *testing.T) {
	it := NewRawItem("Lunch", 100)
	if it.Name != "Lunch" || ParseCost(it.Cost) != 100 {
		t.Fatalf("unexpected raw item: %+v", it)
	}
}
