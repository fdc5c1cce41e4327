package progress_test

import (
	"encoding/json"
	"testing"

	"glovecap/internal/progress"
)

func TestCountsZeroDefault(t *testing.T) {
	c := progress.Counts{}
	if c.Get("ㄱ", "1") != 0 {
		t.Fatal("missing pair should read as zero")
	}
	c.Inc("ㄱ", "1")
	c.Inc("ㄱ", "1")
	c.Inc("ㄱ", "2")
	c.Set("ㅏ", "5", 4)
	if c.Get("ㄱ", "1") != 2 || c.ClassTotal("ㄱ") != 3 || c.Total() != 7 {
		t.Fatalf("unexpected totals: %+v", c)
	}
}

func TestCountsEqualIgnoresZeroEntries(t *testing.T) {
	a := progress.Counts{"ㄱ": {"1": 2, "2": 0}}
	b := progress.Counts{"ㄱ": {"1": 2}, "ㄴ": {}}
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatal("expected counts to be equal")
	}
	b.Inc("ㄴ", "3")
	if a.Equal(b) {
		t.Fatal("expected counts to differ")
	}
}

func TestCountsMarshalIsDeterministic(t *testing.T) {
	c := progress.Counts{"b": {"2": 1, "1": 3}, "a": {"5": 1}}
	first, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := json.Marshal(c.Clone())
		if string(again) != string(first) {
			t.Fatalf("marshal not deterministic: %s vs %s", again, first)
		}
	}
	if string(first) != `{"a":{"5":1},"b":{"1":3,"2":1}}` {
		t.Fatalf("unexpected encoding: %s", first)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := progress.Counts{"a": {"1": 1}}
	cp := c.Clone()
	cp.Inc("a", "1")
	if c.Get("a", "1") != 1 {
		t.Fatal("clone shares inner maps")
	}
}
