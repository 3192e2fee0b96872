package social

import "testing"

func TestContentHashDistinguishesFieldBoundaries(t *testing.T) {
	a := ContentHash("x", "", "", "", "")
	b := ContentHash("", "x", "", "", "")
	if a == b {
		t.Fatal("expected different fields to hash differently despite identical concatenation")
	}
}

func TestPostStampsContentHash(t *testing.T) {
	_, e := newTestEngine(t)
	c := Comment{RewardAsset: "COIN", Split: PayoutSplit{AuthorBPS: 10000}, Format: FormatText, Body: "hello"}
	if err := e.Post("alice", "hash-post", c, 1000, 0); err != nil {
		t.Fatalf("post: %v", err)
	}
	stored, ok := e.Get("alice", "hash-post")
	if !ok || stored.ContentHash == "" {
		t.Fatal("expected a non-empty content hash to be stamped")
	}
}
