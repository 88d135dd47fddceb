package stats

import "testing"

func TestDownstreamRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewDownstreamRegistry()
	a := r.Register("miner-1")
	b := r.Register("miner-1")
	if a != b {
		t.Fatal("Register returned different counters for the same ID")
	}
}

func TestDownstreamRegistryRecordShareUpdatesSnapshot(t *testing.T) {
	r := NewDownstreamRegistry()
	d := r.Register("miner-1")
	d.RecordShare(100)
	d.RecordShare(50)
	d.RecordQuote()

	snap := d.Snapshot()
	if snap.SharesSubmitted != 2 {
		t.Fatalf("shares_submitted = %d, want 2", snap.SharesSubmitted)
	}
	if snap.EhashMined != 150 {
		t.Fatalf("ehash_mined = %d, want 150", snap.EhashMined)
	}
	if snap.QuotesCreated != 1 {
		t.Fatalf("quotes_created = %d, want 1", snap.QuotesCreated)
	}
	if snap.LastShareAt.IsZero() {
		t.Fatal("last_share_at not set after RecordShare")
	}
}

func TestDownstreamRegistryUnregisterRemoves(t *testing.T) {
	r := NewDownstreamRegistry()
	r.Register("miner-1")
	r.Unregister("miner-1")
	if _, ok := r.Get("miner-1"); ok {
		t.Fatal("expected miner-1 to be gone after Unregister")
	}
}

func TestDownstreamRegistrySnapshotAllCoversEveryEntry(t *testing.T) {
	r := NewDownstreamRegistry()
	r.Register("a").RecordShare(1)
	r.Register("b").RecordShare(2)

	all := r.SnapshotAll()
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}
	if all["a"].EhashMined != 1 || all["b"].EhashMined != 2 {
		t.Fatalf("unexpected snapshot contents: %+v", all)
	}
}

func TestDownstreamStatsLastShareAtZeroBeforeAnyShare(t *testing.T) {
	d := &DownstreamStats{}
	if !d.LastShareAt().IsZero() {
		t.Fatal("expected zero time before any RecordShare call")
	}
}
