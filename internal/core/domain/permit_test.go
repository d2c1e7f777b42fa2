package domain

import (
	"testing"
	"time"
)

// fixed reference date: 2025-06-15 12:00 UTC
var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func datePlus(days int) string {
	return now.AddDate(0, 0, days).Format("2006-01-02")
}

func TestStatusAt_Boundaries(t *testing.T) {
	cases := []struct {
		name   string
		expiry string
		want   PermitStatus
	}{
		{"yesterday", datePlus(-1), PermitExpired},
		{"today", datePlus(0), PermitExpiring},
		{"window edge", datePlus(30), PermitExpiring},
		{"just outside window", datePlus(31), PermitActive},
		{"far future", datePlus(365), PermitActive},
	}

	for _, tc := range cases {
		p := Permit{IsActive: true, ExpiryDate: tc.expiry}
		if got := p.StatusAt(now); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestStatusAt_SupersededOverridesExpiry(t *testing.T) {
	p := Permit{IsActive: false, ExpiryDate: "2099-01-01"}
	if got := p.StatusAt(now); got != PermitSuperseded {
		t.Fatalf("inactive permit with future expiry: expected superseded, got %s", got)
	}

	p = Permit{IsActive: true, StoredStatus: PermitSuperseded, ExpiryDate: datePlus(-10)}
	if got := p.StatusAt(now); got != PermitSuperseded {
		t.Fatalf("stored superseded status: expected superseded, got %s", got)
	}
}

func TestStatusAt_Totality(t *testing.T) {
	known := map[PermitStatus]bool{
		PermitActive: true, PermitExpiring: true, PermitExpired: true, PermitSuperseded: true,
	}
	permits := []Permit{
		{IsActive: true, ExpiryDate: datePlus(100)},
		{IsActive: true, ExpiryDate: datePlus(0)},
		{IsActive: true, ExpiryDate: datePlus(-5)},
		{IsActive: false, ExpiryDate: datePlus(100)},
		{IsActive: true, ExpiryDate: "garbage"},
		{IsActive: true},
	}
	for i, p := range permits {
		if got := p.StatusAt(now); !known[got] {
			t.Fatalf("permit %d: unknown status %q", i, got)
		}
	}
}

func TestStatusAt_ExpiryWithTimeComponent(t *testing.T) {
	// A late-evening timestamp on the expiry day must not shift the day.
	p := Permit{IsActive: true, ExpiryDate: datePlus(0) + "T23:59:59Z"}
	if got := p.StatusAt(now); got != PermitExpiring {
		t.Fatalf("expected expiring, got %s", got)
	}
}

func TestFilterPermits(t *testing.T) {
	permits := []*Permit{
		{ID: "1", IsActive: true, ExpiryDate: datePlus(100)},
		{ID: "2", IsActive: true, ExpiryDate: datePlus(10)},
		{ID: "3", IsActive: true, ExpiryDate: datePlus(-1)},
		{ID: "4", IsActive: false, ExpiryDate: datePlus(100)},
	}

	all := FilterPermits(permits, "all", now)
	if len(all) != len(permits) {
		t.Fatalf("filter all: expected %d permits, got %d", len(permits), len(all))
	}
	for i := range permits {
		if all[i].ID != permits[i].ID {
			t.Fatalf("filter all: member %d changed", i)
		}
	}

	for _, filter := range []string{"active", "expiring", "expired", "superseded"} {
		got := FilterPermits(permits, filter, now)
		for _, p := range got {
			if string(p.StatusAt(now)) != filter {
				t.Fatalf("filter %s returned permit %s with status %s", filter, p.ID, p.StatusAt(now))
			}
		}
		// no qualifying permit omitted
		want := 0
		for _, p := range permits {
			if string(p.StatusAt(now)) == filter {
				want++
			}
		}
		if len(got) != want {
			t.Fatalf("filter %s: expected %d permits, got %d", filter, want, len(got))
		}
	}
}

func TestComputeStats_ExcludesSuperseded(t *testing.T) {
	permits := []Permit{
		{IsActive: true, ExpiryDate: datePlus(100)},
		{IsActive: true, ExpiryDate: datePlus(100)},
		{IsActive: true, ExpiryDate: datePlus(5)},
		{IsActive: true, ExpiryDate: datePlus(-5)},
		{IsActive: false, ExpiryDate: datePlus(100)},
		{IsActive: true, StoredStatus: PermitSuperseded, ExpiryDate: datePlus(100)},
	}

	s := ComputeStats(permits, now)
	if s.Total != 4 {
		t.Fatalf("expected total 4 (superseded excluded), got %d", s.Total)
	}
	if s.Active != 2 || s.Expiring != 1 || s.Expired != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.Active+s.Expiring+s.Expired != s.Total {
		t.Fatalf("counters do not add up: %+v", s)
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate("2021-10-01"); got != "Oct 1, 2021" {
		t.Fatalf("expected 'Oct 1, 2021', got %q", got)
	}
	if got := FormatDate("2021-10-01T00:00:00-05:00"); got != "Oct 1, 2021" {
		t.Fatalf("time suffix must be discarded, got %q", got)
	}
	if got := FormatDate(""); got != "N/A" {
		t.Fatalf("empty date: expected N/A, got %q", got)
	}
	if got := FormatDate("not-a-date"); got != "N/A" {
		t.Fatalf("bad date: expected N/A, got %q", got)
	}
}

func TestFormatDate_TimezoneInvariance(t *testing.T) {
	// Evaluate under local zones far west and east of UTC; the rendered
	// calendar day must never shift.
	zones := []*time.Location{
		time.FixedZone("W12", -12*3600),
		time.FixedZone("E14", 14*3600),
	}
	orig := time.Local
	defer func() { time.Local = orig }()

	for _, z := range zones {
		time.Local = z
		if got := FormatDate("2021-10-01"); got != "Oct 1, 2021" {
			t.Fatalf("zone %s: expected 'Oct 1, 2021', got %q", z, got)
		}
	}
}
