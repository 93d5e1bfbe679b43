package tripdesk

import (
	"reflect"
	"strings"
	"testing"
)

func TestMatchFilterStatusExcludesPendingBooking(t *testing.T) {
	records := sampleBookings()

	confirmed := FilterRecords(records, MatchFilter[Booking](FilterDescriptor{Status: StatusConfirmed}))
	for _, rec := range confirmed {
		if rec.ID == "booking-2" {
			t.Fatalf("booking-2 is pending and must be excluded by the confirmed filter")
		}
		if rec.Status != StatusConfirmed {
			t.Fatalf("unexpected status %q", rec.Status)
		}
	}

	all := FilterRecords(records, MatchFilter[Booking](FilterDescriptor{Status: StatusAll}))
	if len(all) != len(records) {
		t.Fatalf("all should keep every record, got %d", len(all))
	}
}

func TestMatchFilterSearchIsCaseInsensitiveSubstring(t *testing.T) {
	got := ids(FilterRecords(sampleBookings(), MatchFilter[Booking](FilterDescriptor{Search: "MAKKAH"})))
	want := []string{"booking-1", "booking-5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("search = %v, want %v", got, want)
	}
}

func TestSearchOnlyNarrows(t *testing.T) {
	records := sampleBookings()
	base := FilterDescriptor{Status: StatusPending}
	before := FilterRecords(records, MatchFilter[Booking](base))
	for _, needle := range []string{"", "a", "yusuf", "umr-", "zzz"} {
		f := base
		f.Search = needle
		after := FilterRecords(records, MatchFilter[Booking](f))
		if len(after) > len(before) {
			t.Fatalf("search %q widened results: %d > %d", needle, len(after), len(before))
		}
		for _, rec := range after {
			if !strings.Contains(strings.ToLower(strings.Join(rec.SearchFields(), " ")), strings.ToLower(needle)) {
				t.Fatalf("record %s does not contain %q", rec.ID, needle)
			}
		}
	}
}

func TestMatchFilterPaymentAndDates(t *testing.T) {
	records := sampleBookings()
	paid := ids(FilterRecords(records, MatchFilter[Booking](FilterDescriptor{PaymentStatus: "PAID"})))
	if !reflect.DeepEqual(paid, []string{"booking-1", "booking-4"}) {
		t.Fatalf("paid = %v", paid)
	}
	ranged := ids(FilterRecords(records, MatchFilter[Booking](FilterDescriptor{FromDate: "2026-01-06", ToDate: "2026-01-08"})))
	if !reflect.DeepEqual(ranged, []string{"booking-2", "booking-3"}) {
		t.Fatalf("date range = %v", ranged)
	}
	open := FilterRecords(records, MatchFilter[Booking](FilterDescriptor{FromDate: "not-a-date"}))
	if len(open) != len(records) {
		t.Fatalf("unparseable bound should be ignored, got %d", len(open))
	}
}

func TestMatchOwner(t *testing.T) {
	records := sampleBookings()
	if got := FilterRecords(records, MatchOwner[Booking]("office-2")); len(got) != 1 || got[0].ID != "booking-5" {
		t.Fatalf("owner office-2 = %v", ids(got))
	}
	if got := FilterRecords(records, MatchOwner[Booking]("")); len(got) != len(records) {
		t.Fatalf("empty owner must match all")
	}
	combined := FilterRecords(records, And(MatchOwner[Booking]("office-1"), MatchFilter[Booking](FilterDescriptor{Status: StatusPending})))
	if !reflect.DeepEqual(ids(combined), []string{"booking-2"}) {
		t.Fatalf("combined = %v", ids(combined))
	}
}
