// File path: internal/seed/seed_test.go

package seed

import (
	"fmt"
	"math/rand"
	"reflect"
	"regexp"
	"testing"
	"time"
)

var (
	trackingIDPattern = regexp.MustCompile(`^EVT-\d{8}-\d{6}$`)
	customerIDPattern = regexp.MustCompile(`^CUST-\d{5}$`)
	isoDatePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
)

func buildFixed(t *testing.T, events int) *Dataset {
	t.Helper()
	return Build(Options{
		Events: events,
		Now:    time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
		Rand:   rand.New(rand.NewSource(42)),
	})
}

func TestBuildDeterministicForSeed(t *testing.T) {
	first := buildFixed(t, 20)
	second := buildFixed(t, 20)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed and clock should produce identical datasets")
	}
}

func TestBuildIdentifierFormats(t *testing.T) {
	ds := buildFixed(t, 25)
	if len(ds.Events) != 25 {
		t.Fatalf("expected 25 events, got %d", len(ds.Events))
	}
	seen := map[string]bool{}
	for i, event := range ds.Events {
		trackingID := event["event_tracking_id"].(string)
		if !trackingIDPattern.MatchString(trackingID) {
			t.Fatalf("bad tracking id %q", trackingID)
		}
		if seen[trackingID] {
			t.Fatalf("duplicate tracking id %q", trackingID)
		}
		seen[trackingID] = true
		customerID := event["customer_id"].(string)
		if !customerIDPattern.MatchString(customerID) {
			t.Fatalf("bad customer id %q", customerID)
		}
		batch := event["metadata"].(map[string]any)["batch_id"].(string)
		if want := fmt.Sprintf("BATCH-%d", (i+1)/10); batch != want {
			t.Fatalf("event %d: expected %s, got %s", i+1, want, batch)
		}
	}
}

func TestBuildDatesAreISOStrings(t *testing.T) {
	ds := buildFixed(t, 30)
	for _, event := range ds.Events {
		for _, field := range []string{"created_at", "processed_at"} {
			value, ok := event[field].(string)
			if !ok || !isoDatePattern.MatchString(value) {
				t.Fatalf("event %s is not an ISO string: %v", field, event[field])
			}
		}
	}
	for _, email := range ds.Emails {
		status := email["status"].(string)
		sentAt := email["sent_at"]
		if status == "pending" {
			if sentAt != nil {
				t.Fatalf("pending email has sent_at %v", sentAt)
			}
			continue
		}
		value, ok := sentAt.(string)
		if !ok || !isoDatePattern.MatchString(value) {
			t.Fatalf("email sent_at is not an ISO string: %v", sentAt)
		}
	}
}

func TestBuildChannelFanOut(t *testing.T) {
	ds := buildFixed(t, 40)
	wantPerChannel := map[string]int{}
	for _, event := range ds.Events {
		channels := event["channels"].([]string)
		if len(channels) < 1 || len(channels) > 4 {
			t.Fatalf("event has %d channels", len(channels))
		}
		dedupe := map[string]bool{}
		for _, channel := range channels {
			if dedupe[channel] {
				t.Fatalf("duplicate channel %q in %v", channel, channels)
			}
			dedupe[channel] = true
			wantPerChannel[channel]++
		}
	}
	got := map[string]int{
		"email":  len(ds.Emails),
		"sms":    len(ds.SMS),
		"push":   len(ds.Pushes),
		"in_app": len(ds.InApps),
	}
	for channel, want := range wantPerChannel {
		if got[channel] != want {
			t.Fatalf("channel %s: expected %d docs, got %d", channel, want, got[channel])
		}
	}
	// Every fanned-out document carries a tracking id that exists upstream.
	known := map[string]bool{}
	for _, event := range ds.Events {
		known[event["event_tracking_id"].(string)] = true
	}
	for _, doc := range append(append(append(ds.Emails, ds.SMS...), ds.Pushes...), ds.InApps...) {
		if !known[doc["event_tracking_id"].(string)] {
			t.Fatalf("orphaned tracking id %v", doc["event_tracking_id"])
		}
	}
}

func TestBuildFailedDeliveriesCarryErrorDetails(t *testing.T) {
	ds := buildFixed(t, 200)
	sawFailed := false
	for _, email := range ds.Emails {
		if email["status"] == "failed" {
			sawFailed = true
			if email["error_details"] != "SMTP connection failed" {
				t.Fatalf("failed email missing error details: %v", email["error_details"])
			}
		} else if email["error_details"] != nil {
			t.Fatalf("non-failed email has error details: %v", email["error_details"])
		}
	}
	if !sawFailed {
		t.Skip("seed produced no failed emails for this source")
	}
}

func TestIndexSpecs(t *testing.T) {
	specs := IndexSpecs()
	uniqueCount := 0
	perCollection := map[string]int{}
	for _, spec := range specs {
		perCollection[spec.Collection]++
		if spec.Unique {
			uniqueCount++
			if spec.Collection != CollectionEvents || spec.Field != "event_tracking_id" {
				t.Fatalf("unexpected unique index %+v", spec)
			}
		}
	}
	if uniqueCount != 1 {
		t.Fatalf("expected exactly one unique index, got %d", uniqueCount)
	}
	for _, name := range Collections() {
		if perCollection[name] < 3 {
			t.Fatalf("collection %s has %d indexes", name, perCollection[name])
		}
	}
}
