// File path: internal/seed/seed.go

// Package seed builds and loads the sample notification dataset used for
// development and demos: a notification_events collection fanned out into
// per-channel delivery collections, with every timestamp stored as an ISO
// 8601 string. Document construction is pure and deterministic for a given
// rand source, so the dataset shape is testable without a database.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var customerNames = []string{
	"John Smith", "Emma Johnson", "Michael Brown", "Sarah Davis", "James Wilson",
	"Emily Martinez", "David Anderson", "Olivia Taylor", "Robert Thomas", "Sophia Moore",
	"William Jackson", "Isabella White", "Christopher Harris", "Mia Martin", "Daniel Thompson",
	"Charlotte Garcia", "Matthew Rodriguez", "Amelia Lewis", "Joseph Lee", "Harper Walker",
	"Andrew Hall", "Evelyn Allen", "Ryan Young", "Abigail King", "Nicholas Wright",
	"Ella Lopez", "Joshua Hill", "Avery Scott", "Brandon Green", "Sofia Adams",
	"Tyler Baker", "Scarlett Nelson", "Kevin Carter", "Grace Mitchell", "Jacob Perez",
	"Chloe Roberts", "Aaron Turner", "Lily Phillips", "Justin Campbell", "Zoey Parker",
	"Samuel Evans", "Nora Edwards", "Benjamin Collins", "Hannah Stewart", "Nathan Sanchez",
	"Aria Morris", "Dylan Rogers", "Layla Reed", "Caleb Cook", "Zoe Bailey",
}

var eventTypes = []string{
	"ORDER_PLACED", "PAYMENT_RECEIVED", "ACCOUNT_CREATED", "ORDER_SHIPPED",
	"PASSWORD_RESET", "SUBSCRIPTION_RENEWED", "PAYMENT_FAILED", "ORDER_DELIVERED",
	"ACCOUNT_VERIFIED", "SUBSCRIPTION_CANCELLED", "REFUND_PROCESSED", "ITEM_RETURNED",
}

var notificationTypes = []string{"promotional", "transactional", "alert", "reminder", "system"}

var emailProviders = []string{"SendGrid", "AWS SES", "Mailgun", "Postmark", "SparkPost"}
var smsProviders = []string{"Twilio", "Vonage", "AWS SNS", "MessageBird", "Plivo"}
var pushProviders = []string{"Firebase", "OneSignal", "Pusher", "AWS SNS", "Urban Airship"}

var emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "company.com", "email.com"}

var allChannels = []string{"email", "sms", "push", "in_app"}

// Collection names of the sample dataset.
const (
	CollectionEvents = "notification_events"
	CollectionEmail  = "email_notifications"
	CollectionSMS    = "sms_notifications"
	CollectionPush   = "push_notifications"
	CollectionInApp  = "inapp_notifications"
)

// Collections lists the dataset collections in insertion order.
func Collections() []string {
	return []string{CollectionEvents, CollectionEmail, CollectionSMS, CollectionPush, CollectionInApp}
}

const isoLayout = "2006-01-02T15:04:05"

// Options shape one dataset build. Zero values select 100 events, the
// current time and a time-seeded rand source.
type Options struct {
	Events int
	Now    time.Time
	Rand   *rand.Rand
}

func (o *Options) applyDefaults() {
	if o.Events <= 0 {
		o.Events = 100
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Dataset holds the generated documents per collection.
type Dataset struct {
	Events []map[string]any
	Emails []map[string]any
	SMS    []map[string]any
	Pushes []map[string]any
	InApps []map[string]any
}

// Build generates the dataset. Events are numbered from 1; each event fans
// out into one document per selected channel, all sharing the event's
// tracking identifier.
func Build(opts Options) *Dataset {
	opts.applyDefaults()
	rng := opts.Rand
	ds := &Dataset{}
	for i := 1; i <= opts.Events; i++ {
		name := customerNames[rng.Intn(len(customerNames))]
		event, channels, createdAt := buildEvent(i, name, opts.Now, rng)
		ds.Events = append(ds.Events, event)

		trackingID := event["event_tracking_id"].(string)
		customerID := event["customer_id"].(string)
		customerEmail := event["customer_email"].(string)
		customerPhone := event["customer_phone"].(string)
		for _, channel := range channels {
			switch channel {
			case "email":
				ds.Emails = append(ds.Emails, buildEmail(trackingID, name, customerEmail, createdAt, rng))
			case "sms":
				ds.SMS = append(ds.SMS, buildSMS(trackingID, name, customerPhone, createdAt, rng))
			case "push":
				ds.Pushes = append(ds.Pushes, buildPush(trackingID, name, customerID, createdAt, rng))
			case "in_app":
				ds.InApps = append(ds.InApps, buildInApp(trackingID, name, customerID, createdAt, rng))
			}
		}
	}
	return ds
}

// ByCollection returns the generated documents keyed by collection name.
func (d *Dataset) ByCollection() map[string][]map[string]any {
	return map[string][]map[string]any{
		CollectionEvents: d.Events,
		CollectionEmail:  d.Emails,
		CollectionSMS:    d.SMS,
		CollectionPush:   d.Pushes,
		CollectionInApp:  d.InApps,
	}
}

func buildEvent(index int, name string, now time.Time, rng *rand.Rand) (map[string]any, []string, time.Time) {
	trackingID := fmt.Sprintf("EVT-%s-%06d", now.Format("20060102"), index)
	eventType := eventTypes[rng.Intn(len(eventTypes))]
	channels := pickChannels(rng)

	createdAt := randomTimeWithin(now, 30, rng)
	processedAt := createdAt.Add(time.Duration(1+rng.Intn(300)) * time.Second)

	event := map[string]any{
		"event_tracking_id": trackingID,
		"event_name":        eventType,
		"customer_id":       fmt.Sprintf("CUST-%05d", index),
		"customer_name":     name,
		"customer_email":    emailFor(name, rng),
		"customer_phone":    phoneNumber(rng),
		"notification_type": notificationTypes[rng.Intn(len(notificationTypes))],
		"priority":          1 + rng.Intn(5),
		"subject":           fmt.Sprintf("%s - %s", titleWords(eventType), name),
		"message":           fmt.Sprintf("Your %s has been processed successfully.", strings.ToLower(strings.ReplaceAll(eventType, "_", " "))),
		"channels":          channels,
		"status":            pick(rng, "accepted", "processed"),
		"created_at":        createdAt.Format(isoLayout),
		"processed_at":      processedAt.Format(isoLayout),
		"metadata": map[string]any{
			"source":   "notification_system",
			"version":  "2.0",
			"batch_id": fmt.Sprintf("BATCH-%d", index/10),
		},
	}
	return event, channels, createdAt
}

func buildEmail(trackingID, name, email string, createdAt time.Time, rng *rand.Rand) map[string]any {
	sentAt := createdAt.Add(time.Duration(5+rng.Intn(56)) * time.Second)
	status := pick(rng, "pending", "processing", "sent", "delivered", "failed", "bounced", "read")

	doc := map[string]any{
		"event_tracking_id": trackingID,
		"recipient_email":   email,
		"recipient_name":    name,
		"subject":           fmt.Sprintf("Notification for %s", name),
		"message_body":      "This is your notification message.",
		"html_body":         "<html><body><h1>Notification</h1><p>This is your notification message.</p></body></html>",
		"status":            status,
		"sent_at":           nil,
		"delivered_at":      nil,
		"opened_at":         nil,
		"clicked_at":        nil,
		"email_provider":    emailProviders[rng.Intn(len(emailProviders))],
		"message_id":        fmt.Sprintf("MSG-%s-EMAIL", trackingID),
		"retry_count":       0,
		"error_details":     nil,
	}
	if status != "pending" {
		doc["sent_at"] = sentAt.Format(isoLayout)
	}
	if status == "delivered" || status == "read" {
		doc["delivered_at"] = sentAt.Add(time.Duration(10+rng.Intn(111)) * time.Second).Format(isoLayout)
	}
	if status == "read" {
		doc["opened_at"] = sentAt.Add(time.Duration(300+rng.Intn(86101)) * time.Second).Format(isoLayout)
		if rng.Float64() > 0.5 {
			doc["clicked_at"] = sentAt.Add(time.Duration(600+rng.Intn(89401)) * time.Second).Format(isoLayout)
		}
	}
	if status == "failed" {
		doc["retry_count"] = rng.Intn(4)
		doc["error_details"] = "SMTP connection failed"
	}
	return doc
}

func buildSMS(trackingID, name, phone string, createdAt time.Time, rng *rand.Rand) map[string]any {
	sentAt := createdAt.Add(time.Duration(5+rng.Intn(56)) * time.Second)
	status := pick(rng, "pending", "processing", "sent", "delivered", "failed")

	doc := map[string]any{
		"event_tracking_id": trackingID,
		"recipient_phone":   phone,
		"recipient_name":    name,
		"message_body":      fmt.Sprintf("Hi %s, your notification is ready. Check your account for details.", firstName(name)),
		"status":            status,
		"sent_at":           nil,
		"delivered_at":      nil,
		"sms_provider":      smsProviders[rng.Intn(len(smsProviders))],
		"message_id":        fmt.Sprintf("MSG-%s-SMS", trackingID),
		"retry_count":       0,
		"error_details":     nil,
	}
	if status != "pending" {
		doc["sent_at"] = sentAt.Format(isoLayout)
	}
	if status == "delivered" {
		doc["delivered_at"] = sentAt.Add(time.Duration(5+rng.Intn(26)) * time.Second).Format(isoLayout)
	}
	if status == "failed" {
		doc["retry_count"] = rng.Intn(3)
		doc["error_details"] = "Invalid phone number"
	}
	return doc
}

func buildPush(trackingID, name, customerID string, createdAt time.Time, rng *rand.Rand) map[string]any {
	sentAt := createdAt.Add(time.Duration(5+rng.Intn(56)) * time.Second)
	status := pick(rng, "pending", "processing", "sent", "delivered", "read")

	doc := map[string]any{
		"event_tracking_id": trackingID,
		"recipient_id":      customerID,
		"device_tokens":     []any{fmt.Sprintf("TOKEN-%04d-%04d", 1000+rng.Intn(9000), 1000+rng.Intn(9000))},
		"title":             "New Notification",
		"message_body":      fmt.Sprintf("Hi %s, you have a new notification!", firstName(name)),
		"status":            status,
		"sent_at":           nil,
		"delivered_at":      nil,
		"received_at":       nil,
		"clicked_at":        nil,
		"push_provider":     pushProviders[rng.Intn(len(pushProviders))],
		"notification_id":   fmt.Sprintf("NOTIF-%s-PUSH", trackingID),
		"retry_count":       0,
		"error_details":     nil,
	}
	if status != "pending" {
		doc["sent_at"] = sentAt.Format(isoLayout)
	}
	if status == "delivered" || status == "read" {
		doc["delivered_at"] = sentAt.Add(time.Duration(1+rng.Intn(10)) * time.Second).Format(isoLayout)
		doc["received_at"] = sentAt.Add(time.Duration(2+rng.Intn(14)) * time.Second).Format(isoLayout)
	}
	if status == "read" && rng.Float64() > 0.6 {
		doc["clicked_at"] = sentAt.Add(time.Duration(60+rng.Intn(3541)) * time.Second).Format(isoLayout)
	}
	return doc
}

func buildInApp(trackingID, name, customerID string, createdAt time.Time, rng *rand.Rand) map[string]any {
	sentAt := createdAt.Add(time.Duration(1+rng.Intn(30)) * time.Second)
	status := pick(rng, "pending", "sent", "delivered", "read")

	doc := map[string]any{
		"event_tracking_id": trackingID,
		"recipient_id":      customerID,
		"recipient_name":    name,
		"title":             "New Activity",
		"message_body":      "You have new activity in your account. Tap to view details.",
		"status":            status,
		"sent_at":           nil,
		"delivered_at":      nil,
		"read_at":           nil,
		"retry_count":       0,
		"error_details":     nil,
	}
	if status != "pending" {
		doc["sent_at"] = sentAt.Format(isoLayout)
	}
	if status == "delivered" || status == "read" {
		doc["delivered_at"] = sentAt.Add(time.Duration(1+rng.Intn(5)) * time.Second).Format(isoLayout)
	}
	if status == "read" {
		doc["read_at"] = sentAt.Add(time.Duration(60+rng.Intn(7141)) * time.Second).Format(isoLayout)
	}
	return doc
}

func pickChannels(rng *rand.Rand) []string {
	n := 1 + rng.Intn(len(allChannels))
	perm := rng.Perm(len(allChannels))
	channels := make([]string, 0, n)
	for _, idx := range perm[:n] {
		channels = append(channels, allChannels[idx])
	}
	return channels
}

func randomTimeWithin(now time.Time, maxDaysAgo int, rng *rand.Rand) time.Time {
	days := rng.Intn(maxDaysAgo + 1)
	hours := rng.Intn(24)
	minutes := rng.Intn(60)
	return now.Add(-time.Duration(days)*24*time.Hour -
		time.Duration(hours)*time.Hour -
		time.Duration(minutes)*time.Minute)
}

func emailFor(name string, rng *rand.Rand) string {
	parts := strings.Fields(strings.ToLower(name))
	domain := emailDomains[rng.Intn(len(emailDomains))]
	if len(parts) < 2 {
		return fmt.Sprintf("%s@%s", parts[0], domain)
	}
	return fmt.Sprintf("%s.%s@%s", parts[0], parts[1], domain)
}

func phoneNumber(rng *rand.Rand) string {
	return fmt.Sprintf("+1%d%d%d", 200+rng.Intn(800), 200+rng.Intn(800), 1000+rng.Intn(9000))
}

func firstName(name string) string {
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	return name
}

func pick(rng *rand.Rand, values ...string) string {
	return values[rng.Intn(len(values))]
}

func titleWords(snake string) string {
	words := strings.Split(strings.ToLower(snake), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
