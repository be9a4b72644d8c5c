// Package contactlog loads the outreach history used for cooldown and
// reply filtering. Entries are keyed by normalized phone number.
package contactlog

import (
	"strings"
	"time"
)

// Entry is the latest known contact with one phone number.
type Entry struct {
	Phone        string    `json:"phone"`
	LastContact  time.Time `json:"last_contact"`
	Owner        string    `json:"owner,omitempty"`
	ReplyStatus  string    `json:"reply_status,omitempty"`
	Note         string    `json:"note,omitempty"`
	NextContact  time.Time `json:"next_contact"`
	Happiness    float64   `json:"happiness,omitempty"`
	HasHappiness bool      `json:"-"`
}

// Log maps a normalized phone number to its latest entry.
type Log map[string]Entry

// Lookup returns the entry for phone.
func (l Log) Lookup(phone string) (Entry, bool) {
	if l == nil || phone == "" {
		return Entry{}, false
	}
	e, ok := l[phone]
	return e, ok
}

// Merge keeps the most recent contact per phone. Reply status and note
// always come from the newest entry. Owner, next contact and happiness
// fall back to the older entry when the newer one leaves them empty.
func (l Log) Merge(e Entry) {
	if e.Phone == "" {
		return
	}
	old, ok := l[e.Phone]
	if !ok {
		l[e.Phone] = e
		return
	}
	newer, older := e, old
	if old.LastContact.After(e.LastContact) {
		newer, older = old, e
	}
	if newer.Owner == "" {
		newer.Owner = older.Owner
	}
	if newer.NextContact.IsZero() {
		newer.NextContact = older.NextContact
	}
	if !newer.HasHappiness && older.HasHappiness {
		newer.Happiness, newer.HasHappiness = older.Happiness, true
	}
	l[e.Phone] = newer
}

var noReplyMarkers = []string{"未回复", "不感兴趣", "拒绝", "no reply", "not interested"}

// NoReply reports whether the entry's reply status says the customer
// did not answer or declined.
func (e Entry) NoReply() bool {
	status := strings.ToLower(strings.TrimSpace(e.ReplyStatus))
	if status == "" {
		return false
	}
	for _, m := range noReplyMarkers {
		if strings.Contains(status, m) {
			return true
		}
	}
	return false
}
