package testutil

import (
	"context"
	"sync"
)

// SentEmail captures one delivery made through the RecordingEmailSender.
type SentEmail struct {
	To      []string
	Subject string
	Body    string
}

// RecordingEmailSender implements email.Sender and records deliveries.
type RecordingEmailSender struct {
	mu   sync.Mutex
	sent []SentEmail
}

func NewRecordingEmailSender() *RecordingEmailSender {
	return &RecordingEmailSender{}
}

func (s *RecordingEmailSender) Send(_ context.Context, to []string, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (s *RecordingEmailSender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentEmail{}, s.sent...)
}

// StaticReferralResolver implements service.ReferralResolver from a fixed map.
type StaticReferralResolver struct {
	Referrers map[string]string
}

func (r StaticReferralResolver) ReferrerOf(_ context.Context, userID string) (string, error) {
	return r.Referrers[userID], nil
}
