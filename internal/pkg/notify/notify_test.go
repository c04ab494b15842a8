package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func testEvent(kind EventKind) EnrollmentEvent {
	return EnrollmentEvent{
		Kind:       kind,
		StudentID:  42,
		CourseID:   7,
		CourseCode: "CS101",
		CourseName: "Programming",
		At:         time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestRecipientAddress(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"s{id}@uni.edu", "s42@uni.edu"},
		{"{id}@students.uni.edu", "42@students.uni.edu"},
		{"static@uni.edu", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RecipientAddress(tt.pattern, 42); got != tt.want {
			t.Errorf("RecipientAddress(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestSMTPNotifierSendsMessage(t *testing.T) {
	sender := &fakeSender{}
	n := &SMTPNotifier{
		config: SMTPConfig{From: "registrar@uni.edu", AddressPattern: "s{id}@uni.edu"},
		sender: sender,
		logger: zerolog.Nop(),
	}

	if err := n.Notify(context.Background(), testEvent(EventSelected)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "s42@uni.edu" {
		t.Fatalf("unexpected To header %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Enrolled in CS101 Programming" {
		t.Fatalf("unexpected Subject header %v", got)
	}
}

func TestSMTPNotifierErrors(t *testing.T) {
	n := &SMTPNotifier{
		config: SMTPConfig{AddressPattern: "s{id}@uni.edu"},
		sender: &fakeSender{err: errors.New("connection refused")},
		logger: zerolog.Nop(),
	}
	if err := n.Notify(context.Background(), testEvent(EventDropped)); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}

	n.config.AddressPattern = ""
	if err := n.Notify(context.Background(), testEvent(EventDropped)); err == nil {
		t.Fatal("expected error without recipient pattern")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.config.AddressPattern = "s{id}@uni.edu"
	if err := n.Notify(ctx, testEvent(EventDropped)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewPicksNotifier(t *testing.T) {
	if _, ok := New(SMTPConfig{}, zerolog.Nop()).(*LogNotifier); !ok {
		t.Fatal("expected LogNotifier without host")
	}
	if _, ok := New(SMTPConfig{Host: "smtp.uni.edu", Port: 587}, zerolog.Nop()).(*SMTPNotifier); !ok {
		t.Fatal("expected SMTPNotifier with host")
	}
}

func TestBody(t *testing.T) {
	body := Body(testEvent(EventDropped))
	if !strings.Contains(body, "dropped Programming (CS101)") || !strings.Contains(body, "2026-03-01T08:00:00Z") {
		t.Fatalf("unexpected body %q", body)
	}
}
