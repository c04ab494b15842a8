package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EventKind names an enrollment transition
type EventKind string

const (
	EventSelected EventKind = "selected"
	EventDropped  EventKind = "dropped"
)

// EnrollmentEvent is published after a select or drop has committed
type EnrollmentEvent struct {
	Kind       EventKind
	StudentID  int64
	CourseID   int64
	CourseCode string
	CourseName string
	At         time.Time
}

// Notifier delivers enrollment events to students
type Notifier interface {
	Notify(ctx context.Context, event EnrollmentEvent) error
}

// SMTPConfig holds configuration for the SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// AddressPattern builds the recipient address; "{id}" is replaced by the student id.
	AddressPattern string
}

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends one email per event
type SMTPNotifier struct {
	config SMTPConfig
	sender mailSender
	logger zerolog.Logger
}

// NewSMTPNotifier creates a notifier that dials the configured SMTP server per message
func NewSMTPNotifier(config SMTPConfig, logger zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		config: config,
		sender: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}
}

// Notify sends the event to the student's address
func (n *SMTPNotifier) Notify(ctx context.Context, event EnrollmentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := RecipientAddress(n.config.AddressPattern, event.StudentID)
	if to == "" {
		return fmt.Errorf("no recipient address for student %d", event.StudentID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", Subject(event))
	msg.SetBody("text/plain", Body(event))

	if err := n.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send enrollment email: %w", err)
	}

	n.logger.Debug().
		Str("to", to).
		Str("kind", string(event.Kind)).
		Int64("courseId", event.CourseID).
		Msg("Enrollment email sent")
	return nil
}

// LogNotifier only logs events. Used when no SMTP host is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event
func (n *LogNotifier) Notify(_ context.Context, event EnrollmentEvent) error {
	n.logger.Info().
		Str("kind", string(event.Kind)).
		Int64("studentId", event.StudentID).
		Int64("courseId", event.CourseID).
		Str("courseCode", event.CourseCode).
		Time("at", event.At).
		Msg("Enrollment event")
	return nil
}

// New returns an SMTP notifier when a host is configured and a log notifier otherwise
func New(config SMTPConfig, logger zerolog.Logger) Notifier {
	if strings.TrimSpace(config.Host) == "" {
		logger.Warn().Msg("SMTP host not configured - enrollment notifications will only be logged")
		return NewLogNotifier(logger)
	}
	return NewSMTPNotifier(config, logger)
}

// RecipientAddress expands pattern for studentID
func RecipientAddress(pattern string, studentID int64) string {
	if !strings.Contains(pattern, "{id}") {
		return ""
	}
	return strings.ReplaceAll(pattern, "{id}", strconv.FormatInt(studentID, 10))
}

// Subject returns the email subject for event
func Subject(event EnrollmentEvent) string {
	switch event.Kind {
	case EventSelected:
		return fmt.Sprintf("Enrolled in %s %s", event.CourseCode, event.CourseName)
	case EventDropped:
		return fmt.Sprintf("Dropped %s %s", event.CourseCode, event.CourseName)
	default:
		return fmt.Sprintf("Enrollment update for %s", event.CourseCode)
	}
}

// Body returns the plain text email body for event
func Body(event EnrollmentEvent) string {
	var b strings.Builder
	switch event.Kind {
	case EventSelected:
		fmt.Fprintf(&b, "You now hold a seat in %s (%s).\n", event.CourseName, event.CourseCode)
	case EventDropped:
		fmt.Fprintf(&b, "You have dropped %s (%s). You may select it again while seats remain.\n", event.CourseName, event.CourseCode)
	default:
		fmt.Fprintf(&b, "Your enrollment in %s (%s) changed.\n", event.CourseName, event.CourseCode)
	}
	fmt.Fprintf(&b, "Time: %s\n", event.At.UTC().Format(time.RFC3339))
	return b.String()
}
