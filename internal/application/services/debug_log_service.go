package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/anticipaterdotcom/ga4-events/internal/domain/entities/tracking"
	"github.com/anticipaterdotcom/ga4-events/internal/domain/repositories"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/messaging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
)

const (
	maxEventNameLength = 100
	maxPageURLLength   = 500
	maxUserAgentLength = 500
	maxIPLength        = 45
)

// SettingsSource supplies the current tracking settings.
type SettingsSource interface {
	Settings() tracking.Settings
}

// Limiter admits or rejects a request from a client address.
type Limiter interface {
	Allow(ip string) bool
}

// LogSubmission is one record posted to the debug log sink.
type LogSubmission struct {
	EventName string
	EventData string
	PageURL   string
	Token     string
	UserAgent string
	IPAddress string
}

// DebugLogService records the debug copies of emitted events.
type DebugLogService struct {
	repo      repositories.EventLogRepository
	settings  SettingsSource
	limiter   Limiter
	publisher messaging.Publisher
	jwtSecret string
	logger    *logging.ChanneledLogger
}

// NewDebugLogService wires the sink. publisher may be nil.
func NewDebugLogService(
	repo repositories.EventLogRepository,
	settings SettingsSource,
	limiter Limiter,
	publisher messaging.Publisher,
	jwtSecret string,
	logger *logging.ChanneledLogger,
) *DebugLogService {
	return &DebugLogService{
		repo:      repo,
		settings:  settings,
		limiter:   limiter,
		publisher: publisher,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Record validates and stores a submission. The token is checked first,
// then the debug flag, then the per-address rate limit.
func (s *DebugLogService) Record(sub LogSubmission) (*tracking.LogEntry, error) {
	if _, err := security.ValidateTokenType(sub.Token, s.jwtSecret, security.TokenTypeEventLog); err != nil {
		s.logger.Sink().Debug("Log submission rejected", "reason", "token", "error", err.Error())
		return nil, ErrInvalidToken
	}
	if !s.settings.Settings().DebugMode {
		return nil, ErrDebugDisabled
	}
	if s.limiter != nil && !s.limiter.Allow(sub.IPAddress) {
		s.logger.Sink().Warn("Log submission rate limited", "ip", sub.IPAddress)
		return nil, ErrRateLimited
	}

	entry := &tracking.LogEntry{
		EventName: truncate(sanitizeText(sub.EventName), maxEventNameLength),
		EventData: normalizeEventData(sub.EventData),
		PageURL:   truncate(sanitizeURL(sub.PageURL), maxPageURLLength),
		UserAgent: truncate(sanitizeText(sub.UserAgent), maxUserAgentLength),
		IPAddress: truncate(sanitizeText(sub.IPAddress), maxIPLength),
	}
	if err := s.repo.Store(entry); err != nil {
		s.logger.LogError(logging.ChannelSink, "record", err, map[string]any{"event": entry.EventName})
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	s.logger.Sink().Debug("Event recorded", "event", entry.EventName, "id", entry.ID)
	if s.publisher != nil {
		s.publisher.Publish(entry)
	}
	return entry, nil
}

// List returns recorded entries, newest first.
func (s *DebugLogService) List(filter tracking.LogFilter) ([]*tracking.LogEntry, error) {
	return s.repo.List(filter)
}

// Clear removes every recorded entry.
func (s *DebugLogService) Clear() (int64, error) {
	n, err := s.repo.Clear()
	if err != nil {
		return 0, err
	}
	s.logger.Sink().Info("Event log cleared", "removed", n)
	return n, nil
}

// normalizeEventData keeps valid JSON as posted and replaces anything else
// with an empty array.
func normalizeEventData(data string) string {
	if strings.TrimSpace(data) == "" || !json.Valid([]byte(data)) {
		return "[]"
	}
	return data
}

// sanitizeText collapses whitespace and drops control characters.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeURL keeps absolute http(s) URLs and drops everything else.
func sanitizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
