package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/metrics"
	"github.com/gbroads/roadstatus/internal/models"
	"github.com/gbroads/roadstatus/internal/repositories"
	"github.com/gbroads/roadstatus/internal/sms"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxTrackedPhones bounds the per-phone limiter map
const maxTrackedPhones = 10000

// OTPStore is the interface that wraps pending phone codes
type OTPStore interface {
	// Method Save replaces the pending code of a phone.
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	// Method Verify checks and, on a match, consumes the pending code.
	//
	// After maxAttempts mismatches the pending code is discarded.
	Verify(ctx context.Context, phone, code string, maxAttempts int) (bool, error)
}

// OTPOptions configures phone sign-in
type OTPOptions struct {
	TTL          time.Duration
	Length       int
	SendInterval time.Duration
	SendBurst    int
	MaxAttempts  int
}

// otpService implements OTPService
type otpService struct {
	store    OTPStore
	sender   sms.Provider
	userRepo UserRepository
	issuer   *SessionIssuer
	metrics  metrics.MetricsCollector
	logger   *zap.Logger
	opts     OTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewOTPService creates a new OTP service
func NewOTPService(
	store OTPStore,
	sender sms.Provider,
	userRepo UserRepository,
	issuer *SessionIssuer,
	metrics metrics.MetricsCollector,
	logger *zap.Logger,
	opts OTPOptions,
) *otpService {
	return &otpService{
		store:    store,
		sender:   sender,
		userRepo: userRepo,
		issuer:   issuer,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SendOTP generates a code for the phone and texts it
func (s *otpService) SendOTP(ctx context.Context, req *models.OTPRequest) error {
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateStruct(req); err != nil {
		return err
	}

	if !s.limiter(req.Phone).Allow() {
		return apperrors.New(apperrors.KindRateLimited, "too many codes requested, try again later")
	}

	code, err := generateNumericCode(s.opts.Length)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.store.Save(ctx, req.Phone, code, s.opts.TTL); err != nil {
		return err
	}

	text := fmt.Sprintf("Your GB Roads sign-in code is %s. It expires in %d minutes.", code, int(s.opts.TTL.Minutes()))
	if _, err := s.sender.Send(ctx, sms.Message{To: req.Phone, Text: text}); err != nil {
		s.logger.Error("failed to send otp", zap.String("provider", s.sender.Name()), zap.Error(err))
		return fmt.Errorf("failed to send code: %w", err)
	}

	s.metrics.RecordOTPSent()
	return nil
}

// VerifyOTP signs a phone in, creating its account on first use
func (s *otpService) VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.Session, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Code = strings.TrimSpace(req.Code)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	ok, err := s.store.Verify(ctx, req.Phone, req.Code, s.opts.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.New(apperrors.KindAuthRequired, "invalid or expired code")
	}

	user, err := s.userRepo.GetByPhone(ctx, req.Phone)
	if errors.Is(err, repositories.ErrNotFound) {
		phone := req.Phone
		user = &models.User{Phone: &phone}
		err = s.userRepo.Create(ctx, user)
	}
	if err != nil {
		return nil, err
	}

	session, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignIn("otp")
	return session, nil
}

// limiter returns the send limiter of a phone.
// When the map is full, limiters that have refilled completely are dropped.
func (s *otpService) limiter(phone string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters[phone]; ok {
		return l
	}

	if len(s.limiters) >= maxTrackedPhones {
		for p, l := range s.limiters {
			if l.Tokens() >= float64(l.Burst()) {
				delete(s.limiters, p)
			}
		}
	}

	l := rate.NewLimiter(rate.Every(s.opts.SendInterval), s.opts.SendBurst)
	s.limiters[phone] = l
	return l
}

// generateNumericCode returns a uniformly random decimal code of the given length
func generateNumericCode(length int) (string, error) {
	if length < 4 {
		length = 4
	}
	var sb strings.Builder
	for range length {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
