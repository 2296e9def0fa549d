package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TokenIssuer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"loanbroker/internal/auth/metrics"
	"loanbroker/internal/auth/models"
	"loanbroker/internal/events"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/sentinel"
	"loanbroker/pkg/requestcontext"
)

var tracer = otel.Tracer("loanbroker/auth")

// UserStore persists accounts. Save returns sentinel.ErrAlreadyUsed when the
// email is taken; finders return sentinel.ErrNotFound.
type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, role string, email string, expiresIn time.Duration) (string, time.Time, error)
}

const tokenType = "Bearer"

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

type Service struct {
	users      UserStore
	tokens     TokenIssuer
	tx         TxRunner
	publisher  events.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tokenTTL   time.Duration
	bcryptCost int
	dummyHash  []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// WithBcryptCost lowers the hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(users UserStore, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil || tokens == nil {
		return nil, errors.New("auth service: users and tokens are required")
	}
	s := &Service{
		users:      users,
		tokens:     tokens,
		tx:         NoopTx{},
		logger:     slog.Default(),
		tokenTTL:   24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	// login against unknown emails still pays for one comparison
	hash, err := bcrypt.GenerateFromPassword([]byte("loanbroker-timing-equalizer"), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.dummyHash = hash
	return s, nil
}

// Register creates a customer account and logs it in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Email, req.Password, req.Name, models.RoleUser)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", user.ID.String()))

	s.metrics.IncrementUsersRegistered()
	s.publish(ctx, events.New(events.UserRegistered, user.ID.String(), user.CreatedAt, map[string]any{
		"role": string(user.Role),
	}))
	return s.issue(user)
}

// Login exchanges credentials for a bearer token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			s.metrics.IncrementLogin("failure")
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.IncrementLogin("failure")
		s.logger.WarnContext(ctx, "login failed",
			"user_id", user.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, errInvalidCredentials
	}
	s.metrics.IncrementLogin("success")
	return s.issue(user)
}

// Me returns the account behind the authenticated identity.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account when it is configured and
// missing. It is a no-op when email is empty.
func (s *Service) EnsureAdmin(ctx context.Context, adminEmail, password string) error {
	req := models.RegisterRequest{Email: adminEmail, Password: password, Name: "Administrator"}
	req.Normalize()
	if req.Email == "" {
		return nil
	}
	if err := req.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid admin bootstrap configuration")
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil && existing.IsAdmin():
		return nil
	case err == nil:
		return dErrors.New(dErrors.CodeConflict, "bootstrap admin email belongs to a customer account")
	case !errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}

	user, err := s.createUser(ctx, req.Email, req.Password, req.Name, models.RoleAdmin)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", user.ID.String())
	return nil
}

func (s *Service) createUser(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.FindByEmail(ctx, email); err == nil {
			return sentinel.ErrAlreadyUsed
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return s.users.Save(ctx, user)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}
	return user, nil
}

func (s *Service) issue(user *models.User) (*models.TokenResult, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, string(user.Role), user.Email, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &models.TokenResult{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresAt:   expiresAt,
		User:        models.ToUserResponse(user),
	}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", string(event.Type),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
