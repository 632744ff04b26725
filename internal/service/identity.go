package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/model"
	"github.com/iliyamo/university-events/internal/repository"
	"github.com/iliyamo/university-events/internal/session"
	"github.com/iliyamo/university-events/internal/utils"
)

const minPasswordLen = 6

// UserStore is the slice of the user repository the identity service needs.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// IdentityConfig carries the settings the identity service reads at
// construction.
type IdentityConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	BcryptCost    int
}

// IdentityService registers and authenticates users and manages their
// sessions and CSRF tokens.
type IdentityService struct {
	users     UserStore
	sessions  session.Store
	cfg       IdentityConfig
	validate  *validator.Validate
	dummyHash string
}

// NewIdentityService wires the service.  It hashes a throwaway password
// once so that logins for unknown emails can spend the same bcrypt time
// as logins for known ones.
func NewIdentityService(users UserStore, sessions session.Store, cfg IdentityConfig) (*IdentityService, error) {
	dummy, err := utils.HashPassword("not-a-real-password", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &IdentityService{
		users:     users,
		sessions:  sessions,
		cfg:       cfg,
		validate:  validator.New(),
		dummyHash: dummy,
	}, nil
}

// SessionTTL is how long a session (and its cookie) lives.
func (s *IdentityService) SessionTTL() time.Duration { return s.cfg.SessionTTL }

// Registration is the self-service sign-up form.
type Registration struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

// Register creates a participant or organizer account and returns its id.
// Any other requested role is replaced by participant.
func (s *IdentityService) Register(ctx context.Context, r Registration) (uint64, error) {
	name, email := strings.TrimSpace(r.Name), strings.TrimSpace(r.Email)
	msgs := s.checkAccount(name, email, r.Password)
	if r.Password != r.ConfirmPassword {
		msgs = append(msgs, "Passwords do not match.")
	}
	if len(msgs) > 0 {
		return 0, ValidationError(msgs...)
	}
	role, ok := model.SelfServiceRole(r.Role)
	if !ok {
		logrus.WithField("requested_role", r.Role).Info("register: unsupported role, defaulting to participant")
	}
	return s.createUser(ctx, name, email, r.Password, role)
}

// ProvisionOrganizer creates an organizer account on behalf of an admin.
func (s *IdentityService) ProvisionOrganizer(ctx context.Context, name, email, password string) (uint64, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if msgs := s.checkAccount(name, email, password); len(msgs) > 0 {
		return 0, ValidationError(msgs...)
	}
	return s.createUser(ctx, name, email, password, model.RoleOrganizer)
}

// EnsureAdmin creates the bootstrap admin when it does not exist yet.
// Nothing happens when email or password is empty.
func (s *IdentityService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if msgs := s.checkAccount(name, email, password); len(msgs) > 0 {
		return ValidationError(msgs...)
	}
	id, err := s.createUser(ctx, name, email, password, model.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": id, "email": email}).Info("bootstrap admin created")
	return nil
}

func (s *IdentityService) checkAccount(name, email, password string) []string {
	var msgs []string
	if name == "" {
		msgs = append(msgs, "Name is required.")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		msgs = append(msgs, "A valid email address is required.")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		msgs = append(msgs, "Password must be at least 6 characters.")
	} else if len(password) > utils.MaxPasswordBytes {
		msgs = append(msgs, "Password is too long.")
	}
	return msgs
}

func (s *IdentityService) createUser(ctx context.Context, name, email, password string, role model.Role) (uint64, error) {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return 0, storageError("check email", err)
	}
	if exists {
		return 0, ErrEmailTaken
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return 0, storageError("hash password", err)
	}
	id, err := s.users.Create(ctx, name, email, hash, role)
	if errors.Is(err, repository.ErrEmailExists) {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, storageError("create user", err)
	}
	return id, nil
}

// Authenticate checks an email/password pair.  Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummyHash, password)
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, storageError("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u.Public(), nil
}

// StartAnonymous opens a session for a visitor who is not logged in yet,
// so forms rendered before login can carry a CSRF token.
func (s *IdentityService) StartAnonymous(ctx context.Context) (session.Session, utils.SessionToken, error) {
	sess := session.New(s.cfg.SessionTTL)
	return s.persist(ctx, sess)
}

// CreateSession logs u in on a fresh session.  previousID, when set, is
// the anonymous session being replaced; it is destroyed so the old id
// cannot be replayed.
func (s *IdentityService) CreateSession(ctx context.Context, u model.User, previousID string) (session.Session, utils.SessionToken, error) {
	if previousID != "" {
		if err := s.sessions.Delete(ctx, previousID); err != nil {
			return session.Session{}, utils.SessionToken{}, storageError("drop previous session", err)
		}
	}
	sess := session.New(s.cfg.SessionTTL)
	sess.UserID = u.ID
	sess.Name = u.Name
	sess.Email = u.Email
	sess.Role = u.Role
	return s.persist(ctx, sess)
}

func (s *IdentityService) persist(ctx context.Context, sess session.Session) (session.Session, utils.SessionToken, error) {
	csrf, err := utils.NewCSRFToken()
	if err != nil {
		return session.Session{}, utils.SessionToken{}, storageError("mint csrf token", err)
	}
	sess.CSRFToken = csrf
	if err := s.sessions.Save(ctx, sess); err != nil {
		return session.Session{}, utils.SessionToken{}, storageError("save session", err)
	}
	tok, err := utils.NewSessionToken(s.cfg.SessionSecret, sess.ID, s.cfg.SessionTTL)
	if err != nil {
		return session.Session{}, utils.SessionToken{}, storageError("sign session", err)
	}
	return sess, tok, nil
}

// Resolve maps a cookie value to its live session.  A bad signature, an
// expired token and a deleted record all return session.ErrNotFound.
func (s *IdentityService) Resolve(ctx context.Context, raw string) (session.Session, error) {
	if raw == "" {
		return session.Session{}, session.ErrNotFound
	}
	id, err := utils.ParseSessionToken(s.cfg.SessionSecret, raw)
	if err != nil {
		return session.Session{}, session.ErrNotFound
	}
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, err
	}
	if err != nil {
		return session.Session{}, storageError("load session", err)
	}
	return sess, nil
}

// CurrentUser returns the logged-in user behind a cookie value.
func (s *IdentityService) CurrentUser(ctx context.Context, raw string) (model.User, error) {
	sess, err := s.Resolve(ctx, raw)
	if errors.Is(err, session.ErrNotFound) {
		return model.User{}, ErrLoginRequired
	}
	if err != nil {
		return model.User{}, err
	}
	if !sess.Authenticated() {
		return model.User{}, ErrLoginRequired
	}
	return sess.User(), nil
}

// DestroySession deletes the server-side record behind a cookie value so
// the token stops working everywhere.
func (s *IdentityService) DestroySession(ctx context.Context, raw string) error {
	id, err := utils.ParseSessionToken(s.cfg.SessionSecret, raw)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return storageError("delete session", err)
	}
	return nil
}

// CSRFToken returns the session's CSRF token, minting and saving one if
// the session has none yet.
func (s *IdentityService) CSRFToken(ctx context.Context, sess *session.Session) (string, error) {
	if sess.CSRFToken != "" {
		return sess.CSRFToken, nil
	}
	tok, err := utils.NewCSRFToken()
	if err != nil {
		return "", storageError("mint csrf token", err)
	}
	sess.CSRFToken = tok
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return "", storageError("save session", err)
	}
	return tok, nil
}

// VerifyCSRF compares the presented token with the one on the session in
// constant time.
func (s *IdentityService) VerifyCSRF(sess session.Session, presented string) error {
	if sess.CSRFToken == "" || presented == "" {
		return ErrInvalidCSRF
	}
	if subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(presented)) != 1 {
		return ErrInvalidCSRF
	}
	return nil
}
