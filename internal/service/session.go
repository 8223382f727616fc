package service

import (
    "context"
    "time"

    "github.com/google/uuid"
    "github.com/pkg/errors"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/obs"
    "github.com/iliyamo/session-auth/internal/queue"
    "github.com/iliyamo/session-auth/internal/repository"
    "github.com/iliyamo/session-auth/internal/utils"
)

// SessionStore is the refresh session ledger.  repository.TokenRepo is the
// MySQL implementation.
type SessionStore interface {
    Create(ctx context.Context, s model.TokenSession) error
    // Rotate must revoke oldRefreshID and insert next atomically, returning
    // repository.ErrNotFound when the old session is not active.
    Rotate(ctx context.Context, oldRefreshID string, next model.TokenSession, now time.Time) (model.TokenSession, error)
    RevokeByRefreshID(ctx context.Context, refreshID string, now time.Time) (bool, error)
    RevokeAll(ctx context.Context, subjectID string, aud model.Audience, now time.Time) (int64, error)
}

// EventSink receives session audit events.  Delivery is best effort.
type EventSink interface {
    Publish(ctx context.Context, ev queue.SessionEvent) error
}

// SessionConfig holds the signing secrets and lifetimes.  The two secrets
// must differ so that neither token kind verifies as the other.
type SessionConfig struct {
    AccessSecret  string
    RefreshSecret string
    AccessTTL     time.Duration
    RefreshTTL    time.Duration
}

// TokenPair is what a login or rotation hands back to the client.
type TokenPair struct {
    Access    utils.SignedToken
    Refresh   utils.SignedToken
    SessionID string
    Audience  model.Audience
    SubjectID string
}

// SessionService issues, rotates and revokes refresh sessions.
type SessionService struct {
    store   SessionStore
    cfg     SessionConfig
    log     logrus.FieldLogger
    events  EventSink
    metrics *obs.Metrics
    now     func() time.Time
    newID   func() string
}

type SessionOption func(*SessionService)

func WithClock(now func() time.Time) SessionOption {
    return func(s *SessionService) { s.now = now }
}

func WithSessionIDs(gen func() string) SessionOption {
    return func(s *SessionService) { s.newID = gen }
}

func WithEvents(sink EventSink) SessionOption {
    return func(s *SessionService) { s.events = sink }
}

func WithMetrics(m *obs.Metrics) SessionOption {
    return func(s *SessionService) { s.metrics = m }
}

func WithLogger(log logrus.FieldLogger) SessionOption {
    return func(s *SessionService) { s.log = log }
}

func NewSessionService(store SessionStore, cfg SessionConfig, opts ...SessionOption) *SessionService {
    s := &SessionService{
        store: store,
        cfg:   cfg,
        log:   logrus.StandardLogger(),
        now:   time.Now,
        newID: uuid.NewString,
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

// IssueTokens creates a new ACTIVE session for subjectID and signs a token
// pair for it.
func (s *SessionService) IssueTokens(ctx context.Context, subjectID string, aud model.Audience, meta model.ClientMeta) (TokenPair, error) {
    if subjectID == "" || !aud.Valid() {
        return TokenPair{}, errors.Errorf("cannot issue session for subject %q audience %q", subjectID, aud)
    }
    now := s.now().UTC()
    sess := model.TokenSession{
        Audience:  aud,
        SubjectID: subjectID,
        RefreshID: s.newID(),
        UserAgent: meta.UserAgent,
        IP:        meta.IP,
        ExpiresAt: now.Add(s.cfg.RefreshTTL),
    }
    if err := s.store.Create(ctx, sess); err != nil {
        return TokenPair{}, errors.Wrap(err, "create session")
    }
    pair, err := s.sign(sess, now)
    if err != nil {
        return TokenPair{}, err
    }

    s.metrics.Issued(string(aud))
    s.emit(ctx, queue.SessionEvent{
        Type: queue.EventIssued, Audience: string(aud), SubjectID: subjectID,
        SessionID: sess.RefreshID, IP: meta.IP, UserAgent: meta.UserAgent, At: now,
    })
    return pair, nil
}

// RotateRefresh exchanges the session refreshID for a new one.  The old
// session is revoked in the same transaction that creates its successor;
// of two concurrent calls with the same id at most one succeeds.
func (s *SessionService) RotateRefresh(ctx context.Context, refreshID string, meta model.ClientMeta) (TokenPair, error) {
    return s.rotate(ctx, refreshID, "", meta)
}

// RotateRefreshToken verifies a refresh JWT for aud and rotates its session.
// Every failure, including a token of the other audience, is reported as
// ErrInvalidSession.
func (s *SessionService) RotateRefreshToken(ctx context.Context, token string, aud model.Audience, meta model.ClientMeta) (TokenPair, error) {
    claims, err := utils.ParseRefreshToken(s.cfg.RefreshSecret, token, s.now())
    if err != nil || claims.Type != aud {
        s.metrics.RotationRejected(string(aud))
        return TokenPair{}, ErrInvalidSession
    }
    return s.rotate(ctx, claims.SID, aud, meta)
}

func (s *SessionService) rotate(ctx context.Context, refreshID string, aud model.Audience, meta model.ClientMeta) (TokenPair, error) {
    now := s.now().UTC()
    next := model.TokenSession{
        RefreshID: s.newID(),
        UserAgent: meta.UserAgent,
        IP:        meta.IP,
        ExpiresAt: now.Add(s.cfg.RefreshTTL),
    }
    sess, err := s.store.Rotate(ctx, refreshID, next, now)
    if errors.Is(err, repository.ErrNotFound) {
        s.metrics.RotationRejected(string(aud))
        s.log.WithFields(logrus.Fields{"sid": refreshID, "audience": aud}).Info("refresh rejected: session not active")
        s.emit(ctx, queue.SessionEvent{
            Type: queue.EventRotationRejected, Audience: string(aud), SessionID: refreshID,
            IP: meta.IP, UserAgent: meta.UserAgent, At: now,
        })
        return TokenPair{}, ErrInvalidSession
    }
    if err != nil {
        return TokenPair{}, errors.Wrap(err, "rotate session")
    }

    pair, err := s.sign(sess, now)
    if err != nil {
        return TokenPair{}, err
    }
    s.metrics.Rotated(string(sess.Audience))
    s.emit(ctx, queue.SessionEvent{
        Type: queue.EventRotated, Audience: string(sess.Audience), SubjectID: sess.SubjectID,
        SessionID: sess.RefreshID, PreviousID: refreshID, IP: meta.IP, UserAgent: meta.UserAgent, At: now,
    })
    return pair, nil
}

// RevokeBySid revokes one session.  Unknown or already revoked ids are not
// an error.
func (s *SessionService) RevokeBySid(ctx context.Context, refreshID string) error {
    now := s.now().UTC()
    changed, err := s.store.RevokeByRefreshID(ctx, refreshID, now)
    if err != nil {
        return errors.Wrap(err, "revoke session")
    }
    if changed {
        s.metrics.Revoked("any", "one", 1)
        s.emit(ctx, queue.SessionEvent{Type: queue.EventRevoked, SessionID: refreshID, At: now})
    }
    return nil
}

// RevokeAll revokes every active session of subjectID within aud and
// reports how many were revoked.  Sessions of the other audience are
// untouched.
func (s *SessionService) RevokeAll(ctx context.Context, subjectID string, aud model.Audience) (int64, error) {
    now := s.now().UTC()
    n, err := s.store.RevokeAll(ctx, subjectID, aud, now)
    if err != nil {
        return 0, errors.Wrap(err, "revoke all sessions")
    }
    s.metrics.Revoked(string(aud), "all", n)
    s.emit(ctx, queue.SessionEvent{
        Type: queue.EventRevokedAll, Audience: string(aud), SubjectID: subjectID, Count: n, At: now,
    })
    return n, nil
}

// Logout revokes the session behind a refresh token when the token verifies
// for aud.  It never fails: an invalid token or a storage error is logged
// and the client is logged out regardless.
func (s *SessionService) Logout(ctx context.Context, token string, aud model.Audience) {
    if token == "" {
        return
    }
    claims, err := utils.ParseRefreshToken(s.cfg.RefreshSecret, token, s.now())
    if err != nil || claims.Type != aud {
        return
    }
    if err := s.RevokeBySid(ctx, claims.SID); err != nil {
        s.log.WithError(err).WithField("sid", claims.SID).Warn("logout: revoke failed")
    }
}

// VerifyAccess checks an access token's signature and expiry and that it
// was issued for aud.  The ledger is not consulted: an access token stays
// valid until it expires even if its session is revoked.
func (s *SessionService) VerifyAccess(token string, aud model.Audience) (*utils.AccessClaims, error) {
    claims, err := utils.ParseAccessToken(s.cfg.AccessSecret, token, s.now())
    if err != nil {
        return nil, ErrInvalidSession
    }
    if claims.Type != aud {
        return nil, ErrWrongAudience
    }
    return claims, nil
}

func (s *SessionService) sign(sess model.TokenSession, now time.Time) (TokenPair, error) {
    access, err := utils.NewAccessToken(s.cfg.AccessSecret, sess.SubjectID, sess.Audience, s.cfg.AccessTTL, now)
    if err != nil {
        return TokenPair{}, errors.Wrap(err, "sign access token")
    }
    refresh, err := utils.NewRefreshToken(s.cfg.RefreshSecret, sess.RefreshID, sess.Audience, sess.ExpiresAt, now)
    if err != nil {
        return TokenPair{}, errors.Wrap(err, "sign refresh token")
    }
    return TokenPair{
        Access:    access,
        Refresh:   refresh,
        SessionID: sess.RefreshID,
        Audience:  sess.Audience,
        SubjectID: sess.SubjectID,
    }, nil
}

func (s *SessionService) emit(ctx context.Context, ev queue.SessionEvent) {
    if s.events == nil {
        return
    }
    if err := s.events.Publish(ctx, ev); err != nil {
        s.log.WithError(err).WithField("type", ev.Type).Debug("session event not delivered")
    }
}
