package handler

import (
    "context"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/service"
)

// SessionAPI is the part of service.SessionService the handlers use.
type SessionAPI interface {
    IssueTokens(ctx context.Context, subjectID string, aud model.Audience, meta model.ClientMeta) (service.TokenPair, error)
    RotateRefreshToken(ctx context.Context, token string, aud model.Audience, meta model.ClientMeta) (service.TokenPair, error)
    RevokeAll(ctx context.Context, subjectID string, aud model.Audience) (int64, error)
    Logout(ctx context.Context, token string, aud model.Audience)
}

// accessResp is the body returned by every login and refresh.  The refresh
// token itself only travels in the cookie.
type accessResp struct {
    Access    string `json:"access"`
    ExpiresAt int64  `json:"expiresAt"` // unix seconds
}

func toAccessResp(p service.TokenPair) accessResp {
    return accessResp{Access: p.Access.Token, ExpiresAt: p.Access.Exp.Unix()}
}
