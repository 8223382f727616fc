package middleware

// identity.go derives the requester identity used for throttling and for
// the client metadata recorded on new sessions.

import (
    "net"
    "strings"
    "unicode/utf8"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
)

const maxUserAgent = 512

// IPExtractor decides where the client address comes from.  With no trusted
// proxies it is the socket peer and forwarding headers are ignored.
// Otherwise X-Forwarded-For is honoured only for hops inside the listed
// ranges (CIDRs or single addresses).
func IPExtractor(trusted []string) (echo.IPExtractor, error) {
    if len(trusted) == 0 {
        return echo.ExtractIPDirect(), nil
    }
    opts := []echo.TrustOption{
        echo.TrustLoopback(false),
        echo.TrustLinkLocal(false),
        echo.TrustPrivateNet(false),
    }
    for _, t := range trusted {
        t = strings.TrimSpace(t)
        if t == "" {
            continue
        }
        if !strings.Contains(t, "/") {
            ip := net.ParseIP(t)
            if ip == nil {
                return nil, errors.Errorf("trusted proxy %q is not an address", t)
            }
            if ip.To4() != nil {
                t += "/32"
            } else {
                t += "/128"
            }
        }
        _, ipNet, err := net.ParseCIDR(t)
        if err != nil {
            return nil, errors.Wrapf(err, "trusted proxy %q", t)
        }
        opts = append(opts, echo.TrustIPRange(ipNet))
    }
    return echo.ExtractIPFromXFFHeader(opts...), nil
}

// ClientIP is the requester's network identity as seen through Echo's IP
// extractor, in canonical form.  It is "unknown" when the extractor yields
// something that is not an IP address.
func ClientIP(c echo.Context) string {
    if ip := net.ParseIP(strings.TrimSpace(c.RealIP())); ip != nil {
        return ip.String()
    }
    return "unknown"
}

// ClientMeta captures user agent and IP for a session row.  The user agent
// is cut to maxUserAgent bytes on a rune boundary.
func ClientMeta(c echo.Context) model.ClientMeta {
    return model.ClientMeta{UserAgent: truncateUTF8(c.Request().UserAgent(), maxUserAgent), IP: ClientIP(c)}
}

func truncateUTF8(s string, n int) string {
    s = strings.ToValidUTF8(s, "")
    if len(s) <= n {
        return s
    }
    for n > 0 && !utf8.RuneStart(s[n]) {
        n--
    }
    return s[:n]
}
