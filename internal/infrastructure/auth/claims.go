package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"rbac-console/internal/domain"
)

// subjectClaims are tried in order; the first non-empty one wins.
var subjectClaims = []string{"admin_id", "user_id", "sub", "id"}

var roleClaims = []string{"role", "rol", "role_name"}

// UnverifiedDecoder reads JWT payloads without checking signatures. The
// backend is the only authority on validity; the claims are UX hints.
type UnverifiedDecoder struct {
	parser *jwt.Parser
}

func NewUnverifiedDecoder() *UnverifiedDecoder {
	return &UnverifiedDecoder{parser: jwt.NewParser()}
}

func (d *UnverifiedDecoder) Decode(token string) (domain.TokenClaims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return domain.TokenClaims{}, domain.ErrNoToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		if claims, err = d.payloadOnly(token, err); err != nil {
			return domain.TokenClaims{}, err
		}
	}
	out := domain.TokenClaims{
		SubjectID: firstString(claims, subjectClaims),
		RoleName:  roleName(claims),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time.UTC()
	}
	return out, nil
}

// payloadOnly decodes the middle segment when the header is unreadable.
// Only the payload carries the hints the console needs.
func (d *UnverifiedDecoder) payloadOnly(token string, cause error) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("decode token payload: %w", cause)
	}
	raw, err := d.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", cause)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode token payload: %w", cause)
	}
	return claims, nil
}

func firstString(claims jwt.MapClaims, keys []string) string {
	for _, k := range keys {
		if s := stringify(claims[k]); s != "" {
			return s
		}
	}
	return ""
}

func roleName(claims jwt.MapClaims) string {
	for _, k := range roleClaims {
		switch v := claims[k].(type) {
		case map[string]any:
			if s := stringify(v["name"]); s != "" {
				return s
			}
		default:
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
