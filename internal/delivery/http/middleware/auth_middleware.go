package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go-clinic-appointments/pkg/jwt"
	"go-clinic-appointments/pkg/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type contextKey string

const (
	PatientIDKey contextKey = "patient_id"
	RoleKey      contextKey = "role"
)

// RevokedTokenKeyPrefix marks tokens invalidated before expiry. Identity
// issuance lives outside this service; only validation happens here.
const RevokedTokenKeyPrefix = "revoked_token:"

type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		// Reject tokens revoked before their expiry
		revokedKey := fmt.Sprintf("%s%s", RevokedTokenKeyPrefix, claims.TokenID)
		revoked, err := m.redisClient.Exists(r.Context(), revokedKey).Result()
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if revoked > 0 {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		ctx := context.WithValue(r.Context(), PatientIDKey, claims.PatientID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPatientIDFromContext extracts the authenticated patient ID
func GetPatientIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	patientID, ok := ctx.Value(PatientIDKey).(uuid.UUID)
	return patientID, ok && patientID != uuid.Nil
}

// GetRoleFromContext extracts the caller's role
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// WithPatientID returns a context carrying the given patient identity.
// Used by tests and internal callers that bypass the HTTP middleware.
func WithPatientID(ctx context.Context, patientID uuid.UUID) context.Context {
	return context.WithValue(ctx, PatientIDKey, patientID)
}

// WithRole returns a context carrying the given role claim.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}
