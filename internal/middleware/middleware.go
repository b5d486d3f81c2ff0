package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/logger"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const SignatureHeader = "HashSHA256"

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func GzipHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gzr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(rw, "Failed to create gzip reader", http.StatusBadRequest)
				return
			}
			defer gzr.Close()
			r.Body = io.NopCloser(gzr)
		}

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			rw.Header().Set("Content-Encoding", "gzip")
			rw.Header().Del("Content-Length")
			gzw := gzip.NewWriter(rw)
			defer gzw.Close()

			gzrw := gzipResponseWriter{Writer: gzw, ResponseWriter: rw}
			next.ServeHTTP(gzrw, r)
		} else {
			next.ServeHTTP(rw, r)
		}
	})
}

// HashHandler verifies an HMAC-SHA256 of the request body when the client
// sends one and signs every response body. An empty key disables it.
func HashHandler(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recvSig := r.Header.Get(SignatureHeader); recvSig != "" {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, "Failed to read request body", http.StatusBadRequest)
					return
				}
				expected := Sign(key, body)
				if !hmac.Equal([]byte(strings.ToLower(recvSig)), []byte(expected)) {
					logger.Log.Debug("request signature mismatch",
						zap.String("expected", expected),
						zap.String("received", recvSig),
					)
					http.Error(w, "Bad Request", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			buf := &bytes.Buffer{}
			hw := &hashResponseWriter{
				ResponseWriter: w,
				header:         make(http.Header),
				buffer:         buf,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(hw, r)

			for k, vals := range hw.header {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
			w.Header().Set(SignatureHeader, Sign(key, buf.Bytes()))
			w.WriteHeader(hw.statusCode)
			w.Write(buf.Bytes())
		})
	}
}

// Sign returns the hex HMAC-SHA256 of body under key.
func Sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type hashResponseWriter struct {
	http.ResponseWriter
	header     http.Header
	buffer     *bytes.Buffer
	statusCode int
}

func (h *hashResponseWriter) Header() http.Header         { return h.header }
func (h *hashResponseWriter) WriteHeader(status int)      { h.statusCode = status }
func (h *hashResponseWriter) Write(b []byte) (int, error) { return h.buffer.Write(b) }

// Claims identify a customer by Subject. Admin marks operators.
type Claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin,omitempty"`
}

// IssueToken signs an HS256 token for customerID.
func IssueToken(secret []byte, customerID int64, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(customerID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Admin: admin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

type ctxKeyActor struct{}

func JWTMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(auth, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			customerID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := ContextWithActor(r.Context(), order.Actor{CustomerID: customerID, Admin: claims.Admin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects callers whose token lacks the admin claim.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromContext(r.Context()).Admin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ActorFromContext(ctx context.Context) order.Actor {
	a, _ := ctx.Value(ctxKeyActor{}).(order.Actor)
	return a
}

func UserIDFromContext(ctx context.Context) int64 {
	return ActorFromContext(ctx).CustomerID
}

func ContextWithActor(ctx context.Context, a order.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor{}, a)
}

func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return ContextWithActor(ctx, order.Actor{CustomerID: userID})
}
