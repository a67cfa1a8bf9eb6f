package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspark/api/internal/platform/auth"
	"github.com/shopspark/api/internal/services"
)

// SessionHeader carries the anonymous shopper session across requests.
const SessionHeader = "X-Session-Id"

const defaultMaxBodySize = 16 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// cartOwnerFromRequest resolves the cart owner from the verified identity
// when present and otherwise from the session header.
func cartOwnerFromRequest(r *http.Request) services.CartOwner {
	owner := services.CartOwner{
		SessionID: strings.TrimSpace(r.Header.Get(SessionHeader)),
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity != nil {
		owner.CustomerID = strings.TrimSpace(identity.UID)
	}
	return owner
}
