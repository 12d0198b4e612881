// Package testutil provides testing utilities for the WHOOP recovery client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// Paths served by MockWhoop.
const (
	TokenPath    = "/oauth/token"
	BasePath     = "/developer"
	RecoveryPath = BasePath + "/v1/recovery"
)

// MockAccessToken is the bearer token issued for valid credentials.
const MockAccessToken = "mock-access-token"

// MockPage is one page of a paginated collection response.
type MockPage struct {
	Records []map[string]any
	// NextToken is emitted as next_token when non-empty.
	NextToken string
	// StatusCode overrides the 200 response (e.g. 500 to fail this page).
	StatusCode int
	// RawBody replaces the JSON encoding of Records/NextToken when set.
	RawBody string
}

// MockWhoop is a configurable mock of the WHOOP token and recovery endpoints.
type MockWhoop struct {
	server *httptest.Server
	mu     sync.RWMutex

	username string
	password string
	userID   any
	pages    []MockPage

	// Tracking
	tokenRequests    []TokenRequest
	recoveryRequests []url.Values
	lastHeader       http.Header
}

// TokenRequest records a token call as seen by the server.
type TokenRequest struct {
	ContentType string
	Params      map[string]string
}

// NewMockWhoop creates a mock server accepting the given credentials.
func NewMockWhoop(username, password string) *MockWhoop {
	mock := &MockWhoop{
		username: username,
		password: password,
		userID:   10129,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, mock.handleToken)
	mux.HandleFunc(RecoveryPath, mock.handleRecovery)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server root URL.
func (m *MockWhoop) URL() string {
	return m.server.URL
}

// TokenURL returns the token endpoint URL.
func (m *MockWhoop) TokenURL() string {
	return m.server.URL + TokenPath
}

// BaseURL returns the API base URL (the equivalent of .../developer).
func (m *MockWhoop) BaseURL() string {
	return m.server.URL + BasePath
}

// Close shuts down the mock server.
func (m *MockWhoop) Close() {
	m.server.Close()
}

// SetUserID sets the user.id returned by the token endpoint.
func (m *MockWhoop) SetUserID(id any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = id
}

// SetPages configures the recovery collection. Page i+1 is served when the
// request carries the NextToken of page i.
func (m *MockWhoop) SetPages(pages ...MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

// Reset clears all tracking state.
func (m *MockWhoop) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenRequests = nil
	m.recoveryRequests = nil
	m.lastHeader = nil
}

// TokenRequests returns the token calls received so far.
func (m *MockWhoop) TokenRequests() []TokenRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TokenRequest(nil), m.tokenRequests...)
}

// RecoveryRequests returns the query of every recovery call received so far.
func (m *MockWhoop) RecoveryRequests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.recoveryRequests...)
}

// RequestCount returns the number of recovery calls received.
func (m *MockWhoop) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recoveryRequests)
}

// LastHeader returns the headers of the most recent recovery call.
func (m *MockWhoop) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockWhoop) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	params := map[string]string{}
	contentType := r.Header.Get("Content-Type")
	switch contentType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
			return
		}
	default:
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
			return
		}
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
	}

	m.mu.Lock()
	m.tokenRequests = append(m.tokenRequests, TokenRequest{ContentType: contentType, Params: params})
	userID := m.userID
	m.mu.Unlock()

	if params["grant_type"] != "password" || params["username"] != m.username || params["password"] != m.password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Bad credentials",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": MockAccessToken,
		"token_type":   "bearer",
		"expires_in":   86400,
		"user":         map[string]any{"id": userID},
	})
}

func (m *MockWhoop) handleRecovery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	m.mu.Lock()
	m.recoveryRequests = append(m.recoveryRequests, query)
	m.lastHeader = r.Header.Clone()
	pages := m.pages
	m.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+MockAccessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	idx := 0
	if token := query.Get("nextToken"); token != "" {
		idx = -1
		for i, p := range pages {
			if p.NextToken == token {
				idx = i + 1
				break
			}
		}
	}
	if idx < 0 || idx >= len(pages) {
		if len(pages) == 0 && idx == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"records": []any{}})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown nextToken"})
		return
	}

	page := pages[idx]
	status := page.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	if page.RawBody != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(page.RawBody))
		return
	}

	body := map[string]any{"records": page.Records}
	if page.Records == nil {
		body["records"] = []any{}
	}
	if page.NextToken != "" {
		body["next_token"] = page.NextToken
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewRecoveryRecord builds a record in the shape the WHOOP API returns.
// A nil score is encoded as null.
func NewRecoveryRecord(createdAt string, score any) map[string]any {
	return map[string]any{
		"cycle_id":    93845,
		"sleep_id":    "ecfc6a15-4661-442f-a9a4-f160dd7afae8",
		"user_id":     10129,
		"created_at":  createdAt,
		"updated_at":  createdAt,
		"score_state": "SCORED",
		"score":       score,
	}
}

// RecoveryScore is a complete score object. Fields encode in the order the
// WHOOP API documents them.
type RecoveryScore struct {
	UserCalibrating  bool    `json:"user_calibrating"`
	RecoveryScore    float64 `json:"recovery_score"`
	RestingHeartRate float64 `json:"resting_heart_rate"`
	HRVRmssdMilli    float64 `json:"hrv_rmssd_milli"`
	SpO2Percentage   float64 `json:"spo2_percentage"`
	SkinTempCelsius  float64 `json:"skin_temp_celsius"`
}

// NewRecoveryScore builds a complete score object.
func NewRecoveryScore(recovery, rhr, hrv float64) RecoveryScore {
	return RecoveryScore{
		RecoveryScore:    recovery,
		RestingHeartRate: rhr,
		HRVRmssdMilli:    hrv,
		SpO2Percentage:   95.6875,
		SkinTempCelsius:  33.7,
	}
}
