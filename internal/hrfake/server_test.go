package hrfake_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-hr-client/internal/hrfake"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/stretchr/testify/require"
)

func newSeededServer(t *testing.T) (*hrfake.Server, *httptest.Server) {
	t.Helper()
	fake := hrfake.New()
	require.NoError(t, fake.Seed())
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)
	return fake, ts
}

func call(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func login(t *testing.T, baseURL string) (string, string) {
	t.Helper()
	resp, body := call(t, http.MethodPost, baseURL+"/api/login", "", map[string]string{"employee_id": "E1", "password": "password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestServer_Login(t *testing.T) {
	_, ts := newSeededServer(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{"employee_id": "E1", "password": "password"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body["accessToken"])
		require.NotEmpty(t, body["refreshToken"])
		user := body["user"].(map[string]any)
		require.Equal(t, "E1", user["employee_id"])
		require.EqualValues(t, 1, user["id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{"employee_id": "E1", "password": "nope"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid employee ID or password", body["error"])
	})
}

func TestServer_RequireAuth(t *testing.T) {
	fake, ts := newSeededServer(t)
	access, refresh := login(t, ts.URL)

	resp, _ := call(t, http.MethodGet, ts.URL+"/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := call(t, http.MethodGet, ts.URL+"/api/profile", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Amina Haddad", body["name"])

	fake.ExpireAccessTokens()
	resp, _ = call(t, http.MethodGet, ts.URL+"/api/profile", access, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = call(t, http.MethodPost, ts.URL+"/api/refresh_token", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, http.MethodGet, ts.URL+"/api/profile", body["accessToken"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fake.RevokeRefreshTokens()
	resp, _ = call(t, http.MethodPost, ts.URL+"/api/refresh_token", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, 4, fake.Calls(http.MethodGet, "/profile"))
	headers := fake.AuthorizationHeaders(http.MethodGet, "/profile")
	require.Equal(t, "", headers[0])
	require.Equal(t, "Bearer "+access, headers[1])
}

func TestServer_LeaveRequests(t *testing.T) {
	fake, ts := newSeededServer(t)
	access, _ := login(t, ts.URL)

	t.Run("submit then cancel", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, ts.URL+"/api/leave_requests", access, map[string]any{
			"leave_type_id": 2, "start_date": "2026-03-01", "end_date": "2026-03-02", "reason": "Flu",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.Equal(t, "Pending", body["status"])
		require.Equal(t, "Sick Leave", body["leave_type_name"])
		id := int64(body["id"].(float64))

		resp, body = call(t, http.MethodDelete, ts.URL+"/api/leave_requests/"+jsonInt(id), access, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body["message"])

		stored, ok := leave.Find(fake.LeaveRequests("E1"), id)
		require.True(t, ok)
		require.Equal(t, leave.StatusCancelled, stored.Status)

		resp, _ = call(t, http.MethodDelete, ts.URL+"/api/leave_requests/"+jsonInt(id), access, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("cancel unknown", func(t *testing.T) {
		resp, _ := call(t, http.MethodDelete, ts.URL+"/api/leave_requests/999", access, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("end before start", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, ts.URL+"/api/leave_requests", access, map[string]any{
			"leave_type_id": 1, "start_date": "2026-03-05", "end_date": "2026-03-02", "reason": "x",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "end date cannot be before start date", body["error"])
	})

	t.Run("wrapped and bare list", func(t *testing.T) {
		resp, body := call(t, http.MethodGet, ts.URL+"/api/leave_requests?per_page=2", access, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, body["requests"], 2)
		require.EqualValues(t, 2, body["totalPages"])

		fake.SetBareLeaveList(true)
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/leave_requests", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+access)
		raw, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer raw.Body.Close()
		var list []leave.Request
		require.NoError(t, json.NewDecoder(raw.Body).Decode(&list))
		require.Len(t, list, 4)
	})
}

func TestServer_FailNext(t *testing.T) {
	fake, ts := newSeededServer(t)
	fake.FailNext(http.MethodGet, "/status", http.StatusServiceUnavailable)

	resp, _ := call(t, http.MethodGet, ts.URL+"/api/status", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = call(t, http.MethodGet, ts.URL+"/api/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, fake.Calls(http.MethodGet, "/status"))
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
