package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _, _ := newTestService(t, nil)
	handler := NewHandler(svc, testLogger())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpsertUserEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", gin.H{
		"uid":   "alice",
		"email": "alice@example.com",
		"name":  "Alice",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		User User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.UID)
	assert.Len(t, resp.User.AccountNumber, AccountNumberLength)
	assert.Equal(t, StartingBalance, resp.User.Balance)

	// Same UID again returns the same account.
	w = doJSON(t, router, http.MethodPost, "/api/v1/users", gin.H{"uid": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var again struct {
		User User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, resp.User.AccountNumber, again.User.AccountNumber)
}

func TestUpsertUserEndpointRequiresUID(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/users", gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	provision(t, svc, "alice", "Alice")

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransferEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	alice := provision(t, svc, "alice", "Alice")
	bob := provision(t, svc, "bob", "Bob")
	_ = alice

	w := doJSON(t, router, http.MethodPost, "/api/v1/transfers", gin.H{
		"senderUid":             "alice",
		"receiverAccountNumber": bob.AccountNumber,
		"amount":                "25.50",
		"description":           "lunch",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result TransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, Cents(2550), result.Transaction.Amount)

	sender, err := svc.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, StartingBalance-Cents(2550), sender.Balance)
}

func TestTransferEndpointValidation(t *testing.T) {
	router, svc := newTestRouter(t)
	provision(t, svc, "alice", "Alice")
	bob := provision(t, svc, "bob", "Bob")

	cases := []struct {
		name string
		body gin.H
		code int
	}{
		{
			name: "missing sender identity",
			body: gin.H{"receiverAccountNumber": bob.AccountNumber, "amount": "1.00", "description": "x"},
			code: http.StatusUnauthorized,
		},
		{
			name: "malformed account number",
			body: gin.H{"senderUid": "alice", "receiverAccountNumber": "TOOLONG99", "amount": "1.00", "description": "x"},
			code: http.StatusBadRequest,
		},
		{
			name: "malformed amount",
			body: gin.H{"senderUid": "alice", "receiverAccountNumber": bob.AccountNumber, "amount": "1.2.3", "description": "x"},
			code: http.StatusBadRequest,
		},
		{
			name: "missing description",
			body: gin.H{"senderUid": "alice", "receiverAccountNumber": bob.AccountNumber, "amount": "1.00"},
			code: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/transfers", tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestTransferEndpointBusinessFailureIsHTTP200(t *testing.T) {
	router, svc := newTestRouter(t)
	provision(t, svc, "alice", "Alice")
	bob := provision(t, svc, "bob", "Bob")

	// Well-formed request, business-level rejection: 200 with success=false.
	w := doJSON(t, router, http.MethodPost, "/api/v1/transfers", gin.H{
		"senderUid":             "alice",
		"receiverAccountNumber": bob.AccountNumber,
		"amount":                "99999.00",
		"description":           "too much",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result TransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "Insufficient balance.", result.Message)
}

func TestListTransactionsEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	provision(t, svc, "alice", "Alice")
	bob := provision(t, svc, "bob", "Bob")

	result, err := svc.SendMoney(context.Background(), "alice", bob.AccountNumber, Cents(1000), "x", false)
	require.NoError(t, err)
	require.True(t, result.Success)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/alice/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Transactions []*Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, DirectionSent, resp.Transactions[0].Direction)
}

func TestFraudReportEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	provision(t, svc, "alice", "Alice")
	bob := provision(t, svc, "bob", "Bob")

	result, err := svc.SendMoney(context.Background(), "alice", bob.AccountNumber, Cents(1000), "x", false)
	require.NoError(t, err)
	require.True(t, result.Success)

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/"+result.Transaction.ID+"/fraud-report", gin.H{
		"report": "I did not authorize this",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var report FraudReportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Success)
	assert.True(t, report.Fraudulent)
	assert.NotEmpty(t, report.Reason)

	// Missing report body is a request error.
	w = doJSON(t, router, http.MethodPost, "/api/v1/transactions/"+result.Transaction.ID+"/fraud-report", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
