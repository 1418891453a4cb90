package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"keysbank-api/internal/events"
	"keysbank-api/internal/models"
	"keysbank-api/internal/services"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func newTestRouter(t *testing.T, limits Limits) *mux.Router {
	t.Helper()
	logger := zerolog.Nop()
	st := store.NewMemoryStore()

	balances := services.NewBalanceService(st, logger, time.UTC, time.Now)
	transactions := services.NewTransactionService(st, logger, balances, events.NoopPublisher{}, time.Now)
	customers := services.NewCustomerService(st, logger, time.Now)
	accounts := services.NewAccountService(st, logger, transactions, decimal.NewFromInt(100), time.Now)
	statements := services.NewStatementService(st, accounts, logger, time.UTC)

	return SetupRouter(Services{
		Accounts:     accounts,
		Customers:    customers,
		Transactions: transactions,
		Statements:   statements,
		Balances:     balances,
	}, limits, logger)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		req = httptest.NewRequest(method, target, bytes.NewBufferString(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openAccount(t *testing.T, h http.Handler, email string) models.Account {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/customers", map[string]string{"name": "Ana Souza", "email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customer := decode[models.Customer](t, rec)

	rec = do(t, h, http.MethodPost, "/accounts", map[string]string{"customerId": customer.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Account](t, rec)
}

var generous = Limits{Rate: 1000, Burst: 1000}

func TestLedgerFlow(t *testing.T) {
	h := newTestRouter(t, generous)
	account := openAccount(t, h, "ana@example.com")

	login := do(t, h, http.MethodGet, "/accounts/login?agency=0001&accountNumber="+account.AccountNumber, nil)
	require.Equal(t, http.StatusOK, login.Code)
	assert.Equal(t, account.ID, decode[models.LoginResponse](t, login).AccountID)

	rec := do(t, h, http.MethodPost, "/transaction", `{"accountId":"`+account.ID.String()+`","type":"credit","category":"DEPOSIT","amount":50.00,"description":"salary"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.TransactionResponse](t, rec)
	assert.Equal(t, models.EntryKindCredit, created.Type)
	assert.Equal(t, "50.00", created.Amount.StringFixed(2))

	rec = do(t, h, http.MethodGet, "/accounts/"+account.ID.String()+"/statement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]models.StatementItemResponse](t, rec)
	require.Len(t, items, 3)
	assert.Equal(t, models.EntryKindBalance, items[0].Type)
	assert.Equal(t, "150.00", items[0].Amount.StringFixed(2))
	assert.Equal(t, created.ID, items[1].TransactionID)

	today := time.Now().UTC().Format(services.DateLayout)
	q := url.Values{"startDate": {today}, "endDate": {today}, "type": {"CREDIT"}}
	rec = do(t, h, http.MethodGet, "/accounts/"+account.ID.String()+"/statement?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.StatementItemResponse](t, rec), 2)
}

func TestTransactionErrors(t *testing.T) {
	h := newTestRouter(t, generous)
	account := openAccount(t, h, "ana@example.com")
	id := account.ID.String()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown account", `{"accountId":"` + uuid.NewString() + `","type":"CREDIT","category":"X","amount":1}`, http.StatusNotFound, "account_not_found"},
		{"negative amount", `{"accountId":"` + id + `","type":"CREDIT","category":"X","amount":-5.00}`, http.StatusBadRequest, "invalid_amount"},
		{"missing amount", `{"accountId":"` + id + `","type":"CREDIT","category":"X"}`, http.StatusBadRequest, "invalid_amount"},
		{"balance type", `{"accountId":"` + id + `","type":"BALANCE","category":"X","amount":1}`, http.StatusBadRequest, "invalid_type"},
		{"unknown type", `{"accountId":"` + id + `","type":"TRANSFER","category":"X","amount":1}`, http.StatusBadRequest, "invalid_type"},
		{"missing category", `{"accountId":"` + id + `","type":"CREDIT","amount":1}`, http.StatusBadRequest, "validation_failed"},
		{"bad account id", `{"accountId":"nope","type":"CREDIT","category":"X","amount":1}`, http.StatusBadRequest, "validation_failed"},
		{"malformed json", `{"accountId":`, http.StatusBadRequest, "invalid_request"},
		{"three decimals", `{"accountId":"` + id + `","type":"CREDIT","category":"X","amount":10.005}`, http.StatusBadRequest, "invalid_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/transaction", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[apiError](t, rec).Error)
		})
	}

	rec := do(t, h, http.MethodPost, "/transaction", `{"accountId":"`+id+`","type":"CREDIT","amount":1}`)
	assert.Equal(t, "required", decode[apiError](t, rec).Fields["category"])

	// Nothing but the opening bonus was recorded.
	rec = do(t, h, http.MethodGet, "/accounts/"+id+"/statement?type=CREDIT", nil)
	assert.Len(t, decode[[]models.StatementItemResponse](t, rec), 1)
}

func TestDebitBeyondBalance(t *testing.T) {
	h := newTestRouter(t, generous)
	account := openAccount(t, h, "ana@example.com")

	rec := do(t, h, http.MethodPost, "/transaction", `{"accountId":"`+account.ID.String()+`","type":"DEBIT","category":"PIX","amount":150.00}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/accounts/"+account.ID.String()+"/statement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]models.StatementItemResponse](t, rec)
	require.Len(t, items, 3)
	assert.Equal(t, models.EntryKindBalance, items[0].Type)
	assert.Equal(t, "-50.00", items[0].Amount.StringFixed(2))
}

func TestStatementErrors(t *testing.T) {
	h := newTestRouter(t, generous)
	account := openAccount(t, h, "ana@example.com")
	base := "/accounts/" + account.ID.String() + "/statement"

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"malformed id", "/accounts/123/statement", http.StatusBadRequest},
		{"unknown account", "/accounts/" + uuid.NewString() + "/statement", http.StatusNotFound},
		{"bad date", base + "?startDate=15-03-2024", http.StatusBadRequest},
		{"reversed range", base + "?startDate=2024-03-16&endDate=2024-03-15", http.StatusBadRequest},
		{"bad type", base + "?type=REFUND", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, do(t, h, http.MethodGet, tt.target, nil).Code)
		})
	}
}

func TestAccountErrors(t *testing.T) {
	h := newTestRouter(t, generous)
	account := openAccount(t, h, "ana@example.com")

	rec := do(t, h, http.MethodPost, "/customers", map[string]string{"name": "Ana", "email": "ANA@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/customers", map[string]string{"name": "Ana", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode[apiError](t, rec).Fields["email"])

	rec = do(t, h, http.MethodPost, "/accounts", map[string]string{"customerId": account.CustomerID.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/accounts", map[string]string{"customerId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/accounts/login?agency=0001", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/accounts/login?agency=0001&accountNumber=000000", nil).Code)
}

func TestRecomputeBalance(t *testing.T) {
	h := newTestRouter(t, generous)
	account := openAccount(t, h, "ana@example.com")
	base := "/accounts/" + account.ID.String() + "/balances/recompute"

	rec := do(t, h, http.MethodPost, base, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := decode[models.StatementItemResponse](t, rec)
	assert.Equal(t, models.EntryKindBalance, item.Type)
	assert.Equal(t, "100.00", item.Amount.StringFixed(2))

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(services.DateLayout)
	rec = do(t, h, http.MethodPost, base+"?date="+yesterday, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.StatementItemResponse](t, rec).Amount.IsZero())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/accounts/"+uuid.NewString()+"/balances/recompute", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, base+"?date=tomorrow", nil).Code)
}

func TestMiddlewareChain(t *testing.T) {
	h := newTestRouter(t, Limits{Rate: 0.001, Burst: 1})

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRejectsNonJSONBody(t *testing.T) {
	h := newTestRouter(t, generous)

	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewBufferString("name=Ana"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_content_type", decode[apiError](t, rec).Error)
}
