package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"club-membership-be/internal/pkg/logger"
	"club-membership-be/internal/pkg/serverutils"
	"club-membership-be/internal/repository/memory"
	"club-membership-be/internal/service"
	"club-membership-be/pkg/gateway"
	"club-membership-be/pkg/lock"
	membershipEvents "club-membership-be/pkg/membership/events"
	"club-membership-be/pkg/membership/status"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// downGateway answers every call as if Midtrans were unreachable.
type downGateway struct{}

func (downGateway) CreateCheckout(context.Context, gateway.CheckoutRequest) (*gateway.Checkout, error) {
	return nil, gateway.ErrUnavailable
}

func (downGateway) CancelCheckout(context.Context, string) error {
	return gateway.ErrUnavailable
}

func (downGateway) CheckStatus(context.Context, string) (*gateway.StatusResult, error) {
	return nil, gateway.ErrUnavailable
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()
	store := memory.NewStore()
	locker := lock.NewMemoryLocker(time.Minute, time.Second)
	publisher := membershipEvents.NewNatsPublisher(nil, log)

	lifecycle := service.NewLifecycleService(store, downGateway{}, locker, publisher, log, service.LifecycleOptions{FrontendURL: "https://clubs.example"})
	admin := service.NewMembershipAdminService(store, locker, status.NewManager(log, publisher, nil))

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	settlement := service.NewSettlementService(lifecycle, pubSub, memory.NewSignalCache(time.Minute), log, log,
		service.SettlementOptions{Topic: "settlements", ServerKey: "server-key"})

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	auth := serverutils.JwtMiddleware(testSecret)
	NewMembershipController(lifecycle, admin, auth).RegisterRoutes(api)
	NewPaymentController(lifecycle, settlement, auth).RegisterRoutes(api)
	return app
}

func token(t *testing.T, userId uuid.UUID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func call(t *testing.T, app *fiber.App, method, path, bearer string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func submitBody(clubId uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"club_id":   clubId,
		"reason":    "I like chess",
		"full_name": "Ada Lovelace",
		"email":     "ada@example.com",
		"phone":     "0812",
	}
}

func TestMembershipFlow_FreeClub(t *testing.T) {
	app := newApp(t)
	studentId, clubId := uuid.New(), uuid.New()
	student := token(t, studentId, serverutils.RoleStudent)
	leader := token(t, uuid.New(), serverutils.RoleLeader)

	code, env := call(t, app, http.MethodPost, "/api/memberships/requests", student, submitBody(clubId))
	require.Equal(t, http.StatusCreated, code, env.Message)
	var request struct {
		Id uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &request))

	code, env = call(t, app, http.MethodPost, "/api/memberships/requests", student, submitBody(clubId))
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, string(env.Data), "awaiting_leader_decision")

	code, _ = call(t, app, http.MethodPost, "/api/memberships/requests/"+request.Id.String()+"/decision", student,
		map[string]interface{}{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, app, http.MethodPost, "/api/memberships/requests/"+request.Id.String()+"/decision", leader,
		map[string]interface{}{"decision": "approve"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var decision struct {
		Membership *struct {
			Id     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"membership"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	require.NotNil(t, decision.Membership)
	assert.Equal(t, "active", decision.Membership.Status)

	code, env = call(t, app, http.MethodGet, "/api/memberships/eligibility?club_id="+clubId.String(), student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"allowed":false,"reason":"already_member","message":"you are already a member of this club"}`, string(env.Data))

	code, _ = call(t, app, http.MethodPost, "/api/memberships/"+decision.Membership.Id.String()+"/lock", leader,
		map[string]interface{}{"note": "dues"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, app, http.MethodPost, "/api/memberships/"+decision.Membership.Id.String()+"/lock", leader, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = call(t, app, http.MethodGet, "/api/clubs/"+clubId.String()+"/members", leader, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"locked"`)
}

func TestDecision_RejectNeedsNote(t *testing.T) {
	app := newApp(t)
	student := token(t, uuid.New(), serverutils.RoleStudent)
	leader := token(t, uuid.New(), serverutils.RoleLeader)

	_, env := call(t, app, http.MethodPost, "/api/memberships/requests", student, submitBody(uuid.New()))
	var request struct {
		Id uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &request))

	code, env := call(t, app, http.MethodPost, "/api/memberships/requests/"+request.Id.String()+"/decision", leader,
		map[string]interface{}{"decision": "reject"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "Note")
}

func TestPayments_OwnershipAndGatewayOutage(t *testing.T) {
	app := newApp(t)
	studentId := uuid.New()
	student := token(t, studentId, serverutils.RoleStudent)
	stranger := token(t, uuid.New(), serverutils.RoleStudent)
	leader := token(t, uuid.New(), serverutils.RoleLeader)

	_, env := call(t, app, http.MethodPost, "/api/memberships/requests", student, submitBody(uuid.New()))
	var request struct {
		Id uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &request))

	code, env := call(t, app, http.MethodPost, "/api/memberships/requests/"+request.Id.String()+"/decision", leader,
		map[string]interface{}{"decision": "approve", "amount": "25000"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var decision struct {
		Payment struct {
			Id     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.Equal(t, "created", decision.Payment.Status)
	paymentPath := "/api/payments/" + decision.Payment.Id.String()

	code, _ = call(t, app, http.MethodGet, paymentPath, stranger, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, app, http.MethodGet, paymentPath, leader, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, app, http.MethodPost, paymentPath+"/checkout", student, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"retryable":true}`, string(env.Data))

	code, env = call(t, app, http.MethodGet, paymentPath, student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"created"`)
}

func TestWebhook_RejectsUnsignedNotification(t *testing.T) {
	app := newApp(t)

	code, _ := call(t, app, http.MethodPost, "/api/payments/midtrans/notification", "", map[string]interface{}{
		"order_id":           uuid.NewString() + "-1",
		"transaction_status": "settlement",
		"status_code":        "200",
		"gross_amount":       "25000.00",
		"signature_key":      "forged",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuth_MissingToken(t *testing.T) {
	app := newApp(t)

	code, _ := call(t, app, http.MethodGet, "/api/memberships/requests/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
