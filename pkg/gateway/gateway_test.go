package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateStatus(t *testing.T) {
	tests := []struct {
		status  string
		fraud   string
		want    Outcome
		decided bool
	}{
		{"capture", "accept", OutcomeSuccess, true},
		{"capture", "challenge", OutcomePending, true},
		{"capture", "deny", OutcomeFailure, true},
		{"settlement", "", OutcomeSuccess, true},
		{"deny", "", OutcomeFailure, true},
		{"cancel", "", OutcomeFailure, true},
		{"expire", "", OutcomeFailure, true},
		{"pending", "", OutcomePending, true},
		{"refund", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.fraud, func(t *testing.T) {
			got, ok := TranslateStatus(tt.status, tt.fraud)
			assert.Equal(t, tt.decided, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrderID(t *testing.T) {
	id := uuid.New()

	for _, orderID := range []string{id.String() + "-3-9f2c41ab", id.String() + "-3"} {
		paymentId, attempt, err := ParseOrderID(orderID)
		require.NoError(t, err, orderID)
		assert.Equal(t, id, paymentId)
		assert.Equal(t, 3, attempt)
	}

	for _, bad := range []string{"", "abc", id.String(), id.String() + "-0", id.String() + "-1-", id.String() + "-x-9f2c41ab", "nope-1"} {
		_, _, err := ParseOrderID(bad)
		assert.Error(t, err, bad)
	}
}

func TestVerifyNotificationSignature(t *testing.T) {
	sum := sha512.Sum512([]byte("order-1" + "200" + "150000.00" + "server-key"))
	sig := hex.EncodeToString(sum[:])

	assert.True(t, VerifyNotificationSignature("order-1", "200", "150000.00", sig, "server-key"))
	assert.False(t, VerifyNotificationSignature("order-1", "200", "150001.00", sig, "server-key"))
	assert.False(t, VerifyNotificationSignature("order-1", "200", "150000.00", sig, "other-key"))
}

func newTestGateway() *MidtransGateway {
	return &MidtransGateway{timeout: 50 * time.Millisecond}
}

func TestCreateCheckout(t *testing.T) {
	g := newTestGateway()
	var captured *snap.Request
	g.createTransaction = func(req *snap.Request) (*snap.Response, *midtrans.Error) {
		captured = req
		return &snap.Response{Token: "tok", RedirectURL: "https://pay/tok"}, nil
	}

	checkout, err := g.CreateCheckout(context.Background(), CheckoutRequest{
		OrderID:  "p-1",
		Amount:   decimal.RequireFromString("150000"),
		ItemName: "Chess Club membership",
		Customer: Customer{FullName: "Ada King Lovelace", Email: "ada@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay/tok", checkout.RedirectURL)
	assert.Equal(t, "tok", checkout.Token)

	require.NotNil(t, captured)
	assert.Equal(t, int64(150000), captured.TransactionDetails.GrossAmt)
	assert.Equal(t, "Ada", captured.CustomerDetail.FName)
	assert.Equal(t, "King Lovelace", captured.CustomerDetail.LName)
}

func TestCreateCheckout_Errors(t *testing.T) {
	g := newTestGateway()

	g.createTransaction = func(*snap.Request) (*snap.Response, *midtrans.Error) {
		return nil, &midtrans.Error{StatusCode: 503, Message: "down"}
	}
	_, err := g.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "p-1"})
	assert.ErrorIs(t, err, ErrUnavailable)

	g.createTransaction = func(*snap.Request) (*snap.Response, *midtrans.Error) {
		return nil, &midtrans.Error{StatusCode: 400, Message: "bad amount"}
	}
	_, err = g.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "p-1"})
	assert.ErrorIs(t, err, ErrRejected)

	g.createTransaction = func(*snap.Request) (*snap.Response, *midtrans.Error) {
		time.Sleep(200 * time.Millisecond)
		return &snap.Response{}, nil
	}
	_, err = g.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "p-1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCancelCheckout_NotFoundIsSuccess(t *testing.T) {
	g := newTestGateway()
	g.cancelTransaction = func(string) *midtrans.Error {
		return &midtrans.Error{StatusCode: 404, Message: "Transaction doesn't exist."}
	}
	assert.NoError(t, g.CancelCheckout(context.Background(), "p-1"))

	g.cancelTransaction = func(string) *midtrans.Error {
		return &midtrans.Error{StatusCode: 500, Message: "boom"}
	}
	assert.ErrorIs(t, g.CancelCheckout(context.Background(), "p-1"), ErrUnavailable)
}

func TestCheckStatus(t *testing.T) {
	g := newTestGateway()
	g.checkTransaction = func(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error) {
		return &coreapi.TransactionStatusResponse{
			OrderID:           orderID,
			TransactionStatus: "settlement",
			PaymentType:       "bank_transfer",
		}, nil
	}

	res, err := g.CheckStatus(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "bank_transfer", res.Method)
	assert.NotEmpty(t, res.Raw)

	g.checkTransaction = func(string) (*coreapi.TransactionStatusResponse, *midtrans.Error) {
		return nil, &midtrans.Error{StatusCode: 404}
	}
	res, err = g.CheckStatus(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
}
