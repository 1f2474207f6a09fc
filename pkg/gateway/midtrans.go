package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	Timeout      time.Duration
}

// MidtransGateway opens Snap checkouts and uses the Core API for cancel and status.
type MidtransGateway struct {
	timeout time.Duration

	createTransaction func(req *snap.Request) (*snap.Response, *midtrans.Error)
	cancelTransaction func(orderID string) *midtrans.Error
	checkTransaction  func(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

func NewMidtransGateway(cfg MidtransConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	var sClient snap.Client
	sClient.New(cfg.ServerKey, env)

	var cClient coreapi.Client
	cClient.New(cfg.ServerKey, env)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &MidtransGateway{
		timeout:           timeout,
		createTransaction: sClient.CreateTransaction,
		cancelTransaction: func(orderID string) *midtrans.Error {
			_, err := cClient.CancelTransaction(orderID)
			return err
		},
		checkTransaction: cClient.CheckTransaction,
	}
}

func (g *MidtransGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	firstName, lastName := splitName(req.Customer.FullName)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount.Round(0).IntPart(),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: firstName,
			LName: lastName,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ItemID,
				Price: req.Amount.Round(0).IntPart(),
				Qty:   1,
				Name:  req.ItemName,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if req.FinishURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.FinishURL}
	}

	resp, err := withTimeout(ctx, g.timeout, func() (*snap.Response, error) {
		resp, midErr := g.createTransaction(snapReq)
		if midErr != nil {
			return nil, translateError(midErr)
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout %s: %w", req.OrderID, err)
	}

	return &Checkout{
		OrderID:     req.OrderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (g *MidtransGateway) CancelCheckout(ctx context.Context, orderID string) error {
	_, err := withTimeout(ctx, g.timeout, func() (struct{}, error) {
		midErr := g.cancelTransaction(orderID)
		if midErr != nil && !isNotFound(midErr) {
			return struct{}{}, translateError(midErr)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("cancel checkout %s: %w", orderID, err)
	}
	return nil
}

func (g *MidtransGateway) CheckStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	res, err := withTimeout(ctx, g.timeout, func() (*StatusResult, error) {
		resp, midErr := g.checkTransaction(orderID)
		if midErr != nil {
			if isNotFound(midErr) {
				// the customer never picked a payment method
				return &StatusResult{OrderID: orderID, Outcome: OutcomePending}, nil
			}
			return nil, translateError(midErr)
		}

		outcome, ok := TranslateStatus(resp.TransactionStatus, resp.FraudStatus)
		if !ok {
			outcome = OutcomePending
		}
		raw, _ := json.Marshal(resp)
		return &StatusResult{
			OrderID: orderID,
			Outcome: outcome,
			Method:  resp.PaymentType,
			Raw:     raw,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("check status %s: %w", orderID, err)
	}
	return res, nil
}

// VerifyNotificationSignature checks the signature_key of an HTTP notification:
// SHA512(order_id + status_code + gross_amount + server_key) in hex.
func VerifyNotificationSignature(orderID, statusCode, grossAmount, signature, serverKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// withTimeout runs fn in its own goroutine because the Midtrans client takes no context.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn()
		done <- result{val: val, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func translateError(err *midtrans.Error) error {
	code := err.GetStatusCode()
	if code == 0 || code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrUnavailable, err.GetMessage())
	}
	return fmt.Errorf("%w: %d %s", ErrRejected, code, err.GetMessage())
}

func isNotFound(err *midtrans.Error) bool {
	return err.GetStatusCode() == http.StatusNotFound
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
