// Command simulation walks one student through the membership lifecycle
// against a running server. With MIDTRANS_SERVER_KEY set it also posts a
// signed settlement notification, standing in for the Midtrans sandbox.
package main

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", "http://localhost:3000/api", "API base url")
	amount := flag.String("amount", "25000", "club fee, 0 for a free club")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	serverKey := os.Getenv("MIDTRANS_SERVER_KEY")

	c := &client{baseURL: *baseURL, http: &http.Client{Timeout: 30 * time.Second}}
	studentId, clubId := uuid.New(), uuid.New()
	student := mustToken(secret, studentId, "student")
	leader := mustToken(secret, uuid.New(), "leader")

	color.Cyan("🚀 Membership lifecycle simulation")
	fmt.Printf("student=%s club=%s\n", studentId, clubId)

	color.Yellow("\n[STUDENT] 1. Submit request")
	var request struct {
		Id uuid.UUID `json:"id"`
	}
	if !c.step(http.MethodPost, "/memberships/requests", student, map[string]interface{}{
		"club_id":   clubId,
		"reason":    "Simulated applicant",
		"full_name": "Sim Student",
		"email":     "sim@example.com",
		"phone":     "0800000000",
	}, &request) {
		return
	}

	color.Yellow("\n[STUDENT] 2. Submit again (expect denial)")
	c.step(http.MethodPost, "/memberships/requests", student, map[string]interface{}{
		"club_id":   clubId,
		"reason":    "Again",
		"full_name": "Sim Student",
		"email":     "sim@example.com",
		"phone":     "0800000000",
	}, nil)

	color.Yellow("\n[LEADER] 3. Approve with amount %s", *amount)
	var decision struct {
		Payment *struct {
			Id uuid.UUID `json:"id"`
		} `json:"payment"`
	}
	if !c.step(http.MethodPost, "/memberships/requests/"+request.Id.String()+"/decision", leader, map[string]interface{}{
		"decision": "approve",
		"amount":   *amount,
	}, &decision) {
		return
	}
	if decision.Payment == nil {
		color.Cyan("\n✅ Free club, membership active")
		return
	}
	paymentPath := "/payments/" + decision.Payment.Id.String()

	color.Yellow("\n[STUDENT] 4. Start checkout")
	var checkout struct {
		Payment struct {
			OrderId string `json:"order_id"`
		} `json:"payment"`
		CheckoutUrl string `json:"checkout_url"`
	}
	if !c.step(http.MethodPost, paymentPath+"/checkout", student, nil, &checkout) {
		return
	}
	fmt.Printf("Checkout URL: %s\n", checkout.CheckoutUrl)

	color.Yellow("\n[STUDENT] 5. Cancel, then resume")
	c.step(http.MethodPost, paymentPath+"/cancel", student, nil, nil)
	if !c.step(http.MethodPost, paymentPath+"/checkout", student, nil, &checkout) {
		return
	}
	fmt.Printf("Checkout URL: %s\n", checkout.CheckoutUrl)

	if serverKey == "" {
		color.Red("\n[SKIP] MIDTRANS_SERVER_KEY not set, settle the payment in the sandbox")
		return
	}

	color.Yellow("\n[GATEWAY] 6. Signed settlement notification")
	orderID := checkout.Payment.OrderId
	statusCode, gross := "200", *amount+".00"
	sum := sha512.Sum512([]byte(orderID + statusCode + gross + serverKey))
	c.step(http.MethodPost, "/payments/midtrans/notification", "", map[string]interface{}{
		"order_id":           orderID,
		"transaction_status": "settlement",
		"payment_type":       "bank_transfer",
		"status_code":        statusCode,
		"gross_amount":       gross,
		"signature_key":      hex.EncodeToString(sum[:]),
	}, nil)

	color.Yellow("\n[STUDENT] 7. Payment and eligibility")
	c.step(http.MethodGet, paymentPath, student, nil, nil)
	c.step(http.MethodGet, "/memberships/eligibility?club_id="+clubId.String(), student, nil, nil)

	color.Cyan("\n✅ Simulation complete")
}

func mustToken(secret string, userId uuid.UUID, role string) string {
	if secret == "" {
		color.Red("JWT_SECRET is not set")
		os.Exit(1)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		color.Red("Failed to sign token: %v", err)
		os.Exit(1)
	}
	return signed
}

// step performs one call, prints the outcome and decodes data into out.
func (c *client) step(method, path, token string, body interface{}, out interface{}) bool {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		color.Red("Failed: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 {
		color.Red("Status: %s %s %s", resp.Status, env.Message, string(env.Data))
		return false
	}
	color.Green("Status: %s %s", resp.Status, env.Message)
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			color.Red("Failed to decode response: %v", err)
			return false
		}
	}
	return true
}
