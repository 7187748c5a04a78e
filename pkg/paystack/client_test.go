package paystack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
)

func TestClientResolveAccountRequest(t *testing.T) {
	const expectedURL = "http://paystack.test/bank/resolve?account_number=0123456789&bank_code=058"
	respBody := `{"status":true,"message":"Account number resolved","data":{"account_number":"0123456789","account_name":"ADAEZE OKAFOR","bank_id":9}}`

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_abc", WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resolved, err := client.ResolveAccount(context.Background(), "0123456789", "058")
	if err != nil {
		t.Fatalf("resolve account: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer sk_test_abc" {
		t.Fatalf("authorization header missing")
	}
	if resolved.AccountName != "ADAEZE OKAFOR" {
		t.Fatalf("unexpected account name %q", resolved.AccountName)
	}
}

func TestClientCreateSubaccountRequest(t *testing.T) {
	respBody := `{"status":true,"message":"Subaccount created","data":{"id":55,"subaccount_code":"ACCT_4hl4xenwpjnayk4","business_name":"Kasuwa Traders","settlement_bank":"Guaranty Trust Bank","account_number":"0123456789","active":true}}`

	var capturedBody map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Fatalf("unexpected method %q", req.Method)
		}
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &capturedBody); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_abc", WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	sub, err := client.CreateSubaccount(context.Background(), SubaccountRequest{
		BusinessName:     "Kasuwa Traders",
		SettlementBank:   "058",
		AccountNumber:    "0123456789",
		PercentageCharge: 15,
	})
	if err != nil {
		t.Fatalf("create subaccount: %v", err)
	}
	if capturedBody["business_name"] != "Kasuwa Traders" {
		t.Fatalf("unexpected business name %q", capturedBody["business_name"])
	}
	if capturedBody["percentage_charge"] != float64(15) {
		t.Fatalf("unexpected percentage charge %v", capturedBody["percentage_charge"])
	}
	if sub.SubaccountCode != "ACCT_4hl4xenwpjnayk4" {
		t.Fatalf("unexpected subaccount code %q", sub.SubaccountCode)
	}
	if sub.ID != 55 {
		t.Fatalf("unexpected subaccount id %d", sub.ID)
	}
}

func TestClientVerifyTransactionRequest(t *testing.T) {
	const expectedURL = "http://paystack.test/transaction/verify/ord_123"
	respBody := `{"status":true,"message":"Verification successful","data":{"id":9912,"status":"success","reference":"ord_123","amount":15000,"currency":"NGN","channel":"card","customer":{"email":"buyer@example.com"}}}`

	var capturedURL string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_abc", WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	txn, err := client.VerifyTransaction(context.Background(), "ord_123")
	if err != nil {
		t.Fatalf("verify transaction: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !txn.Succeeded() {
		t.Fatalf("expected success, got status %q", txn.Status)
	}
	if txn.AmountKobo != 15000 {
		t.Fatalf("unexpected amount %d", txn.AmountKobo)
	}
}

func TestClientProviderRejection(t *testing.T) {
	respBody := `{"status":false,"message":"Could not resolve account name. Check parameters or try again.","data":null}`

	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnprocessableEntity,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_abc", WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.ResolveAccount(context.Background(), "0000000000", "058")
	if !pkgerrors.HasCode(err, pkgerrors.CodeProviderRejected) {
		t.Fatalf("expected provider rejection, got %v", err)
	}
}

func TestClientServerErrorIsDependency(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream error")),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_abc", WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.VerifyTransaction(context.Background(), "ord_123")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty secret key")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
