package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kasuwa-hq/kasuwa-backend/api/responses"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
)

const signatureHeader = "x-paystack-signature"

// eventChargeSuccess is the only Paystack event the dashboard acts on. Other
// event types are acknowledged and dropped.
const eventChargeSuccess = "charge.success"

type PaymentConfirmer interface {
	ConfirmPaymentByReference(ctx context.Context, reference string) (*models.Order, error)
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// PaystackWebhook verifies the provider signature and settles paid orders.
// Paystack signs the raw body with HMAC-SHA512 of the account secret.
func PaystackWebhook(svc PaymentConfirmer, webhookKey string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if webhookKey == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook key not configured"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature missing"))
			return
		}
		if !validSignature(payload, signature, webhookKey) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch"))
			return
		}

		var event paystackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		if event.Event != eventChargeSuccess {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "event", event.Event), "paystack event ignored")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if event.Data.Reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "charge reference missing"))
			return
		}

		if _, err := svc.ConfirmPaymentByReference(ctx, event.Data.Reference); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "reference", event.Data.Reference), "paystack charge settled")
		}
		responses.WriteSuccess(w, nil)
	}
}

func validSignature(payload []byte, signature, key string) bool {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
