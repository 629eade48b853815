package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/config"
	"github.com/itda-project/itda-chat-api/models"
)

// Settlement struct mostly used for mocking tests
type Settlement struct {
	Core     *chat.Core
	Config   config.Config
	Validate *validator.Validate
}

// CheckoutRequest is the payload for paying one share of a bill message
type CheckoutRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CheckoutResponse carries the hosted payment page for a bill share
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CheckoutSessionHandler creates a Stripe checkout session for the caller's
// share of a BILL message. Shares are stored in the message metadata as
// {"participants": [{"userId": ..., "amount": ..., "isPaid": ...}]} with
// amounts in whole KRW.
func (s Settlement) CheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["message_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid checkout request", http.StatusBadRequest, w, err)
		return
	}

	bill, err := s.Core.Messages.GetMessage(context.Background(), messageID)
	if err != nil {
		config.ErrorStatus("failed to get bill message", statusForError(err), w, err)
		return
	}
	if bill.Type != models.MessageBill {
		config.ErrorStatus("message is not a bill", http.StatusBadRequest, w, chat.ErrInvalidMessageType)
		return
	}
	amount, ok := shareAmount(bill.Metadata, req.UserID)
	if !ok {
		config.ErrorStatus("no unpaid share for user", http.StatusNotFound, w, chat.ErrParticipantNotFound)
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyKRW)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("settlement share for room %s", bill.RoomID.Hex())),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.Config.BaseURL + "/settlement/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.Config.BaseURL + "/settlement/cancel"),
		ClientReferenceID: stripe.String(bill.ID.Hex() + ":" + req.UserID),
	}
	sess, err := session.New(params)
	if err != nil {
		config.ErrorStatus("failed to create checkout session", http.StatusInternalServerError, w, err)
		return
	}

	writeJSON(w, CheckoutResponse{SessionID: sess.ID, URL: sess.URL})
}

// shareAmount finds the caller's unpaid share amount inside a bill's metadata.
func shareAmount(metadata map[string]interface{}, userID string) (int64, bool) {
	shares, ok := metadata["participants"].([]interface{})
	if !ok {
		return 0, false
	}
	for _, raw := range shares {
		share, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", share["userId"]) != userID {
			continue
		}
		if paid, _ := share["isPaid"].(bool); paid {
			return 0, false
		}
		switch v := share["amount"].(type) {
		case float64:
			return int64(v), true
		case int64:
			return v, true
		case int32:
			return int64(v), true
		}
	}
	return 0, false
}
