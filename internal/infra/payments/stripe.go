package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	apppayments "staybook/internal/app/payments"
	"staybook/internal/app/reservation"
	"staybook/internal/domain/unit"
)

// StripeVerifier authenticates webhook payloads against the shared
// endpoint secret and maps checkout session events onto processor
// notifications.
type StripeVerifier struct {
	WebhookSecret string
}

func (v StripeVerifier) Verify(payload []byte, signature string) (apppayments.Notification, error) {
	event, err := webhook.ConstructEvent(payload, signature, v.WebhookSecret)
	if err != nil {
		return apppayments.Notification{}, fmt.Errorf("%w: %v", apppayments.ErrVerificationFailed, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return notificationFromSession(event, apppayments.KindSettled)
	case "checkout.session.expired":
		return notificationFromSession(event, apppayments.KindFailed)
	}
	return apppayments.Notification{EventID: event.ID, Kind: apppayments.KindUnknown}, nil
}

func notificationFromSession(event stripe.Event, kind apppayments.Kind) (apppayments.Notification, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return apppayments.Notification{}, fmt.Errorf("stripe: decode checkout session: %w", err)
	}

	n := apppayments.Notification{
		EventID:       event.ID,
		Kind:          kind,
		BookingRef:    session.Metadata["booking_id"],
		SettlementRef: session.ID,
		UnitID:        session.Metadata["unit_id"],
		UserID:        session.Metadata["user_id"],
		Amount:        session.AmountTotal,
		Currency:      string(session.Currency),
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		n.SettlementRef = session.PaymentIntent.ID
	}
	if n.UserID == "" {
		n.UserID = session.ClientReferenceID
	}
	if raw := session.Metadata["check_in"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			n.CheckIn = t
		}
	}
	if raw := session.Metadata["check_out"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			n.CheckOut = t
		}
	}
	return n, nil
}

// CheckoutClient creates hosted checkout sessions for the payment
// hand-off after a hold is acquired.
type CheckoutClient struct {
	SuccessURL string
	CancelURL  string
}

func NewCheckoutClient(secretKey, successURL, cancelURL string) *CheckoutClient {
	stripe.Key = secretKey
	return &CheckoutClient{SuccessURL: successURL, CancelURL: cancelURL}
}

// CreateSession registers the amount due with the processor and returns
// the URL the guest completes payment on. The booking id travels in the
// session metadata so the webhook can route the settlement back.
func (c *CheckoutClient) CreateSession(_ context.Context, u *unit.Unit, receipt *reservation.HoldReceipt, userID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(c.SuccessURL),
		CancelURL:         stripe.String(c.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(receipt.AmountDue.Currency),
					UnitAmount: stripe.Int64(receipt.AmountDue.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(u.Title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("booking_id", string(receipt.BookingID))
	params.AddMetadata("unit_id", string(u.ID))
	params.AddMetadata("user_id", userID)

	s, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return s.URL, nil
}
