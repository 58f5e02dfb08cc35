package checkout

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"course-storefront/internal/domain"
	"course-storefront/internal/session"
	"course-storefront/internal/validate"
)

// Step of the checkout wizard.
type Step int

const (
	StepReview Step = iota
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepReview:
		return "review"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	}
	return "unknown"
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Summary struct {
	Course domain.Course `json:"course"`
	Step   Step          `json:"step"`
	Total  float64       `json:"total"`
	Free   bool          `json:"free"`
}

// PaymentForm is the card form of the payment step. No card data leaves
// the storefront.
type PaymentForm struct {
	CardholderName string `json:"cardholderName" validate:"required"`
	CardNumber     string `json:"cardNumber" validate:"required,numeric,min=12,max=19"`
	ExpirationDate string `json:"expirationDate" validate:"required"`
	CVC            string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	BillingAddress string `json:"billingAddress" validate:"required"`
}

func (f *PaymentForm) normalize() {
	f.CardholderName = strings.TrimSpace(f.CardholderName)
	f.CardNumber = strings.NewReplacer(" ", "", "-", "").Replace(f.CardNumber)
	f.ExpirationDate = strings.TrimSpace(f.ExpirationDate)
	f.CVC = strings.TrimSpace(f.CVC)
	f.BillingAddress = strings.TrimSpace(f.BillingAddress)
}

type Flow struct {
	Sessions session.Store
	Log      logrus.FieldLogger
}

func (f Flow) selection(ctx context.Context) (domain.Course, error) {
	c, ok := f.Sessions.Selection(ctx)
	if !ok {
		return domain.Course{}, &domain.NotFoundError{What: "checkout selection"}
	}
	return c, nil
}

// Begin opens checkout for the saved selection. Free courses go straight
// to confirmation.
func (f Flow) Begin(ctx context.Context) (Summary, error) {
	c, err := f.selection(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Course: c, Step: StepReview, Total: c.Price, Free: c.IsFree()}
	if sum.Free {
		sum.Step = StepConfirmation
	}
	return sum, nil
}

// Pay validates the payment form and moves to confirmation. Free courses
// take no payment and the form is ignored.
func (f Flow) Pay(ctx context.Context, form PaymentForm) (Summary, error) {
	c, err := f.selection(ctx)
	if err != nil {
		return Summary{}, err
	}
	if c.IsFree() {
		return Summary{Course: c, Step: StepConfirmation, Free: true}, nil
	}
	form.normalize()
	if err := validate.Check(form); err != nil {
		return Summary{}, err
	}

	if f.Log != nil {
		f.Log.WithFields(logrus.Fields{
			"course": c.Key().String(),
			"card":   "****" + form.CardNumber[len(form.CardNumber)-4:],
			"amount": c.Price,
		}).Info("payment accepted")
	}
	return Summary{Course: c, Step: StepConfirmation, Total: c.Price}, nil
}

// Finish ends checkout and drops the selection.
func (f Flow) Finish(ctx context.Context) error {
	return f.Sessions.ClearSelection(ctx)
}
