package api

import (
	"context"
	"net/http"

	"course-storefront/internal/api/web"
	"course-storefront/internal/checkout"
)

func (h *handlers) flow() checkout.Flow {
	return checkout.Flow{Sessions: h.sessions, Log: h.log}
}

func (h *handlers) handleCheckout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	sum, err := h.flow().Begin(ctx)
	if err != nil {
		return err
	}
	return web.Respond(ctx, w, sum, http.StatusOK)
}

func (h *handlers) handlePay(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var form checkout.PaymentForm
	if err := web.Decode(w, r, &form); err != nil {
		return decodeErr(err)
	}
	sum, err := h.flow().Pay(ctx, form)
	if err != nil {
		return err
	}
	return web.Respond(ctx, w, sum, http.StatusOK)
}

func (h *handlers) handleFinish(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.flow().Finish(ctx); err != nil {
		return err
	}
	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
