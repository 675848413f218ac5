package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"paymob-integration/internal/model"
	"paymob-integration/internal/repository"
	"paymob-integration/internal/service"
)

type PaymobHandler struct {
	checkout *service.CheckoutService
	callback *service.CallbackService
	actions  *service.ActionService
}

func NewPaymobHandler(checkout *service.CheckoutService, callback *service.CallbackService, actions *service.ActionService) *PaymobHandler {
	return &PaymobHandler{
		checkout: checkout,
		callback: callback,
		actions:  actions,
	}
}

type PayRequest struct {
	Component   string `json:"component"`
	PaymentArea string `json:"payment_area"`
	ItemID      int64  `json:"item_id"`
	UserID      int64  `json:"user_id"`
	AccountID   uint   `json:"account_id"`
	Method      string `json:"method"`
	PhoneNumber string `json:"phone_number"`

	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

func (h *PaymobHandler) Pay(c echo.Context) error {
	ctx := c.Request().Context()

	var req PayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	checkoutReq := &service.CheckoutRequest{
		Component:   req.Component,
		PaymentArea: req.PaymentArea,
		ItemID:      req.ItemID,
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		Method:      req.Method,
		PhoneNumber: req.PhoneNumber,
	}
	checkoutReq.Billing.Email = req.Email
	checkoutReq.Billing.FirstName = req.FirstName
	checkoutReq.Billing.LastName = req.LastName
	checkoutReq.Billing.PhoneNumber = req.Phone
	checkoutReq.Billing.Street = req.Street
	checkoutReq.Billing.City = req.City
	checkoutReq.Billing.Country = req.Country

	result, err := h.checkout.Pay(ctx, checkoutReq)
	switch {
	case errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrNoIntegration),
		errors.Is(err, service.ErrWalletNumber),
		errors.Is(err, service.ErrUnknownPayable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order_id":        result.OrderID,
		"redirect_url":    result.RedirectURL,
		"pay_token":       result.PayToken,
		"kiosk_reference": result.KioskReference,
	})
}

// Webhook handles the server-to-server POST callback. The response is
// plain text; the processor only looks at the status code.
func (h *PaymobHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	ack, err := h.callback.HandleWebhook(ctx, body, c.QueryParam("hmac"))
	var conflict *model.StateConflictError
	switch {
	case errors.Is(err, service.ErrVerificationFailed):
		return echo.NewHTTPError(http.StatusForbidden, service.ErrVerificationFailed.Error())
	case errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, conflict.Error())
	case errors.Is(err, repository.ErrStatusConflict):
		// A concurrent delivery won the compare-and-swap.
		return echo.NewHTTPError(http.StatusConflict, repository.ErrStatusConflict.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, "callback rejected")
	}

	return c.String(http.StatusOK, ack)
}

// Return handles the payer's browser coming back from the hosted page.
// Whatever happens, the user gets redirected somewhere with a flash
// message; errors never surface as raw HTTP errors here.
func (h *PaymobHandler) Return(c echo.Context) error {
	ctx := c.Request().Context()

	result := h.callback.HandleReturn(ctx, c.QueryParams())

	target := result.RedirectURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("message", result.Message)
		q.Set("level", result.Level)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	return c.Redirect(http.StatusFound, target)
}

func (h *PaymobHandler) orderID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "bad order id")
	}
	return uint(id), nil
}

func (h *PaymobHandler) Void(c echo.Context) error {
	id, err := h.orderID(c)
	if err != nil {
		return err
	}

	err = h.actions.Void(c.Request().Context(), id)
	switch {
	case errors.Is(err, service.ErrVoidWindow),
		errors.Is(err, service.ErrNoTransaction):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": model.StatusVoided})
}

type RefundRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *PaymobHandler) Refund(c echo.Context) error {
	id, err := h.orderID(c)
	if err != nil {
		return err
	}

	var req RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	err = h.actions.Refund(c.Request().Context(), id, req.AmountCents)
	switch {
	case errors.Is(err, service.ErrRefundExceeded),
		errors.Is(err, service.ErrNoTransaction):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": model.StatusRefunded})
}

func (h *PaymobHandler) Inquiry(c echo.Context) error {
	id, err := h.orderID(c)
	if err != nil {
		return err
	}

	summary, err := h.actions.Inquiry(c.Request().Context(), id)
	if errors.Is(err, service.ErrNoTransaction) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *PaymobHandler) Integrations(c echo.Context) error {
	accountID, err := strconv.ParseUint(c.QueryParam("account_id"), 10, 32)
	if err != nil || accountID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "bad account id")
	}

	list, err := h.actions.ListIntegrations(c.Request().Context(), uint(accountID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
