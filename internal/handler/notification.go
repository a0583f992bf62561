package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/service"
)

// NotificationHandler records and lists customer notifications, and serves
// the one-time password flow, which reaches customers over the same mail
// channel.
type NotificationHandler struct {
	notifications *service.NotificationService
	otp           *service.OTPService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, otp *service.OTPService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, otp: otp, logger: logger}
}

type otpSendRequest struct {
	Email string `json:"email"`
}

type otpVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// HTTP: POST /api/notifications
func (h *NotificationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.NotificationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.notifications.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// HTTP: GET /api/customers/{rut}/notifications
func (h *NotificationHandler) HandleListByCustomer(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListByCustomer(r.Context(), chi.URLParam(r, "rut"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: POST /api/otp/send
func (h *NotificationHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var in otpSendRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.otp.Send(r.Context(), in.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVerifyOTP always answers 200; a rejected code is reported in the
// body as isValid=false.
//
// HTTP: POST /api/otp/verify
func (h *NotificationHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in otpVerifyRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.otp.Verify(r.Context(), in.Email, in.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
