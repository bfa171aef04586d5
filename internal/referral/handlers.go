package referral

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

// Handler exposes referral endpoints: public registration and code lookup,
// authenticated dashboard reads, and the admin network view.
type Handler struct {
	Svc *Service
}

type registerPayload struct {
	UserID       string `json:"userId"`
	ReferralCode string `json:"referralCode"`
}

// Register creates the referral account for a newly signed-up user and runs
// the payout cascade.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "userId is required", nil)
		return
	}
	result, err := h.Svc.Register(r.Context(), userID, strings.TrimSpace(payload.ReferralCode))
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountExists):
			common.JSONError(w, http.StatusConflict, "CONFLICT", "referral account already exists", nil)
		case errors.Is(err, ErrInvalidReferralCode):
			common.JSONError(w, http.StatusBadRequest, "INVALID_REFERRAL_CODE", "referral code not recognized", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to register referral account", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

// VerifyCode reports whether a referral code exists and who owns it.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	account, err := h.Svc.ResolveCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrInvalidReferralCode) {
			common.JSONError(w, http.StatusNotFound, "INVALID_REFERRAL_CODE", "referral code not recognized", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to verify referral code", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"valid":        true,
		"referralCode": account.ReferralCode,
		"userId":       account.UserID,
	}})
}

// Dashboard returns the caller's account with recent ledger activity.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	dash, err := h.Svc.Dashboard(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "referral account not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load dashboard", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dash})
}

// Transactions pages through the caller's ledger entries.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	p := common.ParsePagination(r)
	txs, total, err := h.Svc.Transactions(r.Context(), userID, p.Limit, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list transactions", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": txs,
		"meta": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// Downline returns the caller's recruited accounts grouped by level.
func (h *Handler) Downline(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", nil)
		return
	}
	account, err := h.Svc.Account(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "referral account not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load downline", nil)
		return
	}
	byLevel := map[int][]DownlineEntry{}
	for _, entry := range account.Downline {
		byLevel[entry.Level] = append(byLevel[entry.Level], entry)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"level1": byLevel[1],
		"level2": byLevel[2],
		"level3": byLevel[3],
		"counts": map[string]int64{
			"total":  account.TotalReferrals,
			"level1": account.Level1Referrals,
			"level2": account.Level2Referrals,
			"level3": account.Level3Referrals,
		},
	}})
}

// NetworkStats returns the admin aggregate over the whole network.
func (h *Handler) NetworkStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.NetworkStats(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load referral stats", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}
