package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediarequest/backend/internal/auth/service"
	authdto "github.com/mediarequest/backend/internal/auth/service/dto"
	"github.com/mediarequest/backend/internal/auth/service/mapper"
	commonhttp "github.com/mediarequest/backend/internal/common/http"
	"github.com/mediarequest/backend/internal/common/jwtverify"
	"github.com/mediarequest/backend/internal/common/logger"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (service.RegisterResult, error)
	Login(ctx context.Context, input service.LoginInput) (service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (service.RefreshResult, error)
}

type AccessVerifier interface {
	VerifyAccessToken(token string) (service.AccessClaims, error)
}

type HandlerConfig struct {
	RequestTimeout time.Duration
	HealthCheck    commonhttp.HealthCheck
}

type Handler struct {
	auth   AuthService
	errors *commonhttp.ErrorHandler
	log    *logger.Logger
}

func NewHandler(auth AuthService, verifier AccessVerifier, cfg HandlerConfig, log *logger.Logger) http.Handler {
	h := &Handler{
		auth:   auth,
		errors: commonhttp.NewErrorHandler(log),
		log:    log,
	}

	post := commonhttp.RequireMethod(http.MethodPost)
	get := commonhttp.RequireMethod(http.MethodGet)
	withTimeout := commonhttp.WithTimeout(cfg.RequestTimeout)

	bearer := jwtverify.Middleware(jwtverify.VerifierFunc(func(token string) (jwtverify.Claims, error) {
		claims, err := verifier.VerifyAccessToken(token)
		if err != nil {
			return jwtverify.Claims{}, err
		}
		return mapper.AccessClaimsToVerified(claims), nil
	}), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, cfg.HealthCheck))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/auth/register", post(withTimeout(h.register)))
	mux.HandleFunc("/auth/login", post(withTimeout(h.login)))
	mux.HandleFunc("/auth/refresh", post(withTimeout(h.refresh)))
	mux.Handle("/auth/me", get(bearer(http.HandlerFunc(h.me)).ServeHTTP))
	mux.HandleFunc("/", h.notFound)
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req authdto.RegisterRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "register_invalid_json",
		}).Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteDecodeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		DisplayName:   req.DisplayName,
		ContactHandle: req.ContactHandle,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, mapper.RegisterResultToDTO(result))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req authdto.LoginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "login_invalid_json",
		}).Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteDecodeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, mapper.LoginResultToDTO(result))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req authdto.RefreshRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil && !errors.Is(err, commonhttp.ErrEmptyBody) {
		h.log.WithFields(r.Context(), logger.Fields{
			"action": "refresh_invalid_json",
		}).Warnf("refresh failed: invalid json: %v", err)
		commonhttp.WriteDecodeError(w, err)
		return
	}

	result, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, authdto.RefreshResponse{AccessToken: result.AccessToken})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		h.errors.HandleError(w, r, service.ErrUnauthorized)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, mapper.ClaimsToMeDTO(claims))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	commonhttp.WriteError(w, http.StatusNotFound, commonhttp.CodeNotFound, "not found")
}
