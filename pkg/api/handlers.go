package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/engine"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/metrics"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/provisioner"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/storage"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/types"
)

const (
	auditLimitDefault = 100
	auditLimitMax     = 500
	defaultEngine     = "woocommerce"
	nameLengthMin     = 2
	nameLengthMax     = 100
)

// validate is a package-level, concurrency-safe validator instance
var validate = validator.New(validator.WithRequiredStructEnabled())

type createStoreRequest struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Engine string `json:"engine"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": s.cfg.Environment,
	})
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.store.ListStores()
	if err != nil {
		s.internalError(w, err)
		return
	}
	if stores == nil {
		stores = []*types.Store{}
	}
	respond(w, http.StatusOK, map[string]any{"stores": stores})
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	store, ok := s.loadStore(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respond(w, http.StatusOK, map[string]any{"store": store})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req createStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, NewError(http.StatusBadRequest, CodeInvalidJSON,
			"Request body is not valid JSON"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	if err := validate.Struct(&req); err != nil {
		respondError(w, nameValidationError(err))
		return
	}

	engineName := req.Engine
	if engineName == "" {
		engineName = defaultEngine
	}
	if !s.engines.Known(engineName) {
		respondError(w, NewError(http.StatusBadRequest, CodeInvalidEngine,
			fmt.Sprintf("Unknown engine %q, expected one of: %s",
				engineName, strings.Join(s.engines.Names(), ", "))))
		return
	}

	eng, err := s.engines.Get(engineName)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if result := eng.Validate(); !result.Valid {
		respondError(w, NewError(http.StatusBadRequest, CodeEngineUnavailable, result.Error))
		return
	}

	active, err := s.store.ActiveStoreCount()
	if err != nil {
		s.internalError(w, err)
		return
	}
	if active >= s.cfg.MaxStores {
		respondError(w, NewError(http.StatusTooManyRequests, CodeQuotaExceeded,
			fmt.Sprintf("Store quota reached: %d active of %d allowed", active, s.cfg.MaxStores)))
		return
	}

	id := engine.NewStoreID()
	now := time.Now().UTC()
	store := &types.Store{
		ID:          id,
		Name:        req.Name,
		Engine:      engineName,
		Status:      types.StoreStatusQueued,
		Namespace:   id,
		HelmRelease: id,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateStore(store); err != nil {
		s.internalError(w, err)
		return
	}

	log.WithStoreID(id).Info().
		Str("name", store.Name).
		Str("engine", engineName).
		Msg("Store created, scheduling provisioning")

	go func() {
		_ = s.orchestrator.Provision(id)
	}()

	respond(w, http.StatusCreated, map[string]any{"store": store})
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	store, ok := s.loadStore(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	switch store.Status {
	case types.StoreStatusDeleted:
		respondError(w, NewError(http.StatusConflict, CodeInvalidStateTransition,
			"Store is already deleted"))
		return
	case types.StoreStatusDeleting:
		respondError(w, NewError(http.StatusConflict, CodeOperationInProgress,
			"Store deletion is already in progress"))
		return
	}
	if kind, active := s.orchestrator.OperationStatus(store.ID); active && kind == types.OperationDeleting {
		respondError(w, NewError(http.StatusConflict, CodeOperationInProgress,
			"Store deletion is already in progress"))
		return
	}

	log.WithStoreID(store.ID).Info().Msg("Store deletion scheduled")
	go s.runDelete(store.ID)

	respond(w, http.StatusAccepted, map[string]string{
		"message": "Store deletion started",
		"storeId": store.ID,
	})
}

// runDelete executes the delete workflow, waiting out a provisioning
// workflow that still holds the store's operation lock. Deleting a store
// mid-provision is accepted; the delete takes over once the prior workflow
// releases.
func (s *Server) runDelete(storeID string) {
	deadline := time.Now().Add(s.deleteWait)
	for {
		err := s.orchestrator.Delete(storeID)
		if err == nil || !errors.Is(err, provisioner.ErrOperationInProgress) {
			return
		}
		if time.Now().After(deadline) {
			log.WithStoreID(storeID).Error().
				Msg("Gave up waiting for prior operation before delete")
			return
		}
		time.Sleep(s.deleteRetryInterval)
	}
}

func (s *Server) handleRetryStore(w http.ResponseWriter, r *http.Request) {
	store, ok := s.loadStore(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if store.Status != types.StoreStatusFailed {
		respondError(w, NewError(http.StatusConflict, CodeInvalidStateTransition,
			fmt.Sprintf("Can only retry failed stores, store is %s", store.Status)))
		return
	}
	if kind, active := s.orchestrator.OperationStatus(store.ID); active {
		respondError(w, NewError(http.StatusConflict, CodeOperationInProgress,
			fmt.Sprintf("Store has an active %s operation", kind)))
		return
	}

	storeLog := log.WithStoreID(store.ID)
	if err := s.store.AppendAudit(store.ID, types.AuditActionRetry, map[string]string{
		"previous_error": store.ErrorMessage,
	}); err != nil {
		storeLog.Warn().Err(err).Msg("Failed to append retry audit entry")
	}

	storeLog.Info().Msg("Retry scheduled")
	go func() {
		_ = s.orchestrator.Provision(store.ID)
	}()

	respond(w, http.StatusAccepted, map[string]string{
		"message": "Store provisioning restarted",
		"storeId": store.ID,
	})
}

func (s *Server) handleStoreAudit(w http.ResponseWriter, r *http.Request) {
	store, ok := s.loadStore(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	entries, err := s.store.ListAuditForStore(store.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if entries == nil {
		entries = []*types.AuditEntry{}
	}
	respond(w, http.StatusOK, map[string]any{"audit": entries})
}

func (s *Server) handleStoreOperation(w http.ResponseWriter, r *http.Request) {
	store, ok := s.loadStore(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	body := map[string]any{"storeId": store.ID, "operation": nil}
	if kind, active := s.orchestrator.OperationStatus(store.ID); active {
		body["operation"] = kind
	}
	respond(w, http.StatusOK, body)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := auditLimitDefault
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > auditLimitMax {
		limit = auditLimitMax
	}

	entries, err := s.store.ListAudit(limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if entries == nil {
		entries = []*types.AuditEntry{}
	}
	respond(w, http.StatusOK, map[string]any{"audit": entries})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	histogram, err := s.store.StatusHistogram()
	if err != nil {
		s.internalError(w, err)
		return
	}
	metrics.UpdateStoreGauges(histogram)

	total := 0
	byStatus := make(map[string]int, len(histogram))
	for status, count := range histogram {
		total += count
		byStatus[string(status)] = count
	}

	stats, err := s.store.ProvisioningStats()
	if err != nil {
		s.internalError(w, err)
		return
	}

	failures, err := s.store.RecentFailures(5)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if failures == nil {
		failures = []*types.Store{}
	}

	respond(w, http.StatusOK, map[string]any{
		"stores": map[string]any{
			"total":    total,
			"byStatus": byStatus,
		},
		"provisioning":   stats,
		"recentFailures": failures,
	})
}

// loadStore fetches a store or writes the 404 envelope
func (s *Server) loadStore(w http.ResponseWriter, id string) (*types.Store, bool) {
	store, err := s.store.GetStore(id)
	if err != nil {
		if errors.Is(err, storage.ErrStoreNotFound) {
			respondError(w, NewError(http.StatusNotFound, CodeNotFound,
				fmt.Sprintf("Store %s not found", id)))
			return nil, false
		}
		s.internalError(w, err)
		return nil, false
	}
	return store, true
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("Internal error")
	respondInternal(w, s.cfg.Production(), err.Error(), "")
}

// nameValidationError maps validator failures on the create request to the
// contract's name error codes
func nameValidationError(err error) *Error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return NewError(http.StatusBadRequest, CodeMissingStoreName,
					"Store name is required")
			}
		}
	}
	return NewError(http.StatusBadRequest, CodeInvalidStoreName,
		fmt.Sprintf("Store name must be between %d and %d characters", nameLengthMin, nameLengthMax))
}
