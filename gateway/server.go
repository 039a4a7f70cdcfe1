package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"convertord/native/convertor"
	"convertord/observability"
)

// Server exposes the conversion ledger over HTTP. The engine carries no
// locking of its own, so the server serializes every mutating request behind
// a mutex; reads share the same lock because views walk live storage.
type Server struct {
	engine  *convertor.Engine
	logger  *slog.Logger
	metrics *observability.ConvertorMetrics
	mu      sync.Mutex
}

// NewServer wires the HTTP surface around a ready engine.
func NewServer(engine *convertor.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		logger:  logger,
		metrics: observability.Convertor(),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/pools", s.instrument("pools.list", s.listPools))
		v1.Post("/pools", s.instrument("pools.create", s.createPool))
		v1.Get("/pools/quote", s.instrument("pools.quote", s.bestQuote))
		v1.Get("/pools/pair", s.instrument("pools.pair", s.pairPools))
		v1.Get("/pools/creator/{account}", s.instrument("pools.creator", s.creatorPools))
		v1.Get("/pools/{poolID}", s.instrument("pools.get", s.getPool))
		v1.Post("/pools/{poolID}/withdraw", s.instrument("pools.withdraw", s.withdrawPool))
		v1.Post("/pools/{poolID}/delete", s.instrument("pools.delete", s.deletePool))

		v1.Get("/accounts/{account}", s.instrument("accounts.get", s.getAccount))
		v1.Post("/accounts/{account}/withdraw", s.instrument("accounts.withdraw", s.withdrawAccountToken))
		v1.Post("/accounts/{account}/unregister", s.instrument("accounts.unregister", s.unregister))

		v1.Post("/quota/deposit", s.instrument("quota.deposit", s.quotaDeposit))
		v1.Post("/quota/withdraw", s.instrument("quota.withdraw", s.quotaWithdraw))

		v1.Post("/deposits", s.instrument("deposits.notify", s.onDeposit))
		v1.Post("/transfers/ack", s.instrument("transfers.ack", s.resolveTransfer))

		v1.Get("/whitelist", s.instrument("whitelist.list", s.listWhitelist))

		v1.Route("/admin", func(admin chi.Router) {
			admin.Post("/pause", s.instrument("admin.pause", s.pause))
			admin.Post("/resume", s.instrument("admin.resume", s.resume))
			admin.Post("/whitelist", s.instrument("admin.whitelist.add", s.extendWhitelist))
			admin.Post("/whitelist/remove", s.instrument("admin.whitelist.remove", s.removeWhitelist))
			admin.Get("/create-pool-deposit", s.instrument("admin.deposit.get", s.getCreatePoolDeposit))
			admin.Post("/create-pool-deposit", s.instrument("admin.deposit.set", s.setCreatePoolDeposit))
		})
	})

	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) instrument(route string, next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := next(w, r)
		s.metrics.ObserveRequest(route, time.Since(start), err)
		if err != nil {
			s.logger.Warn("request failed", "route", route, "error", err.Error())
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) error {
	writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
	return err
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, convertor.ErrPoolNotFound),
		errors.Is(err, convertor.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, convertor.ErrNotAdmin),
		errors.Is(err, convertor.ErrNotCreator):
		return http.StatusForbidden
	case errors.Is(err, convertor.ErrPaused),
		errors.Is(err, convertor.ErrNotPaused),
		errors.Is(err, convertor.ErrPoolNotEmpty),
		errors.Is(err, convertor.ErrAccountNotEmpty),
		errors.Is(err, convertor.ErrTransferInFlight),
		errors.Is(err, convertor.ErrUnexpectedAck):
		return http.StatusConflict
	case errors.Is(err, convertor.ErrQuotaDebt),
		errors.Is(err, convertor.ErrInsufficientQuota),
		errors.Is(err, convertor.ErrInsufficientDeposit),
		errors.Is(err, convertor.ErrInsufficientPoolBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, convertor.ErrSchemaVersion):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseAmountField(field, raw string, required bool) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return nil, fmt.Errorf("%s is required", field)
		}
		return nil, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative decimal integer", field)
	}
	return value, nil
}

func parsePoolID(r *http.Request) (convertor.PoolID, error) {
	raw := chi.URLParam(r, "poolID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pool id %q", raw)
	}
	return convertor.PoolID(id), nil
}

type poolView struct {
	ID              uint64 `json:"id"`
	Creator         string `json:"creator"`
	InToken         string `json:"inToken"`
	InTokenBalance  string `json:"inTokenBalance"`
	OutToken        string `json:"outToken"`
	OutTokenBalance string `json:"outTokenBalance"`
	Reversible      bool   `json:"reversible"`
	InTokenRate     uint32 `json:"inTokenRate"`
	OutTokenRate    uint32 `json:"outTokenRate"`
	DepositAmount   string `json:"depositAmount"`
}

func toPoolView(p *convertor.ConversionPool) poolView {
	return poolView{
		ID:              uint64(p.ID),
		Creator:         p.Creator,
		InToken:         p.InToken,
		InTokenBalance:  p.InTokenBalance.String(),
		OutToken:        p.OutToken,
		OutTokenBalance: p.OutTokenBalance.String(),
		Reversible:      p.Reversible,
		InTokenRate:     p.InTokenRate,
		OutTokenRate:    p.OutTokenRate,
		DepositAmount:   p.DepositAmount.String(),
	}
}

func toPoolViews(pools []*convertor.ConversionPool) []poolView {
	views := make([]poolView, 0, len(pools))
	for _, pool := range pools {
		views = append(views, toPoolView(pool))
	}
	return views
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) error {
	from, limit := 0, 50
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return s.writeError(w, fmt.Errorf("invalid from parameter %q", raw))
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return s.writeError(w, fmt.Errorf("invalid limit parameter %q", raw))
		}
		limit = parsed
	}
	s.mu.Lock()
	pools, err := s.engine.GetPools(from, limit)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, toPoolViews(pools))
	return nil
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) error {
	id, err := parsePoolID(r)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	pool, ok, err := s.engine.GetPool(id)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	if !ok {
		return s.writeError(w, fmt.Errorf("%w: %d", convertor.ErrPoolNotFound, id))
	}
	writeJSON(w, http.StatusOK, toPoolView(pool))
	return nil
}

func (s *Server) creatorPools(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	pools, err := s.engine.GetCreatorPools(chi.URLParam(r, "account"))
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, toPoolViews(pools))
	return nil
}

func (s *Server) pairPools(w http.ResponseWriter, r *http.Request) error {
	in := r.URL.Query().Get("in")
	out := r.URL.Query().Get("out")
	s.mu.Lock()
	pools, err := s.engine.GetPairPools(in, out)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, toPoolViews(pools))
	return nil
}

type quoteResponse struct {
	PoolID       uint64 `json:"poolId"`
	OutputToken  string `json:"outputToken"`
	OutputAmount string `json:"outputAmount"`
}

func (s *Server) bestQuote(w http.ResponseWriter, r *http.Request) error {
	in := r.URL.Query().Get("in")
	out := r.URL.Query().Get("out")
	amount, err := parseAmountField("amount", r.URL.Query().Get("amount"), true)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	id, output, err := s.engine.SelectBestPool(in, out, amount)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		PoolID:       uint64(id),
		OutputToken:  strings.TrimSpace(out),
		OutputAmount: output.String(),
	})
	return nil
}

type createPoolRequest struct {
	Creator    string `json:"creator"`
	InToken    string `json:"inToken"`
	OutToken   string `json:"outToken"`
	Reversible bool   `json:"reversible"`
	InRate     uint32 `json:"inRate"`
	OutRate    uint32 `json:"outRate"`
	Deposit    string `json:"deposit"`
}

func (s *Server) createPool(w http.ResponseWriter, r *http.Request) error {
	var req createPoolRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	deposit, err := parseAmountField("deposit", req.Deposit, true)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	id, err := s.engine.CreatePool(req.Creator, req.InToken, req.OutToken, req.Reversible, req.InRate, req.OutRate, deposit)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"poolId": uint64(id)})
	return nil
}

type withdrawPoolRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount,omitempty"`
}

func (s *Server) withdrawPool(w http.ResponseWriter, r *http.Request) error {
	id, err := parsePoolID(r)
	if err != nil {
		return s.writeError(w, err)
	}
	var req withdrawPoolRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	amount, err := parseAmountField("amount", req.Amount, false)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	released, err := s.engine.WithdrawPoolToken(req.Caller, id, req.Token, amount)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"released": released.String()})
	return nil
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) deletePool(w http.ResponseWriter, r *http.Request) error {
	id, err := parsePoolID(r)
	if err != nil {
		return s.writeError(w, err)
	}
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err = s.engine.DeletePool(req.Caller, id)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	return nil
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	view, ok, err := s.engine.GetAccount(chi.URLParam(r, "account"))
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	if !ok {
		return s.writeError(w, fmt.Errorf("%w: %s", convertor.ErrAccountNotFound, chi.URLParam(r, "account")))
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) withdrawAccountToken(w http.ResponseWriter, r *http.Request) error {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	amount, err := s.engine.WithdrawAccountToken(chi.URLParam(r, "account"), req.Token)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"dispatched": amount.String()})
	return nil
}

func (s *Server) unregister(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	refunded, err := s.engine.Unregister(chi.URLParam(r, "account"))
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"refunded": refunded.String()})
	return nil
}

type quotaRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount,omitempty"`
}

func (s *Server) quotaDeposit(w http.ResponseWriter, r *http.Request) error {
	var req quotaRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	amount, err := parseAmountField("amount", req.Amount, true)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err = s.engine.QuotaDeposit(req.Caller, amount)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"credited": true})
	return nil
}

func (s *Server) quotaWithdraw(w http.ResponseWriter, r *http.Request) error {
	var req quotaRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	amount, err := parseAmountField("amount", req.Amount, false)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	withdrawn, err := s.engine.QuotaWithdraw(req.Caller, amount)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": withdrawn.String()})
	return nil
}

type depositRequest struct {
	Sender  string                    `json:"sender"`
	Token   string                    `json:"token"`
	Amount  string                    `json:"amount"`
	Message convertor.TransferMessage `json:"message"`
}

func (s *Server) onDeposit(w http.ResponseWriter, r *http.Request) error {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	amount, err := parseAmountField("amount", req.Amount, true)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	unused, err := s.engine.OnTokenDeposit(req.Sender, req.Token, amount, req.Message)
	s.mu.Unlock()
	if req.Message.Convert != nil {
		s.metrics.RecordConversion(req.Token, err)
	}
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"unused": unused.String()})
	return nil
}

type transferAckRequest struct {
	Token    string `json:"token"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
	Outcome  string `json:"outcome"`
}

func (s *Server) resolveTransfer(w http.ResponseWriter, r *http.Request) error {
	var req transferAckRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	amount, err := parseAmountField("amount", req.Amount, true)
	if err != nil {
		return s.writeError(w, err)
	}
	var outcome convertor.TransferOutcome
	switch strings.ToLower(strings.TrimSpace(req.Outcome)) {
	case "success", "succeeded":
		outcome = convertor.TransferSucceeded
	case "failure", "failed":
		outcome = convertor.TransferFailed
	default:
		return s.writeError(w, fmt.Errorf("outcome must be success or failure, got %q", req.Outcome))
	}
	s.mu.Lock()
	err = s.engine.ResolveTransfer(req.Token, req.Receiver, amount, outcome)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
	return nil
}

func (s *Server) listWhitelist(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	tokens, err := s.engine.Whitelist()
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, tokens)
	return nil
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) error {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err := s.engine.Pause(req.Caller)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
	return nil
}

func (s *Server) resume(w http.ResponseWriter, r *http.Request) error {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err := s.engine.Resume(req.Caller)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
	return nil
}

type whitelistRequest struct {
	Caller string                `json:"caller"`
	Tokens []convertor.TokenInfo `json:"tokens"`
}

func (s *Server) extendWhitelist(w http.ResponseWriter, r *http.Request) error {
	var req whitelistRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err := s.engine.ExtendWhitelistedTokens(req.Caller, req.Tokens)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": len(req.Tokens)})
	return nil
}

type whitelistRemoveRequest struct {
	Caller string   `json:"caller"`
	Tokens []string `json:"tokens"`
}

func (s *Server) removeWhitelist(w http.ResponseWriter, r *http.Request) error {
	var req whitelistRemoveRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err := s.engine.RemoveWhitelistedTokens(req.Caller, req.Tokens)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": len(req.Tokens)})
	return nil
}

func (s *Server) getCreatePoolDeposit(w http.ResponseWriter, r *http.Request) error {
	s.mu.Lock()
	deposit, err := s.engine.CreatePoolDeposit()
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"createPoolDeposit": deposit.String()})
	return nil
}

type setDepositRequest struct {
	Caller  string `json:"caller"`
	Deposit string `json:"deposit"`
}

func (s *Server) setCreatePoolDeposit(w http.ResponseWriter, r *http.Request) error {
	var req setDepositRequest
	if err := decodeBody(r, &req); err != nil {
		return s.writeError(w, err)
	}
	deposit, err := parseAmountField("deposit", req.Deposit, true)
	if err != nil {
		return s.writeError(w, err)
	}
	s.mu.Lock()
	err = s.engine.SetCreatePoolDeposit(req.Caller, deposit)
	s.mu.Unlock()
	if err != nil {
		return s.writeError(w, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"createPoolDeposit": deposit.String()})
	return nil
}
