package api

import (
	"context"
	"net/http"

	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/types"
	"github.com/babylonlabs-io/simple-staking/internal/utils"
	"github.com/babylonlabs-io/simple-staking/pkg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
)

// CallerHeader carries the identity the operation is executed as
const CallerHeader = "X-Caller-Address"

// Approver grants allowances on the staking token
type Approver interface {
	Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error
}

type Handler struct {
	engine   *staking.Engine
	approver Approver
	health   func(ctx context.Context) error
}

func NewHandler(engine *staking.Engine, approver Approver, health func(ctx context.Context) error) *Handler {
	return &Handler{
		engine:   engine,
		approver: approver,
		health:   health,
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ContractResponse struct {
	Owner        string `json:"owner"`
	Contract     string `json:"contract"`
	StakingToken string `json:"staking_token"`
}

type StakeResponse struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	LastClaim uint64 `json:"last_claim"`
}

type AmountResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type ReferrerResponse struct {
	Address  string  `json:"address"`
	Referrer *string `json:"referrer"`
}

type StakeRequest struct {
	Amount   string `json:"amount"`
	Referrer string `json:"referrer,omitempty"`
}

type UnstakeRequest struct {
	Amount string `json:"amount"`
}

type WithdrawRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (h *Handler) HealthCheck(r *http.Request) (*Result, *types.Error) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			return nil, types.NewError(http.StatusServiceUnavailable, types.InternalServiceError, err)
		}
	}
	return NewResult(HealthResponse{Status: "ok"}), nil
}

func (h *Handler) GetContract(_ *http.Request) (*Result, *types.Error) {
	return NewResult(ContractResponse{
		Owner:        h.engine.Owner().Hex(),
		Contract:     h.engine.Contract().Hex(),
		StakingToken: h.engine.StakingToken().Address().Hex(),
	}), nil
}

func (h *Handler) GetStake(r *http.Request) (*Result, *types.Error) {
	account, apiErr := pathAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}

	rec, err := h.engine.StakeOf(r.Context(), account)
	if err != nil {
		return nil, toAPIError(err)
	}
	return NewResult(stakeResponse(account, rec)), nil
}

func (h *Handler) GetPendingROI(r *http.Request) (*Result, *types.Error) {
	account, apiErr := pathAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}

	roi, err := h.engine.PendingROI(r.Context(), account)
	if err != nil {
		return nil, toAPIError(err)
	}
	return NewResult(AmountResponse{Address: account.Hex(), Amount: roi.Dec()}), nil
}

func (h *Handler) GetReferrer(r *http.Request) (*Result, *types.Error) {
	account, apiErr := pathAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}

	ref, err := h.engine.ReferrerOf(r.Context(), account)
	if err != nil {
		return nil, toAPIError(err)
	}

	resp := ReferrerResponse{Address: account.Hex()}
	if !ledger.IsNullAccount(ref) {
		resp.Referrer = pkg.Ptr(ref.Hex())
	}
	return NewResult(resp), nil
}

func (h *Handler) GetBalance(r *http.Request) (*Result, *types.Error) {
	account, apiErr := pathAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}

	balance, err := h.engine.StakingToken().BalanceOf(r.Context(), account)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return NewResult(AmountResponse{Address: account.Hex(), Amount: balance.Dec()}), nil
}

func (h *Handler) Stake(r *http.Request) (*Result, *types.Error) {
	caller, apiErr := callerAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}
	var req StakeRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		return nil, apiErr
	}
	amount, apiErr := parseAmount(req.Amount)
	if apiErr != nil {
		return nil, apiErr
	}

	var referrer common.Address
	if req.Referrer != "" {
		var err error
		if referrer, err = pkg.ParseAddress(req.Referrer); err != nil {
			return nil, badRequest(err.Error())
		}
	}

	if err := h.engine.Stake(r.Context(), caller, amount, referrer); err != nil {
		return nil, toAPIError(err)
	}
	return h.stakeResult(r, caller)
}

func (h *Handler) ClaimROI(r *http.Request) (*Result, *types.Error) {
	caller, apiErr := callerAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}

	paid, err := h.engine.ClaimROI(r.Context(), caller)
	if err != nil {
		return nil, toAPIError(err)
	}
	return NewResult(AmountResponse{Address: caller.Hex(), Amount: paid.Dec()}), nil
}

func (h *Handler) Unstake(r *http.Request) (*Result, *types.Error) {
	caller, apiErr := callerAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}
	var req UnstakeRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		return nil, apiErr
	}
	amount, apiErr := parseAmount(req.Amount)
	if apiErr != nil {
		return nil, apiErr
	}

	if err := h.engine.Unstake(r.Context(), caller, amount); err != nil {
		return nil, toAPIError(err)
	}
	return h.stakeResult(r, caller)
}

func (h *Handler) WithdrawTokens(r *http.Request) (*Result, *types.Error) {
	caller, apiErr := callerAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}
	var req WithdrawRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		return nil, apiErr
	}
	tokenAddress, err := pkg.ParseNonZeroAddress(req.Token)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	amount, apiErr := parseAmount(req.Amount)
	if apiErr != nil {
		return nil, apiErr
	}

	if err := h.engine.WithdrawTokens(r.Context(), caller, tokenAddress, amount); err != nil {
		return nil, toAPIError(err)
	}
	return NewResult(AmountResponse{Address: h.engine.Owner().Hex(), Amount: amount.Dec()}), nil
}

func (h *Handler) Approve(r *http.Request) (*Result, *types.Error) {
	caller, apiErr := callerAddress(r)
	if apiErr != nil {
		return nil, apiErr
	}
	var req ApproveRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		return nil, apiErr
	}
	spender := h.engine.Contract()
	if req.Spender != "" {
		var err error
		if spender, err = pkg.ParseNonZeroAddress(req.Spender); err != nil {
			return nil, badRequest(err.Error())
		}
	}
	amount, apiErr := parseAmount(req.Amount)
	if apiErr != nil {
		return nil, apiErr
	}

	if err := h.approver.Approve(r.Context(), caller, spender, amount); err != nil {
		return nil, types.NewError(http.StatusUnprocessableEntity, types.UnprocessableEntity, err)
	}
	return NewResult(AmountResponse{Address: spender.Hex(), Amount: amount.Dec()}), nil
}

func (h *Handler) stakeResult(r *http.Request, account common.Address) (*Result, *types.Error) {
	rec, err := h.engine.StakeOf(r.Context(), account)
	if err != nil {
		return nil, toAPIError(err)
	}
	return NewResult(stakeResponse(account, rec)), nil
}

func stakeResponse(account common.Address, rec ledger.StakeRecord) StakeResponse {
	return StakeResponse{
		Address:   account.Hex(),
		Amount:    rec.Amount.Dec(),
		LastClaim: rec.LastClaim,
	}
}

func pathAddress(r *http.Request) (common.Address, *types.Error) {
	account, err := pkg.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		return common.Address{}, badRequest(err.Error())
	}
	return account, nil
}

func callerAddress(r *http.Request) (common.Address, *types.Error) {
	value := r.Header.Get(CallerHeader)
	if value == "" {
		return common.Address{}, badRequest(CallerHeader + " header is required")
	}
	caller, err := pkg.ParseNonZeroAddress(value)
	if err != nil {
		return common.Address{}, badRequest(err.Error())
	}
	return caller, nil
}

func parseAmount(s string) (*uint256.Int, *types.Error) {
	amount, err := utils.ParseBaseUnits(s)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	return amount, nil
}
