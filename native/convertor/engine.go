package convertor

import (
	"fmt"
	"math/big"

	"convertord/core/events"
	"convertord/core/types"
)

// QuotaRefunder returns quota-currency value to a participant. Refunds are
// synchronous native transfers on the host and carry no settlement lease,
// unlike fungible-token transfers.
type QuotaRefunder interface {
	Refund(receiver string, amount *big.Int) error
}

// Engine is the aggregate root of the conversion ledger. It owns the pool
// registry, the account ledger and the settlement coordinator, and is the only
// entry point through which state mutates. The host serializes calls; the
// engine itself carries no locking.
type Engine struct {
	store      Storage
	registry   *PoolRegistry
	ledger     *AccountLedger
	settlement *SettlementCoordinator
	refunder   QuotaRefunder
	emitter    events.Emitter
	admin      string
}

// NewEngine wires the conversion engine against the supplied storage backend
// and external collaborators. The admin identifier gates the whitelist and
// pause surface.
func NewEngine(store Storage, transferrer TokenTransferrer, refunder QuotaRefunder, admin string) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("convertor: storage must not be nil")
	}
	admin, err := NormalizeToken(admin)
	if err != nil {
		return nil, fmt.Errorf("convertor: invalid admin identifier: %w", err)
	}
	ledger := NewAccountLedger(store)
	return &Engine{
		store:      store,
		registry:   NewPoolRegistry(store),
		ledger:     ledger,
		settlement: NewSettlementCoordinator(ledger, transferrer),
		refunder:   refunder,
		emitter:    events.NoopEmitter{},
		admin:      admin,
	}, nil
}

// SetEmitter configures the event emitter used by the engine and its
// settlement coordinator. Passing nil resets both to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.settlement.SetEmitter(emitter)
}

// SetQuotaParams overrides the storage pricing applied by the account ledger.
func (e *Engine) SetQuotaParams(params QuotaParams) {
	e.ledger.SetQuotaParams(params)
}

// Ledger exposes the account ledger for read-only callers.
func (e *Engine) Ledger() *AccountLedger { return e.ledger }

// Registry exposes the pool registry for read-only callers.
func (e *Engine) Registry() *PoolRegistry { return e.registry }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(convertorEvent{evt: evt})
}

// AssertNotPaused fails with ErrPaused while the ledger is administratively
// suspended.
func (e *Engine) AssertNotPaused() error {
	paused, err := e.paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// AssertTokenWhitelisted fails unless the token has been admitted by the
// admin surface.
func (e *Engine) AssertTokenWhitelisted(token string) error {
	_, ok, err := e.whitelistedToken(token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotWhitelisted, token)
	}
	return nil
}

// CreatePool registers a new conversion pool. Both tokens must be
// whitelisted, distinct and share decimals; the attached deposit must cover
// the configured collateral, with any excess refunded immediately. The
// collateral itself is recorded on the pool and returned when the pool is
// deleted.
func (e *Engine) CreatePool(creator, inToken, outToken string, reversible bool, inRate, outRate uint32, deposit *big.Int) (PoolID, error) {
	pool, err := NewConversionPool(creator, inToken, outToken, reversible, inRate, outRate, big.NewInt(0))
	if err != nil {
		return 0, err
	}
	inInfo, ok, err := e.whitelistedToken(pool.InToken)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTokenNotWhitelisted, pool.InToken)
	}
	outInfo, ok, err := e.whitelistedToken(pool.OutToken)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTokenNotWhitelisted, pool.OutToken)
	}
	if inInfo.Decimals != outInfo.Decimals {
		return 0, ErrDecimalsMismatch
	}
	if err := checkAmount(deposit); err != nil {
		return 0, err
	}
	required, err := e.CreatePoolDeposit()
	if err != nil {
		return 0, err
	}
	if deposit.Cmp(required) < 0 {
		return 0, fmt.Errorf("%w: attached %s, required %s", ErrInsufficientDeposit, deposit, required)
	}
	pool.DepositAmount = cloneAmount(required)
	id, err := e.registry.Create(pool)
	if err != nil {
		return 0, err
	}
	if refund := new(big.Int).Sub(deposit, required); refund.Sign() > 0 && e.refunder != nil {
		if err := e.refunder.Refund(pool.Creator, refund); err != nil {
			return 0, fmt.Errorf("convertor: excess deposit refund failed: %w", err)
		}
	}
	e.emit(NewPoolCreatedEvent(pool))
	return id, nil
}

// AddLiquidityMessage targets a deposit at a pool owned by the payer.
type AddLiquidityMessage struct {
	PoolID PoolID `json:"poolId"`
}

// ConvertMessage asks for the received amount to be converted through a pool.
// Token and amount must match the funds actually received.
type ConvertMessage struct {
	PoolID      PoolID   `json:"poolId"`
	InputToken  string   `json:"inputToken"`
	InputAmount *big.Int `json:"inputAmount"`
}

// TransferMessage is the tagged payload attached to an inbound token deposit.
// Exactly one variant must be set.
type TransferMessage struct {
	AddLiquidity *AddLiquidityMessage `json:"addLiquidity,omitempty"`
	Convert      *ConvertMessage      `json:"convert,omitempty"`
}

// OnTokenDeposit handles the external deposit notification for `amount` of
// `token` paid in by `sender`. The returned value is the portion of the
// deposit NOT consumed by the ledger: zero on success, since every failure
// aborts the whole request and leaves the full amount with the caller.
func (e *Engine) OnTokenDeposit(sender, token string, amount *big.Int, msg TransferMessage) (*big.Int, error) {
	if err := e.AssertNotPaused(); err != nil {
		return nil, err
	}
	sender, err := NormalizeToken(sender)
	if err != nil {
		return nil, err
	}
	token, err = NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	switch {
	case msg.AddLiquidity != nil && msg.Convert == nil:
		if err := e.addLiquidity(sender, token, amount, msg.AddLiquidity.PoolID); err != nil {
			return nil, err
		}
	case msg.Convert != nil && msg.AddLiquidity == nil:
		if err := e.convert(sender, token, amount, msg.Convert); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: message must carry exactly one action", ErrMessageMismatch)
	}
	return big.NewInt(0), nil
}

func (e *Engine) addLiquidity(sender, token string, amount *big.Int, id PoolID) error {
	pool, ok, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	if pool.Creator != sender {
		return fmt.Errorf("%w: only %s may add liquidity", ErrNotCreator, pool.Creator)
	}
	if err := pool.AddLiquidity(token, amount); err != nil {
		return err
	}
	if err := e.registry.Replace(id, pool); err != nil {
		return err
	}
	e.emit(NewPoolUpdatedEvent(pool))
	return nil
}

func (e *Engine) convert(sender, token string, amount *big.Int, msg *ConvertMessage) error {
	inputToken, err := NormalizeToken(msg.InputToken)
	if err != nil {
		return err
	}
	if inputToken != token {
		return fmt.Errorf("%w: received token %s, message names %s", ErrMessageMismatch, token, inputToken)
	}
	if msg.InputAmount == nil || msg.InputAmount.Cmp(amount) != 0 {
		return fmt.Errorf("%w: received amount %s, message names %v", ErrMessageMismatch, amount, msg.InputAmount)
	}
	pool, ok, err := e.registry.Get(msg.PoolID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrPoolNotFound, msg.PoolID)
	}
	outputToken, outputAmount, err := pool.Convert(token, amount)
	if err != nil {
		return err
	}
	// Dispatch before persisting the pool: every synchronous settlement check
	// runs while the request can still abort with no state written.
	if err := e.settlement.Initiate(sender, outputToken, outputAmount); err != nil {
		return err
	}
	if err := e.registry.Replace(msg.PoolID, pool); err != nil {
		return err
	}
	e.emit(NewPoolUpdatedEvent(pool))
	return nil
}

// WithdrawPoolToken releases pool liquidity back to the creator through the
// settlement pipeline. A nil amount drains the chosen side completely.
func (e *Engine) WithdrawPoolToken(caller string, id PoolID, token string, amount *big.Int) (*big.Int, error) {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return nil, err
	}
	token, err = NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	pool, ok, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	if pool.Creator != caller {
		return nil, ErrNotCreator
	}
	released, err := pool.Withdraw(token, amount)
	if err != nil {
		return nil, err
	}
	if err := e.settlement.Initiate(caller, token, released); err != nil {
		return nil, err
	}
	if err := e.registry.Replace(id, pool); err != nil {
		return nil, err
	}
	e.emit(NewPoolUpdatedEvent(pool))
	return released, nil
}

// DeletePool removes an empty pool and refunds its creation collateral to the
// creator.
func (e *Engine) DeletePool(caller string, id PoolID) error {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return err
	}
	pool, ok, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	if pool.Creator != caller {
		return ErrNotCreator
	}
	if err := e.registry.Delete(id); err != nil {
		return err
	}
	if pool.DepositAmount.Sign() > 0 && e.refunder != nil {
		if err := e.refunder.Refund(caller, pool.DepositAmount); err != nil {
			return fmt.Errorf("convertor: collateral refund failed: %w", err)
		}
	}
	e.emit(NewPoolDeletedEvent(id))
	return nil
}

// ResolveTransfer consumes the external acknowledgment for a dispatched
// transfer. The host delivers exactly one acknowledgment per dispatch.
func (e *Engine) ResolveTransfer(token, receiver string, amount *big.Int, outcome TransferOutcome) error {
	receiver, err := NormalizeToken(receiver)
	if err != nil {
		return err
	}
	token, err = NormalizeToken(token)
	if err != nil {
		return err
	}
	return e.settlement.Resolve(token, receiver, amount, outcome)
}
