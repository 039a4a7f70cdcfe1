package convertor

import "errors"

var (
	// Validation failures. Reported synchronously, no state change.
	ErrInvalidRate      = errors.New("convertor: pool rates must be positive")
	ErrSameToken        = errors.New("convertor: pool tokens must be distinct")
	ErrIllegalToken     = errors.New("convertor: token does not belong to pool")
	ErrDecimalsMismatch = errors.New("convertor: pool tokens must share decimals")
	ErrMessageMismatch  = errors.New("convertor: deposit does not match attached message")
	ErrInvalidAmount    = errors.New("convertor: amount must be a non-negative 128-bit integer")
	ErrAmountOverflow   = errors.New("convertor: conversion result exceeds 128 bits")
	ErrBalanceOverflow  = errors.New("convertor: balance exceeds 128 bits")

	// Insufficiency failures.
	ErrDirectionNotAllowed     = errors.New("convertor: pool does not permit reverse conversion")
	ErrInsufficientPoolBalance = errors.New("convertor: insufficient pool balance")
	ErrInsufficientQuota       = errors.New("convertor: insufficient quota balance")
	ErrInsufficientDeposit     = errors.New("convertor: attached deposit below required collateral")
	ErrQuotaDebt               = errors.New("convertor: account carries storage quota debt")
	ErrNoTokenBalance          = errors.New("convertor: no balance recorded for token")

	// Authorization failures.
	ErrNotAdmin   = errors.New("convertor: admin access required")
	ErrNotCreator = errors.New("convertor: only the pool creator may perform this action")

	// Lifecycle and protocol failures.
	ErrPaused              = errors.New("convertor: ledger is paused")
	ErrNotPaused           = errors.New("convertor: ledger is not paused")
	ErrPoolNotFound        = errors.New("convertor: pool not found")
	ErrPoolNotEmpty        = errors.New("convertor: pool balances must be zero")
	ErrAccountNotFound     = errors.New("convertor: account not found")
	ErrAccountNotEmpty     = errors.New("convertor: account still holds custodial tokens")
	ErrTransferInFlight    = errors.New("convertor: account has unresolved external transfers")
	ErrTokenNotWhitelisted = errors.New("convertor: token is not whitelisted")
	ErrUnexpectedAck       = errors.New("convertor: unexpected transfer acknowledgment")
	ErrSchemaVersion       = errors.New("convertor: unsupported record schema version")
)
