package engine

import "errors"

var UnknownSideErr = errors.New("unknown fill side")
var DuplicateSignalErr = errors.New("duplicate signal record for strategy type and date")
var InvalidSignalErr = errors.New("invalid signal record")
var InsufficientHoldingsErr = errors.New("sell quantity exceeds current holdings")
var InsufficientCashErr = errors.New("not enough cash for order")
var InvalidTradeParamsErr = errors.New("negative or zero trade parameters")
var OutOfOrderDateErr = errors.New("signal date not after last committed date")
var NoPriceErr = errors.New("no closing price for symbol on date")
var RiskVetoedErr = errors.New("buy vetoed by risk flag")
var LimitNotReachedErr = errors.New("close price outside order limit")
var EngineFailedErr = errors.New("match engine failed")
var EngineDoneErr = errors.New("match engine finished")
