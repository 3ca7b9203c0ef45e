package domain

import "errors"

// ErrEmptyCompletion indicates the provider returned no usable text
// after an otherwise successful call. Never salvageable.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// ErrCallCancelled indicates the caller's cancellation predicate fired.
// Never conflated with a connection failure.
var ErrCallCancelled = errors.New("call cancelled by caller")

// ErrUnknownModelFamily indicates a model identifier whose prefix maps
// to no registered backend driver.
var ErrUnknownModelFamily = errors.New("unknown model family")

// ErrCacheMiss indicates no cached entry was found.
var ErrCacheMiss = errors.New("cache miss")
