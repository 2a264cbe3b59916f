package domain

import "errors"

var (
	// ErrNoNearbyStock is returned when an optimization run finds no store carrying any listed item
	ErrNoNearbyStock = errors.New("no nearby stock for the listed items")

	// ErrEmptyList is returned when an operation needs at least one grocery item
	ErrEmptyList = errors.New("grocery list is empty")

	// ErrLocationUnavailable is returned when no usable location fix was supplied
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrRunInProgress is returned when an optimization run is already executing
	ErrRunInProgress = errors.New("optimization run already in progress")

	// ErrNoResult is returned when no optimization run has completed yet
	ErrNoResult = errors.New("no optimization result available")

	// ErrItemNotFound is returned when a grocery item id is unknown
	ErrItemNotFound = errors.New("grocery item not found")

	// ErrSavedListNotFound is returned when a saved list id is unknown
	ErrSavedListNotFound = errors.New("saved list not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when the upstream model asks us to slow down
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAdvisorFailure is returned when the remote model call fails
	ErrAdvisorFailure = errors.New("price advisor request failed")

	// ErrMalformedResponse is returned when a model reply carries unparseable JSON
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrSlotNotFound is returned when a persisted slot has never been written
	ErrSlotNotFound = errors.New("slot not found")
)
