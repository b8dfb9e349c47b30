package model

import "errors"

// Common errors used across the application
var (
	// Registry errors
	ErrRegistryFull        = errors.New("registry is full")
	ErrDuplicateConnection = errors.New("connection is already registered")
	ErrUnknownConnection   = errors.New("unknown connection")

	// Answer errors
	ErrInvalidLetter   = errors.New("invalid answer letter")
	ErrRoundNotOpen    = errors.New("round is not accepting answers")
	ErrAlreadyAnswered = errors.New("player has already answered this round")

	// Question bank errors
	ErrQuestionsNotLoaded = errors.New("questions not loaded")
	ErrInvalidQuestion    = errors.New("invalid question")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)
