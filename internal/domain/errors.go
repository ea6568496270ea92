package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no room exists for the given id.
	ErrSessionNotFound = errors.New("room not found")
	// ErrSessionInProgress rejects joins once the game has left the lobby.
	ErrSessionInProgress = errors.New("game already in progress")
	// ErrSessionFull rejects joins past the roster limit.
	ErrSessionFull = errors.New("room is full")
	// ErrSessionCompleted is returned for operations on a finished room.
	ErrSessionCompleted = errors.New("game already completed")
	// ErrParticipantNotFound is returned when a caller acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrAlreadyAnswered marks a duplicate submission for the open round.
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrRoundClosed is returned when no round is accepting answers.
	ErrRoundClosed = errors.New("no round is open")
	// ErrUnknownChallengeType indicates an unsupported challenge type.
	ErrUnknownChallengeType = errors.New("unknown challenge type")
	// ErrSessionExists is returned when a room id is already taken.
	ErrSessionExists = errors.New("room already exists")
	// ErrAlreadyInRoom rejects entering a room while still playing in another.
	ErrAlreadyInRoom = errors.New("participant is already in another room")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
)
