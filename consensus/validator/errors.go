package validator

import "errors"

var (
	// ErrWrongProducer is returned when a block's claimed producer does not
	// match the delegate holding its slot's rank (§4.7 rule 1).
	ErrWrongProducer = errors.New("validator: wrong producer for slot")
	// ErrTimestampMisaligned is returned when a block's timestamp falls
	// outside one block interval of its slot boundary (§4.7 rule 2).
	ErrTimestampMisaligned = errors.New("validator: timestamp misaligned with slot")
	// ErrFeeTooLarge is returned when the terminal transaction's delegate
	// fee payout exceeds the fee cap (§4.7 rule 4).
	ErrFeeTooLarge = errors.New("validator: delegate fee exceeds cap")
)
