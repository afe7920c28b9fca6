package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// referenceAlphabet excludes 0, O, 1 and I so references survive being read
// over the phone
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const referencePrefix = "AVY-"

const referenceLength = 6

// ReferenceService generates customer-facing booking references
type ReferenceService struct{}

// NewReferenceService creates a new ReferenceService
func NewReferenceService() *ReferenceService {
	return &ReferenceService{}
}

// Generate produces a new booking reference like AVY-K7M2XQ. References are
// generated before any external call so every downstream artifact can be
// correlated even when the pipeline fails midway.
func (s *ReferenceService) Generate() (string, error) {
	max := big.NewInt(int64(len(referenceAlphabet)))
	out := make([]byte, referenceLength)

	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate booking reference: %w", err)
		}
		out[i] = referenceAlphabet[n.Int64()]
	}

	return referencePrefix + string(out), nil
}
