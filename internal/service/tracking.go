package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"dispatch/internal/repository"
)

const (
	trackingSuffixLen      = 5
	trackingMaxAttempts    = 10
	trackingBase36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// TrackingGenerator produces globally unique, human-readable tracking
// numbers of the form <PREFIX>-<YYYYMMDD>-<5 base36 chars>.
type TrackingGenerator struct {
	prefix       string
	deliveryRepo repository.DeliveryRepository
	now          func() time.Time
}

// NewTrackingGenerator creates a TrackingGenerator with the given prefix.
func NewTrackingGenerator(prefix string, deliveryRepo repository.DeliveryRepository) *TrackingGenerator {
	return &TrackingGenerator{
		prefix:       strings.ToUpper(prefix),
		deliveryRepo: deliveryRepo,
		now:          time.Now,
	}
}

// Generate returns a tracking number not yet present in the delivery store.
// Collisions are retried up to a fixed bound; exhaustion surfaces as
// ErrTrackingIDExhausted, which callers treat as transient.
func (g *TrackingGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < trackingMaxAttempts; attempt++ {
		candidate := g.candidate()
		exists, err := g.deliveryRepo.TrackingNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrTrackingIDExhausted
}

func (g *TrackingGenerator) candidate() string {
	suffix := make([]byte, trackingSuffixLen)
	for i := range suffix {
		suffix[i] = trackingBase36Alphabet[rand.Intn(len(trackingBase36Alphabet))]
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.now().Format("20060102"), strings.ToUpper(string(suffix)))
}
