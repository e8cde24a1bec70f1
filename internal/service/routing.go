package service

import (
	"context"
	"fmt"
	"strings"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RoutingService resolves addresses to hubs and plans delivery legs from
// the hub topology.
type RoutingService struct {
	hubRepo repository.HubRepository
}

// NewRoutingService creates a new RoutingService.
func NewRoutingService(hubRepo repository.HubRepository) *RoutingService {
	return &RoutingService{hubRepo: hubRepo}
}

// ResolveHub finds the hub covering an address: first a case-insensitive
// substring match on the city against each hub's coverage list, then a
// province-level fallback. No match returns ErrNoHubCoverage.
func (s *RoutingService) ResolveHub(ctx context.Context, addr domain.Address) (*domain.Hub, error) {
	hubs, err := s.hubRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if hub := matchCoverage(hubs, addr.City); hub != nil {
		return hub, nil
	}
	if hub := matchCoverage(hubs, addr.Province); hub != nil {
		return hub, nil
	}
	return nil, ErrNoHubCoverage
}

func matchCoverage(hubs []*domain.Hub, place string) *domain.Hub {
	place = strings.ToLower(strings.TrimSpace(place))
	if place == "" {
		return nil
	}
	for _, hub := range hubs {
		for _, covered := range hub.Coverage {
			covered = strings.ToLower(strings.TrimSpace(covered))
			if covered == "" {
				continue
			}
			if strings.Contains(place, covered) || strings.Contains(covered, place) {
				return hub
			}
		}
	}
	return nil
}

// PlanLegs builds the ordered legs for a delivery: seller -> origin hub,
// an origin -> destination line haul when the hubs differ, and destination
// hub -> buyer.
func (s *RoutingService) PlanLegs(originHub, destinationHub *domain.Hub, pickup, dropoff domain.Address) []domain.Leg {
	sellerLoc := domain.Location{Label: addressLabel(pickup)}
	buyerLoc := domain.Location{Label: addressLabel(dropoff)}
	originLoc := domain.Location{HubID: originHub.ID, Label: hubLabel(originHub)}
	destLoc := domain.Location{HubID: destinationHub.ID, Label: hubLabel(destinationHub)}

	legs := []domain.Leg{
		{Number: 1, Type: domain.LegTypePickup, Origin: sellerLoc, Destination: originLoc, Status: domain.LegStatusUnassigned},
	}

	if originHub.ID != destinationHub.ID {
		legs = append(legs, domain.Leg{
			Number: 2, Type: domain.LegTypeLineHaul,
			Origin: originLoc, Destination: destLoc,
			Status: domain.LegStatusUnassigned,
		})
	}

	legs = append(legs, domain.Leg{
		Number: len(legs) + 1, Type: domain.LegTypeDelivery,
		Origin: destLoc, Destination: buyerLoc,
		Status: domain.LegStatusUnassigned,
	})

	return legs
}

// RequiredHubForLeg returns the hub a driver must belong to in order to
// work a leg: pickup and line-haul legs start at the origin hub, the final
// delivery leg starts at the destination hub.
func RequiredHubForLeg(d *domain.Delivery, leg *domain.Leg) string {
	if leg.Type == domain.LegTypeDelivery {
		return d.DestinationHubID
	}
	return d.OriginHubID
}

func addressLabel(a domain.Address) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Street, a.City, a.Province} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func hubLabel(h *domain.Hub) string {
	return fmt.Sprintf("%s (%s)", h.Name, h.Code)
}
