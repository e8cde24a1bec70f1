package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

func TestDriverRegister_NewDriverStartsOffDuty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	drivers := service.NewDriverService(driverRepo, hubRepo, nil)

	driver, err := drivers.Register(ctx, service.RegisterDriverRequest{
		Name:        "Ana Reyes",
		Phone:       "+63-900-1111",
		HubID:       "hub-a",
		Type:        domain.DriverTypePickup,
		VehicleType: domain.VehicleMotorcycle,
		PlateNumber: "ABC-123",
		MaxWeightKg: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if driver.Status != domain.DriverStatusOffDuty {
		t.Errorf("new drivers must start off_duty, got %s", driver.Status)
	}
	if !driver.Active || driver.Rating != 5.0 {
		t.Errorf("unexpected defaults: active=%v rating=%v", driver.Active, driver.Rating)
	}
	if driver.ID == "" {
		t.Error("expected a generated driver ID")
	}
}

func TestDriverRegister_DuplicatePlateRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	drivers := service.NewDriverService(driverRepo, hubRepo, nil)

	req := service.RegisterDriverRequest{
		Name:        "Ana Reyes",
		HubID:       "hub-a",
		Type:        domain.DriverTypePickup,
		VehicleType: domain.VehicleCar,
		PlateNumber: "ABC-123",
		MaxWeightKg: 20,
	}
	if _, err := drivers.Register(ctx, req); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	req.Name = "Ben Cruz"
	_, err := drivers.Register(ctx, req)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestDriverRegister_UnknownHubRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	hubRepo := NewMockHubRepository()
	drivers := service.NewDriverService(driverRepo, hubRepo, nil)

	_, err := drivers.Register(ctx, service.RegisterDriverRequest{
		Name:        "Ana Reyes",
		HubID:       "hub-nowhere",
		Type:        domain.DriverTypePickup,
		VehicleType: domain.VehicleCar,
		PlateNumber: "ABC-123",
		MaxWeightKg: 20,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown hub, got %v", err)
	}
}

func TestDriverSetStatus_CannotMoveToOnDeliveryByHand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	driver := testDriver("d1", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.5)
	driver.Status = domain.DriverStatusOffDuty
	driverRepo.AddDriver(driver)
	drivers := service.NewDriverService(driverRepo, hubRepo, nil)

	var unavailable *service.DriverUnavailableError
	_, err := drivers.SetStatus(ctx, "d1", domain.DriverStatusOnDelivery)
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected DriverUnavailableError, got %v", err)
	}
	if driverRepo.GetDriver("d1").Status != domain.DriverStatusOffDuty {
		t.Error("driver status must not change on a rejected request")
	}
}

func TestDriverSetStatus_GoesOnDuty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	driver := testDriver("d1", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.5)
	driver.Status = domain.DriverStatusOffDuty
	driverRepo.AddDriver(driver)
	drivers := service.NewDriverService(driverRepo, hubRepo, nil)

	updated, err := drivers.SetStatus(ctx, "d1", domain.DriverStatusAvailable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.DriverStatusAvailable {
		t.Errorf("expected available, got %s", updated.Status)
	}
}

func TestDriverSetStatus_OnDeliveryDriverIsProtected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	driver := testDriver("d1", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.5)
	driver.Status = domain.DriverStatusOnDelivery
	driver.CurrentDeliveryID = "dlv-1"
	driverRepo.AddDriver(driver)
	drivers := service.NewDriverService(driverRepo, hubRepo, nil)

	// Only the orchestration's release path may free a working driver.
	_, err := drivers.SetStatus(ctx, "d1", domain.DriverStatusOffDuty)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
