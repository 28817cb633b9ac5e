package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"tuition/internal/client"
	"tuition/internal/reconcile"
	dErrors "tuition/pkg/domain-errors"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background
	ctx.Step(`^the portal is running$`, tc.portalIsRunning)
	ctx.Step(`^the ledger store is down$`, tc.ledgerIsDown)

	// Identity
	ctx.Step(`^"([^"]*)" registers with email "([^"]*)" and password "([^"]*)"$`, tc.register)
	ctx.Step(`^the registration succeeds$`, tc.registrationSucceeds)
	ctx.Step(`^the user list shows exactly (\d+) users?$`, tc.userListHasLength)
	ctx.Step(`^the user list shows "([^"]*)" with email "([^"]*)"$`, tc.userListShows)
	ctx.Step(`^no listed user exposes a password$`, tc.noPasswordExposed)

	// Ledger
	ctx.Step(`^"([^"]*)" pays (\d+(?:\.\d+)?)$`, tc.namedUserPays)
	ctx.Step(`^a payment of (\d+(?:\.\d+)?) is made for user (\d+)$`, tc.pay)
	ctx.Step(`^the payment is recorded for "([^"]*)" with amount (\d+(?:\.\d+)?)$`, tc.paymentRecordedForNamed)
	ctx.Step(`^the payment is recorded for user (\d+) with amount (\d+(?:\.\d+)?)$`, tc.paymentRecordedFor)
	ctx.Step(`^the payment list contains the payment$`, tc.paymentListContainsLast)

	// Reconciliation
	ctx.Step(`^I reconcile the stores$`, tc.reconcileStores)
	ctx.Step(`^user (\d+) is reported as orphaned$`, tc.userIsOrphaned)

	// Failures
	ctx.Step(`^the registration fails with "([^"]*)"$`, tc.failsWithDomainCode)
	ctx.Step(`^the failure is not an outage$`, tc.failureIsNotOutage)
	ctx.Step(`^the request fails as an outage with "([^"]*)"$`, tc.failsAsOutage)

	// Raw router access
	ctx.Step(`^I GET "([^"]*)" through the router$`, tc.GET)
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^no backend was called$`, tc.noBackendCalled)
}

func (tc *TestContext) portalIsRunning(context.Context) error {
	if tc.Gateway == nil {
		return errors.New("gateway is not running")
	}
	return nil
}

func (tc *TestContext) ledgerIsDown(context.Context) error {
	tc.Ledger.Close()
	return nil
}

func (tc *TestContext) register(ctx context.Context, name, email, password string) error {
	u, err := tc.Client.Register(ctx, name, email, password)
	tc.LastErr = err
	if err == nil {
		tc.Users[name] = u
		tc.LastUser = u
	}
	return nil
}

func (tc *TestContext) registrationSucceeds(context.Context) error {
	if tc.LastErr != nil {
		return fmt.Errorf("registration failed: %w", tc.LastErr)
	}
	if tc.LastUser == nil || tc.LastUser.ID <= 0 {
		return fmt.Errorf("registration returned no id: %+v", tc.LastUser)
	}
	return nil
}

func (tc *TestContext) userListHasLength(ctx context.Context, n int) error {
	users, err := tc.Client.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) != n {
		return fmt.Errorf("expected %d users, got %d: %+v", n, len(users), users)
	}
	return nil
}

func (tc *TestContext) userListShows(ctx context.Context, name, email string) error {
	users, err := tc.Client.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Name == name && u.Email == email {
			return nil
		}
	}
	return fmt.Errorf("no user %q <%q> in %+v", name, email, users)
}

func (tc *TestContext) noPasswordExposed(ctx context.Context) error {
	if err := tc.GET(ctx, "/api/auth/users"); err != nil {
		return err
	}
	var listed []map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &listed); err != nil {
		return fmt.Errorf("decode user list: %w", err)
	}
	for _, u := range listed {
		for key := range u {
			if strings.Contains(strings.ToLower(key), "password") {
				return fmt.Errorf("user %v exposes %q", u["id"], key)
			}
		}
	}
	return nil
}

func (tc *TestContext) namedUserPays(ctx context.Context, name string, amount float64) error {
	u, ok := tc.Users[name]
	if !ok {
		return fmt.Errorf("%q has not registered", name)
	}
	return tc.pay(ctx, amount, u.ID)
}

func (tc *TestContext) pay(ctx context.Context, amount float64, userID int64) error {
	p, err := tc.Client.CreatePayment(ctx, userID, amount)
	tc.LastErr = err
	if err == nil {
		tc.LastPayment = p
	}
	return nil
}

func (tc *TestContext) paymentRecordedForNamed(ctx context.Context, name string, amount float64) error {
	u, ok := tc.Users[name]
	if !ok {
		return fmt.Errorf("%q has not registered", name)
	}
	return tc.paymentRecordedFor(ctx, u.ID, amount)
}

func (tc *TestContext) paymentRecordedFor(_ context.Context, userID int64, amount float64) error {
	if tc.LastErr != nil {
		return fmt.Errorf("payment failed: %w", tc.LastErr)
	}
	p := tc.LastPayment
	if p == nil || p.UserID != userID || p.Amount != amount || p.ID <= 0 {
		return fmt.Errorf("expected payment of %v for user %d, got %+v", amount, userID, p)
	}
	return nil
}

func (tc *TestContext) paymentListContainsLast(ctx context.Context) error {
	payments, err := tc.Client.ListPayments(ctx, nil)
	if err != nil {
		return err
	}
	if !slices.Contains(payments, *tc.LastPayment) {
		return fmt.Errorf("payment %+v missing from %+v", *tc.LastPayment, payments)
	}
	return nil
}

func (tc *TestContext) reconcileStores(ctx context.Context) error {
	report, err := reconcile.New(tc.Client, slog.New(slog.DiscardHandler)).FindOrphans(ctx)
	if err != nil {
		return err
	}
	tc.Report = &report
	return nil
}

func (tc *TestContext) userIsOrphaned(_ context.Context, userID int64) error {
	if tc.Report == nil {
		return errors.New("no reconciliation has run")
	}
	if !slices.Contains(tc.Report.OrphanedUserIDs, userID) {
		return fmt.Errorf("user %d not in orphaned ids %v", userID, tc.Report.OrphanedUserIDs)
	}
	return nil
}

func (tc *TestContext) failsWithDomainCode(_ context.Context, code string) error {
	var domain *client.DomainError
	if !errors.As(tc.LastErr, &domain) {
		return fmt.Errorf("expected a domain error, got %v", tc.LastErr)
	}
	if domain.Code != dErrors.Code(code) {
		return fmt.Errorf("expected code %s, got %s", code, domain.Code)
	}
	return nil
}

func (tc *TestContext) failureIsNotOutage(context.Context) error {
	if tc.LastErr == nil {
		return errors.New("expected a failure")
	}
	if client.IsInfrastructure(tc.LastErr) {
		return fmt.Errorf("expected a store rejection, got an outage: %v", tc.LastErr)
	}
	return nil
}

func (tc *TestContext) failsAsOutage(_ context.Context, code string) error {
	var infra *client.InfrastructureError
	if !errors.As(tc.LastErr, &infra) {
		return fmt.Errorf("expected an outage, got %v", tc.LastErr)
	}
	if infra.Code != dErrors.Code(code) {
		return fmt.Errorf("expected code %s, got %s", code, infra.Code)
	}
	return nil
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, status int) error {
	if tc.LastResponse == nil {
		return errors.New("no response recorded")
	}
	if tc.LastResponse.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, want string) error {
	var body map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if got := fmt.Sprint(body[field]); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (tc *TestContext) noBackendCalled(context.Context) error {
	if n := tc.IdentityHits.Load() + tc.LedgerHits.Load(); n != 0 {
		return fmt.Errorf("backends were called %d times", n)
	}
	return nil
}
