//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background
	ctx.Step(`^the decision gateway is running$`, tc.gatewayIsRunning)

	// Auth
	ctx.Step(`^I am authenticated as "([^"]*)"$`, tc.authenticateAs)

	// Requests
	ctx.Step(`^I evaluate a decision$`, tc.evaluate)
	ctx.Step(`^I evaluate a decision with state key "([^"]*)" set to "([^"]*)"$`, tc.evaluateWithState)
	ctx.Step(`^I evaluate a decision without authentication$`, tc.evaluateWithoutAuth)
	ctx.Step(`^I GET "([^"]*)"$`, tc.get)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, tc.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should not be empty$`, tc.responseFieldShouldNotBeEmpty)
}

func (tc *TestContext) gatewayIsRunning(ctx context.Context) error {
	if err := tc.GET("/health/live"); err != nil {
		return fmt.Errorf("gateway at %s is not reachable: %w", tc.BaseURL, err)
	}
	return tc.responseStatusShouldBe(ctx, 200)
}

func (tc *TestContext) authenticateAs(ctx context.Context, subject string) error {
	token, err := tc.Tokens.GenerateAccessToken(ctx, subject)
	if err != nil {
		return fmt.Errorf("mint token for %s: %w", subject, err)
	}
	tc.AccessToken = token
	return nil
}

func (tc *TestContext) bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + tc.AccessToken}
}

func (tc *TestContext) evaluate(context.Context) error {
	return tc.POST("/decision/evaluate", nil, tc.bearer())
}

func (tc *TestContext) evaluateWithState(_ context.Context, key, value string) error {
	body := map[string]any{"state": map[string]any{key: value}}
	return tc.POST("/decision/evaluate", body, tc.bearer())
}

func (tc *TestContext) evaluateWithoutAuth(context.Context) error {
	return tc.POST("/decision/evaluate", nil, nil)
}

func (tc *TestContext) get(_ context.Context, path string) error {
	return tc.GET(path)
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if got := tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d. Body: %s", expected, got, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	if !strings.Contains(string(tc.LastResponseBody), text) {
		return fmt.Errorf("response does not contain %q", text)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	res, err := tc.ResponseField(field)
	if err != nil {
		return err
	}
	if res.String() != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, res.String())
	}
	return nil
}

func (tc *TestContext) responseFieldShouldBe(_ context.Context, field, expected string) error {
	want, err := strconv.ParseBool(expected)
	if err != nil {
		return err
	}
	res, err := tc.ResponseField(field)
	if err != nil {
		return err
	}
	if !res.IsBool() || res.Bool() != want {
		return fmt.Errorf("expected %s=%v, got %s", field, want, res.Raw)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldNotBeEmpty(_ context.Context, field string) error {
	res, err := tc.ResponseField(field)
	if err != nil {
		return err
	}
	if strings.TrimSpace(res.String()) == "" {
		return fmt.Errorf("expected %s to be set", field)
	}
	return nil
}
