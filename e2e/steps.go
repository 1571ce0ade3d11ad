package e2e

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background
	ctx.Step(`^the auth service is running$`, tc.serviceIsRunning)
	ctx.Step(`^a user exists with email "([^"]*)"$`, tc.userExists)

	// Session lifecycle
	ctx.Step(`^I log in with email "([^"]*)" and the correct password$`, tc.loginCorrect)
	ctx.Step(`^I log in with email "([^"]*)" and password "([^"]*)"$`, tc.login)
	ctx.Step(`^I log in (\d+) times with email "([^"]*)" and password "([^"]*)"$`, tc.loginRepeatedly)
	ctx.Step(`^I save the returned tokens$`, tc.saveTokens)
	ctx.Step(`^I request user info with the access token$`, tc.requestUserInfo)
	ctx.Step(`^I request user info with token "([^"]*)"$`, tc.requestUserInfoWithToken)
	ctx.Step(`^I request user info without a token$`, tc.requestUserInfoWithoutToken)
	ctx.Step(`^I refresh with the saved refresh token$`, tc.refresh)
	ctx.Step(`^I log out with the saved access token$`, tc.logout)
	ctx.Step(`^I list my sessions$`, tc.listSessions)

	// Rate limiting
	ctx.Step(`^I POST to "([^"]*)" (\d+) times with an invalid token$`, tc.postRepeatedly)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response header "([^"]*)" should be present$`, tc.responseHeaderShouldBePresent)
	ctx.Step(`^the saved refresh token should no longer work$`, tc.savedRefreshShouldFail)
	ctx.Step(`^the saved access token should no longer work$`, tc.savedAccessShouldFail)
}

func (tc *TestContext) serviceIsRunning(_ context.Context) error {
	if tc.Server == nil {
		return fmt.Errorf("test server not started")
	}
	return nil
}

func (tc *TestContext) userExists(_ context.Context, email string) error {
	return seedUser(tc.Users, email)
}

func (tc *TestContext) loginCorrect(ctx context.Context, email string) error {
	return tc.login(ctx, email, e2ePassword)
}

func (tc *TestContext) login(_ context.Context, email, pass string) error {
	return tc.POST("/auth/login", map[string]string{
		"email":    email,
		"password": pass,
	}, nil)
}

func (tc *TestContext) loginRepeatedly(ctx context.Context, count int, email, pass string) error {
	for i := 0; i < count; i++ {
		if err := tc.login(ctx, email, pass); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TestContext) saveTokens(_ context.Context) error {
	access, err := tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	refresh, err := tc.GetResponseField("refresh_token")
	if err != nil {
		return err
	}
	tc.AccessToken, _ = access.(string)
	tc.RefreshToken, _ = refresh.(string)
	if tc.AccessToken == "" || tc.RefreshToken == "" {
		return fmt.Errorf("response did not carry a full token pair: %s", string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) requestUserInfo(_ context.Context) error {
	return tc.GET("/auth/me", map[string]string{
		"Authorization": "Bearer " + tc.AccessToken,
	})
}

func (tc *TestContext) requestUserInfoWithToken(_ context.Context, token string) error {
	return tc.GET("/auth/me", map[string]string{
		"Authorization": "Bearer " + token,
	})
}

func (tc *TestContext) requestUserInfoWithoutToken(_ context.Context) error {
	return tc.GET("/auth/me", nil)
}

func (tc *TestContext) refresh(_ context.Context) error {
	return tc.POST("/auth/refresh", map[string]string{
		"refresh_token": tc.RefreshToken,
	}, nil)
}

func (tc *TestContext) logout(_ context.Context) error {
	return tc.POST("/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + tc.AccessToken,
	})
}

func (tc *TestContext) listSessions(_ context.Context) error {
	return tc.GET("/auth/sessions", map[string]string{
		"Authorization": "Bearer " + tc.AccessToken,
	})
}

func (tc *TestContext) postRepeatedly(_ context.Context, path string, count int) error {
	for i := 0; i < count; i++ {
		err := tc.POST(path, map[string]string{
			"refresh_token": "not-a-real-token",
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d (body: %s)",
			expected, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, fmt.Sprintf("%v", value))
	}
	return nil
}

func (tc *TestContext) responseHeaderShouldBePresent(_ context.Context, header string) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.Header.Get(header) == "" {
		return fmt.Errorf("header %s not present", header)
	}
	return nil
}

func (tc *TestContext) savedRefreshShouldFail(ctx context.Context) error {
	if err := tc.refresh(ctx); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != 401 {
		return fmt.Errorf("expected replayed refresh to fail with 401, got %d", tc.LastResponse.StatusCode)
	}
	return nil
}

func (tc *TestContext) savedAccessShouldFail(ctx context.Context) error {
	if err := tc.requestUserInfo(ctx); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != 401 {
		return fmt.Errorf("expected revoked access token to fail with 401, got %d", tc.LastResponse.StatusCode)
	}
	return nil
}
