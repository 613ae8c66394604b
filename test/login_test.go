package test

import (
	"encoding/json"
	"net/http"
)

func (s *IntegrationTestSuite) TestUserSignupAndLogin() {
	signupResp, err := signupUser("Login Flow User", "login-flow@bloghaven.test", testPassword)
	s.Require().NoError(err)
	s.Require().NotEmpty(signupResp.Token)
	s.Equal("login-flow@bloghaven.test", signupResp.User.Email)

	// login with the same credentials
	respBytes, status, err := postJSON("/api/user/login", "", map[string]string{
		"email":    "login-flow@bloghaven.test",
		"password": testPassword,
	})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)

	var loginResp authResponse
	s.Require().NoError(json.Unmarshal(respBytes, &loginResp))
	s.True(loginResp.Success)
	s.NotEmpty(loginResp.Token)

	// the token opens protected endpoints
	profileBytes, status, err := get("/api/user/profile", loginResp.Token)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Contains(string(profileBytes), "login-flow@bloghaven.test")
}

func (s *IntegrationTestSuite) TestUserLogin_wrongPassword() {
	_, err := signupUser("Wrong Pass User", "wrong-pass@bloghaven.test", testPassword)
	s.Require().NoError(err)

	respBytes, status, err := postJSON("/api/user/login", "", map[string]string{
		"email":    "wrong-pass@bloghaven.test",
		"password": "not-the-password",
	})
	s.Require().NoError(err)

	// failures keep the 200 + success=false envelope
	s.Equal(http.StatusOK, status)

	var resp apiResponse
	s.Require().NoError(json.Unmarshal(respBytes, &resp))
	s.False(resp.Success)
	s.Equal("Invalid Credentials", resp.Message)
}

func (s *IntegrationTestSuite) TestAdminLogin() {
	token, err := loginAdmin(testAdminEmail, testPassword)
	s.Require().NoError(err)
	s.Require().NotEmpty(token)

	dashboardBytes, status, err := get("/api/admin/dashboard", token)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Contains(string(dashboardBytes), `"success":true`)
}

func (s *IntegrationTestSuite) TestAdminLogin_wrongCredentials() {
	_, err := loginAdmin(testAdminEmail, "not-the-password")
	s.Require().Error(err)
	s.Contains(err.Error(), "Invalid Credentials")
}

func (s *IntegrationTestSuite) TestProtectedEndpoint_noToken() {
	respBytes, status, err := get("/api/user/profile", "")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)

	var resp apiResponse
	s.Require().NoError(json.Unmarshal(respBytes, &resp))
	s.False(resp.Success)
	s.Equal("No token provided", resp.Message)
}
