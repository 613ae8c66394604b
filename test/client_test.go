package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// apiResponse is the common envelope all endpoints reply with. Failures come
// back as HTTP 200 with success=false.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authResponse struct {
	apiResponse
	Token string `json:"token"`
	User  struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func doRequest(method, path, token string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequest(method, serverEndpoint+path, body)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	// the token travels raw, no "Bearer" prefix
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBytes, resp.StatusCode, nil
}

func postJSON(path, token string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	return doRequest(http.MethodPost, path, token, bytes.NewReader(body), "application/json")
}

func get(path, token string) ([]byte, int, error) {
	return doRequest(http.MethodGet, path, token, nil, "")
}

// postNewBlog sends the multipart add-blog request: the blog JSON in the
// "blog" field plus a fake cover image.
func postNewBlog(token string, blogPayload map[string]any) ([]byte, int, error) {
	blogJSON, err := json.Marshal(blogPayload)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("blog", string(blogJSON)); err != nil {
		return nil, 0, err
	}
	fw, err := mw.CreateFormFile("image", "cover.png")
	if err != nil {
		return nil, 0, err
	}
	if _, err := fw.Write([]byte("fake-png-bytes")); err != nil {
		return nil, 0, err
	}
	if err := mw.Close(); err != nil {
		return nil, 0, err
	}

	return doRequest(http.MethodPost, "/api/blog/add", token, &buf, mw.FormDataContentType())
}

func signupUser(name, email, password string) (authResponse, error) {
	respBytes, _, err := postJSON("/api/user/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return authResponse{}, err
	}

	var resp authResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return authResponse{}, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("signup failed: %s", resp.Message)
	}
	return resp, nil
}

func loginAdmin(email, password string) (string, error) {
	respBytes, _, err := postJSON("/api/admin/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	var resp authResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("admin login failed: %s", resp.Message)
	}
	return resp.Token, nil
}
