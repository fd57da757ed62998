package authprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

// GoTrue adapts a hosted GoTrue-compatible auth service (e.g. Supabase Auth).
type GoTrue struct {
	client     *resty.Client
	anonKey    string
	serviceKey string
}

func NewGoTrue(baseURL, anonKey, serviceKey string) *GoTrue {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/auth/v1").
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &GoTrue{client: client, anonKey: anonKey, serviceKey: serviceKey}
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Code             any    `json:"code"`
}

func (e *gotrueError) message() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		Email string `json:"email"`
	} `json:"user"`
}

func (p *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var result tokenResponse
	var apiErr gotrueError
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("apikey", p.anonKey).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": normalize(email), "password": password}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/token")
	if err != nil {
		return nil, fmt.Errorf("auth provider unreachable: %w", err)
	}

	if resp.IsError() {
		if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth provider sign-in failed: status %d: %s", resp.StatusCode(), apiErr.message())
	}
	return &Session{Token: result.AccessToken, Email: normalize(result.User.Email)}, nil
}

func (p *GoTrue) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("apikey", p.anonKey).
		SetAuthToken(token).
		Post("/logout")
	if err != nil {
		return fmt.Errorf("auth provider unreachable: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusUnauthorized {
		return fmt.Errorf("auth provider sign-out failed: status %d", resp.StatusCode())
	}
	return nil
}

type createUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type userResponse struct {
	ID string `json:"id"`
}

func (p *GoTrue) CreateUser(ctx context.Context, email, password string) (string, error) {
	var result userResponse
	var apiErr gotrueError
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("apikey", p.serviceKey).
		SetAuthToken(p.serviceKey).
		SetBody(createUserRequest{Email: normalize(email), Password: password, EmailConfirm: true}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/admin/users")
	if err != nil {
		return "", fmt.Errorf("auth provider unreachable: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.message()
		if resp.StatusCode() == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "already") {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("auth provider create user failed: status %d: %s", resp.StatusCode(), msg)
	}
	return result.ID, nil
}

func (p *GoTrue) DeleteUser(ctx context.Context, id string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("apikey", p.serviceKey).
		SetAuthToken(p.serviceKey).
		Delete("/admin/users/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("auth provider unreachable: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("auth provider delete user failed: status %d", resp.StatusCode())
	}
	return nil
}
