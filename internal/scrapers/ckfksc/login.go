package ckfksc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crazycar-stats/internal/components/captcha"

	"github.com/mazen160/go-random"
)

const report_client_login = "client.login"

var ErrLoginFailed = errors.New("ckfksc: login failed")

const loginSuccessCode = "0000"

type loginResponse struct {
	RespCo  string `json:"respCo"`
	RespMsg string `json:"respMsg"`
}

// Login signs the session in with a phone number and password, asking
// `recognizer` to read the captcha. Every failure wraps ErrLoginFailed.
func (c *Client) Login(ctx context.Context, phone, password string, recognizer captcha.Recognizer) error {
	loginError := func(err error) error {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	c.tel.ReportDebug("login", phone)

	// the login page hands out the session cookie the captcha is bound to
	_, err := c.Http.R().
		SetContext(ctx).
		Get("/login")
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login page: %w", err))
		return loginError(err)
	}

	buster, err := random.String(16)
	if err != nil {
		return loginError(err)
	}
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("r", buster).
		Get("/captcha")
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("captcha: %w", err))
		return loginError(err)
	}
	if res.IsError() {
		err := fmt.Errorf("captcha: unexpected status %s", res.Status())
		c.tel.ReportBroken(report_client_login, err)
		return loginError(err)
	}

	code, err := recognizer.Recognize(ctx, res.Body())
	if err != nil {
		return loginError(fmt.Errorf("recognize captcha: %w", err))
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"areaCode": "86",
			"mobileNo": phone,
			"password": password,
			"captcha":  code,
		}).
		Post("/login")
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return loginError(err)
	}

	var body loginResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		c.tel.ReportWarning(report_client_login, fmt.Errorf("parse login response: %w", err), res.Status())
		return loginError(err)
	}
	if body.RespCo != loginSuccessCode {
		err := fmt.Errorf("rejected (%s): %s", body.RespCo, body.RespMsg)
		c.tel.ReportWarning(report_client_login, err, code)
		return loginError(err)
	}

	c.tel.ReportDebug("login succeeded", phone)
	return nil
}
