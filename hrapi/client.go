package hrapi

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-hr-client/gateway"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/jrsteele09/go-hr-client/leave"
	"github.com/jrsteele09/go-hr-client/profile"
	"github.com/pkg/errors"
)

// Endpoint paths, relative to the API base URL.
const (
	PathStatus        = "/status"
	PathLogin         = "/login"
	PathRefreshToken  = gateway.RefreshPath
	PathProfile       = "/profile"
	PathLeaveBalance  = "/leave_balance"
	PathLeaveTypes    = "/leave_types"
	PathLeaveRequests = "/leave_requests"
)

// Client is a typed view of the HR REST API. Every call goes through the gateway.
type Client struct {
	gw      *gateway.Gateway
	nowTime func() time.Time
}

type Option func(*Client)

// WithNowTime sets the clock used to stamp requests the server returned without a submission_date.
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

func New(gw *gateway.Gateway, options ...Option) *Client {
	c := &Client{gw: gw, nowTime: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Credentials is the body of POST /login.
type Credentials struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

// LoginResult is the response of POST /login. User is only partially filled in by the server.
type LoginResult struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         profile.Profile `json:"user"`
}

// ListParams filters GET /leave_requests. Zero values are not sent.
type ListParams struct {
	Page    int
	PerPage int
	Status  leave.Status
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	return q
}

// Status checks that the API is reachable.
func (c *Client) Status(ctx context.Context) (string, error) {
	resp, err := c.gw.DoAnonymous(ctx, gateway.Get(PathStatus, nil))
	if err != nil {
		return "", errors.Wrap(err, "status")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return "", errors.Wrap(err, "status")
	}
	return body.Status, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	resp, err := c.gw.DoAnonymous(ctx, gateway.Post(PathLogin, creds))
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}
	var result LoginResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		return nil, errors.Wrap(apperrors.NewAPIError(resp.StatusCode, "login response missing tokens"), "login")
	}
	return &result, nil
}

// RefreshToken exchanges a refresh token for a new access token. The gateway
// does this itself on a 401; this call is for explicit use only.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.gw.DoAnonymous(ctx, gateway.Post(PathRefreshToken, map[string]string{"refreshToken": refreshToken}))
	if err != nil {
		return "", errors.Wrap(err, "refresh token")
	}
	accessToken, err := gateway.DecodeAccessToken(resp)
	if err != nil {
		return "", errors.Wrap(err, "refresh token")
	}
	return accessToken, nil
}

func (c *Client) GetProfile(ctx context.Context) (*profile.Profile, error) {
	var p profile.Profile
	if err := c.getJSON(ctx, gateway.Get(PathProfile, nil), &p); err != nil {
		return nil, errors.Wrap(err, "get profile")
	}
	return &p, nil
}

// UpdateProfile validates the update before sending it.
func (c *Client) UpdateProfile(ctx context.Context, update profile.Update) (*profile.Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	var p profile.Profile
	if err := c.getJSON(ctx, gateway.Put(PathProfile, update), &p); err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return &p, nil
}

func (c *Client) LeaveBalance(ctx context.Context) (leave.Balance, error) {
	var b leave.Balance
	if err := c.getJSON(ctx, gateway.Get(PathLeaveBalance, nil), &b); err != nil {
		return leave.Balance{}, errors.Wrap(err, "leave balance")
	}
	return b, nil
}

func (c *Client) LeaveTypes(ctx context.Context) ([]leave.Type, error) {
	var types []leave.Type
	if err := c.getJSON(ctx, gateway.Get(PathLeaveTypes, nil), &types); err != nil {
		return nil, errors.Wrap(err, "leave types")
	}
	return types, nil
}

// LeaveRequests lists the user's requests. Requests without a submission_date
// are stamped with the fetch time.
func (c *Client) LeaveRequests(ctx context.Context, params ListParams) (leave.ListPage, error) {
	resp, err := c.gw.Do(ctx, gateway.Get(PathLeaveRequests, params.query()))
	if err != nil {
		return leave.ListPage{}, errors.Wrap(err, "leave requests")
	}
	page, err := leave.DecodeList(resp.Body)
	if err != nil {
		return leave.ListPage{}, errors.Wrap(err, "decode leave requests")
	}
	fetchedAt := c.nowTime().UTC()
	for i := range page.Requests {
		if page.Requests[i].SubmissionDate.IsZero() {
			page.Requests[i].SubmissionDate = fetchedAt
		}
	}
	return page, nil
}

// SubmitLeaveRequest validates the request before sending it.
func (c *Client) SubmitLeaveRequest(ctx context.Context, req leave.NewRequest) (leave.Request, error) {
	if err := req.Validate(); err != nil {
		return leave.Request{}, err
	}
	var created leave.Request
	if err := c.getJSON(ctx, gateway.Post(PathLeaveRequests, req), &created); err != nil {
		return leave.Request{}, errors.Wrap(err, "submit leave request")
	}
	return created, nil
}

// CancelLeaveRequest returns the server's confirmation message.
func (c *Client) CancelLeaveRequest(ctx context.Context, id int64) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.getJSON(ctx, gateway.Delete(PathLeaveRequests+"/"+strconv.FormatInt(id, 10)), &body); err != nil {
		return "", errors.Wrapf(err, "cancel leave request %d", id)
	}
	return body.Message, nil
}

func (c *Client) getJSON(ctx context.Context, req *gateway.Request, v any) error {
	resp, err := c.gw.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(v)
}
